package httpapi

// Config defines HTTP API and page settings.
type Config struct {
	Addr            string
	SessionCookie   string
	SessionTTLHours int
	BasePath        string
	MetricsPath     string
}
