package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/internal/eventbus"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/internal/sessionctx"
	"pkt.systems/rollcall/schema"
)

const (
	defaultSessionCookie = "rollcall_session"
	defaultSessionTTL    = 24 * time.Hour
	streamKeepAlive      = 25 * time.Second
	maxBodySize          = 64 << 10
)

// Server serves the JSON API, the page and the event stream.
type Server struct {
	cfg      Config
	registry *core.Registry
	bus      *eventbus.Bus
	metrics  http.Handler
	sessions *sessionStore
	basePath string
	baseHref string
}

// NewServer constructs an HTTP server. metrics may be nil.
func NewServer(cfg Config, registry *core.Registry, bus *eventbus.Bus, metrics http.Handler) *Server {
	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	if strings.TrimSpace(cfg.SessionCookie) == "" {
		cfg.SessionCookie = defaultSessionCookie
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	return &Server{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		metrics:  metrics,
		sessions: newSessionStore(ttl, registry),
		basePath: normalizeBasePath(cfg.BasePath),
		baseHref: buildBaseHref(cfg.BasePath),
	}
}

// Handler returns an http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.FS(assetsFS))))

	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("DELETE /api/session", s.handleDeleteSession)
	mux.HandleFunc("GET /api/state", s.withSession(s.handleState))
	mux.HandleFunc("POST /api/names", s.withSession(s.handleAddName))
	mux.HandleFunc("DELETE /api/names/{index}", s.withSession(s.handleRemoveName))
	mux.HandleFunc("POST /api/toggle", s.withSession(s.handleToggle))
	mux.HandleFunc("GET /api/stream", s.withSession(s.handleStream))
	if s.metrics != nil {
		mux.Handle("GET "+s.cfg.MetricsPath, s.metrics)
	}

	handler := withRequestLogging(mux, s.lookupSession)
	if s.basePath == "" {
		return handler
	}
	prefix := s.basePath
	root := http.NewServeMux()
	root.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	root.HandleFunc(prefix, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != prefix {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, prefix+"/", http.StatusTemporaryRedirect)
	})
	return root
}

// SweepExpired closes cookie sessions that have been idle past the TTL.
func (s *Server) SweepExpired(ctx context.Context) int {
	return s.sessions.sweep(ctx)
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepExpired(ctx)
		}
	}
}

// Close drops every cookie session.
func (s *Server) Close(ctx context.Context) int {
	return s.sessions.closeAll(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	stat, err := fs.Stat(assetsFS, "index.html")
	if err != nil {
		http.Error(w, "index not found", http.StatusInternalServerError)
		return
	}
	data = applyBaseHref(data, s.baseHref)
	http.ServeContent(w, r, "index.html", stat.ModTime(), bytes.NewReader(data))
}

const baseHrefPlaceholder = "<!-- BASE_HREF -->"

func applyBaseHref(data []byte, baseHref string) []byte {
	replacement := ""
	if strings.TrimSpace(baseHref) != "" {
		replacement = fmt.Sprintf(`<base href="%s" />`, html.EscapeString(baseHref))
	}
	return bytes.ReplaceAll(data, []byte(baseHrefPlaceholder), []byte(replacement))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if token := s.sessionToken(r); token != "" {
		s.sessions.delete(r.Context(), token)
	}
	entry, sess := s.sessions.create(r.Context())
	s.setCookie(w, entry)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	deleted := false
	if token := s.sessionToken(r); token != "" {
		deleted = s.sessions.delete(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     s.cookiePath(),
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "deleted": deleted})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

type addNameRequest struct {
	Name *string `json:"name"`
}

type addNameResponse struct {
	schema.Snapshot
	Added bool `json:"added"`
}

func (s *Server) handleAddName(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}
	log := logx.WithSession(r.Context(), sess.ID())
	var payload addNameRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxBodySize), &payload); err != nil {
		log.Warn("http add name decode failed", "err", err)
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", schema.ErrInvalidRequest, err))
		return
	}
	if payload.Name == nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: name is required", schema.ErrInvalidRequest))
		return
	}
	snap, added, err := sess.AddName(r.Context(), *payload.Name)
	if err != nil {
		log.Warn("http add name failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, addNameResponse{Snapshot: snap, Added: added})
}

func (s *Server) handleRemoveName(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}
	log := logx.WithSession(r.Context(), sess.ID())
	index, err := schema.ParseIndex(r.PathValue("index"))
	if err != nil {
		log.Warn("http remove name rejected", "index", r.PathValue("index"))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	snap, _, err := sess.RemoveName(r.Context(), index)
	if err != nil {
		log.Warn("http remove name failed", "err", err)
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}
	snap, err := sess.Flip(r.Context())
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// streamEvent is one server-sent event.
type streamEvent struct {
	Kind     schema.ChangeKind `json:"kind"`
	Snapshot schema.Snapshot   `json:"snapshot"`
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := requestSession(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("stream unsupported"))
		return
	}
	if s.bus == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("stream unavailable"))
		return
	}
	log := logx.WithSession(r.Context(), sess.ID())

	// subscribe before the first snapshot so no change slips in between
	ch, unsubscribe := s.bus.Subscribe(sess.ID())
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	_ = writeSSEvent(w, streamEvent{Kind: "snapshot", Snapshot: sess.Snapshot()})
	flusher.Flush()

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	notify := r.Context().Done()
	log.Info("http stream opened")
	for {
		select {
		case <-notify:
			log.Info("http stream closed")
			return
		case <-keepAlive.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, ok := <-ch:
			if !ok {
				log.Info("http stream closed", "reason", "unsubscribed")
				return
			}
			_ = writeSSEvent(w, streamEvent{Kind: event.Kind, Snapshot: event.Snapshot})
			flusher.Flush()
			if event.Kind == schema.ChangeClosed {
				log.Info("http stream closed", "reason", "session closed")
				return
			}
		}
	}
}

// withSession resolves the cookie session, creating one on first use, and
// carries it on the request context.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logx.WithTransport(pslog.Ctx(r.Context()), "http").With("remote", clientIP(r))
		entry, sess, ok := s.sessions.get(r.Context(), s.sessionToken(r))
		if !ok {
			entry, sess = s.sessions.create(r.Context())
		}
		s.setCookie(w, entry)
		log = log.With("session", entry.id)
		ctx := logx.ContextWithTransport(logx.ContextWithSessionLogger(r.Context(), log, entry.id), "http")
		ctx = sessionctx.WithContext(ctx, sess)
		next(w, r.WithContext(ctx))
	}
}

func requestSession(w http.ResponseWriter, r *http.Request) (*core.Session, bool) {
	sess := sessionctx.FromContext(r.Context())
	if sess == nil {
		writeError(w, http.StatusNotFound, schema.ErrSessionNotFound)
		return nil, false
	}
	return sess, true
}

func (s *Server) setCookie(w http.ResponseWriter, entry session) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    entry.token,
		Path:     s.cookiePath(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  entry.expiresAt,
	})
}

func (s *Server) cookiePath() string {
	if s.basePath == "" {
		return "/"
	}
	return s.basePath + "/"
}

func (s *Server) sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(s.cfg.SessionCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) lookupSession(r *http.Request) schema.SessionID {
	if s == nil || r == nil {
		return ""
	}
	token := s.sessionToken(r)
	if token == "" {
		return ""
	}
	id, _ := s.sessions.peek(token)
	return id
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, schema.ErrInvalidRequest), errors.Is(err, schema.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, schema.ErrSessionNotFound), errors.Is(err, schema.ErrInvalidSession):
		return http.StatusNotFound
	case errors.Is(err, schema.ErrSessionClosed):
		return http.StatusGone
	case errors.Is(err, schema.ErrReentrantDispatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(body io.Reader, target any) error {
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeSSEvent(w io.Writer, event streamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Kind, data)
	return err
}
