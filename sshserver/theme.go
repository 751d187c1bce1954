package sshserver

import "strconv"

type rgb struct {
	r int
	g int
	b int
}

type tuiTheme struct {
	Name      string
	TitleBG   rgb
	TitleFG   rgb
	FlagOnFG  rgb
	FlagOffFG rgb
	HeaderFG  rgb
	IndexFG   rgb
	ErrorFG   rgb
	MetaFG    rgb
	PromptFG  rgb
}

const (
	ansiReset = "\x1b[0m"
	ansiBold  = "\x1b[1m"
	ansiDim   = "\x1b[2m"
)

// DefaultTheme is used when no theme or an unknown theme is configured.
const DefaultTheme = "outrun"

var tuiThemes = map[string]tuiTheme{
	"outrun": {
		Name:      "outrun",
		TitleBG:   rgb{r: 32, g: 8, b: 56},
		TitleFG:   rgb{r: 0, g: 229, b: 255},
		FlagOnFG:  rgb{r: 112, g: 214, b: 255},
		FlagOffFG: rgb{r: 255, g: 91, b: 189},
		HeaderFG:  rgb{r: 240, g: 241, b: 255},
		IndexFG:   rgb{r: 110, g: 136, b: 255},
		ErrorFG:   rgb{r: 255, g: 107, b: 107},
		MetaFG:    rgb{r: 154, g: 163, b: 178},
		PromptFG:  rgb{r: 255, g: 255, b: 255},
	},
	"gruvbox": {
		Name:      "gruvbox",
		TitleBG:   rgb{r: 60, g: 56, b: 54},
		TitleFG:   rgb{r: 250, g: 189, b: 47},
		FlagOnFG:  rgb{r: 184, g: 187, b: 38},
		FlagOffFG: rgb{r: 214, g: 93, b: 14},
		HeaderFG:  rgb{r: 235, g: 219, b: 178},
		IndexFG:   rgb{r: 131, g: 165, b: 152},
		ErrorFG:   rgb{r: 251, g: 73, b: 52},
		MetaFG:    rgb{r: 146, g: 131, b: 116},
		PromptFG:  rgb{r: 255, g: 255, b: 255},
	},
	"tokyo-midnight": {
		Name:      "tokyo-midnight",
		TitleBG:   rgb{r: 26, g: 27, b: 38},
		TitleFG:   rgb{r: 122, g: 162, b: 247},
		FlagOnFG:  rgb{r: 158, g: 206, b: 106},
		FlagOffFG: rgb{r: 187, g: 154, b: 247},
		HeaderFG:  rgb{r: 192, g: 202, b: 245},
		IndexFG:   rgb{r: 125, g: 207, b: 255},
		ErrorFG:   rgb{r: 247, g: 118, b: 142},
		MetaFG:    rgb{r: 127, g: 133, b: 163},
		PromptFG:  rgb{r: 255, g: 255, b: 255},
	},
}

func themeForName(name string) tuiTheme {
	if theme, ok := tuiThemes[name]; ok {
		return theme
	}
	return tuiThemes[DefaultTheme]
}

// ValidTheme reports whether name is a known theme.
func ValidTheme(name string) bool {
	_, ok := tuiThemes[name]
	return ok
}

func ansiFgRGB(c rgb) string {
	return "\x1b[38;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}

func ansiBgRGB(c rgb) string {
	return "\x1b[48;2;" + strconv.Itoa(c.r) + ";" + strconv.Itoa(c.g) + ";" + strconv.Itoa(c.b) + "m"
}
