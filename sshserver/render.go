package sshserver

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"pkt.systems/rollcall/schema"
)

const appTitle = "rollcall"

// frame is everything the terminal shows besides the input line.
type frame struct {
	snapshot  schema.Snapshot
	notice    string
	noticeErr bool
	help      []string
}

// renderFrame lays out title, toggle paragraph, names table, help, notice and
// prompt for a width x height terminal. It returns the lines and the 1-based
// cursor position.
func renderFrame(f frame, prompt, input string, cursor, width, height int, theme tuiTheme) ([]string, int, int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	top := []string{
		renderTitle(len(f.snapshot.Names), width, theme),
		"",
		renderFlag(f.snapshot, width, theme),
		"",
	}
	bottom := make([]string, 0, len(f.help)+1)
	for _, line := range f.help {
		bottom = append(bottom, ansiFgRGB(theme.MetaFG)+trimToWidth(line, width)+ansiReset)
	}
	bottom = append(bottom, renderNotice(f.notice, f.noticeErr, width, theme))

	inputLines, cursorRow, cursorCol := renderInputLines(stylePrompt(prompt, theme), input, cursor, width)
	tableRows := height - len(top) - len(bottom) - len(inputLines)
	lines := make([]string, 0, height)
	lines = append(lines, top...)
	lines = append(lines, renderTable(f.snapshot.Names, width, tableRows, theme)...)
	lines = append(lines, bottom...)
	for len(lines) < height-len(inputLines) {
		lines = append(lines, "")
	}
	cursorRow += len(lines)
	lines = append(lines, inputLines...)
	if len(lines) > height {
		drop := len(lines) - height
		lines = lines[drop:]
		cursorRow -= drop
	}
	return lines, cursorRow, cursorCol
}

func renderTitle(count int, width int, theme tuiTheme) string {
	style := ansiBgRGB(theme.TitleBG) + ansiFgRGB(theme.TitleFG) + ansiBold
	left := " " + appTitle + " "
	right := fmt.Sprintf(" %d %s ", count, plural(count, "name", "names"))
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 0 {
		right = ""
		gap = width - utf8.RuneCountInString(left)
	}
	if gap < 0 {
		gap = 0
	}
	line := trimToWidth(left+strings.Repeat(" ", gap)+right, width)
	return style + line + ansiReset
}

func renderFlag(snap schema.Snapshot, width int, theme tuiTheme) string {
	color := theme.FlagOffFG
	if snap.Flag {
		color = theme.FlagOnFG
	}
	return ansiFgRGB(color) + trimToWidth(snap.FlagText, width) + ansiReset
}

// renderTable draws the Index/Name header and as many rows as fit in rows
// lines. When the list is longer, the newest names stay visible and a
// marker line counts the hidden ones.
func renderTable(names []string, width, rows int, theme tuiTheme) []string {
	if rows <= 0 {
		return nil
	}
	indexWidth := len("Index")
	if n := len(strconv.Itoa(len(names) - 1)); n > indexWidth {
		indexWidth = n
	}
	nameWidth := width - indexWidth - 2
	if nameWidth < 1 {
		nameWidth = 1
	}
	out := make([]string, 0, rows)
	out = append(out, ansiBold+ansiFgRGB(theme.HeaderFG)+trimToWidth(padRight("Index", indexWidth)+"  Name", width)+ansiReset)
	rows--
	if len(names) == 0 {
		if rows > 0 {
			out = append(out, ansiDim+trimToWidth("no names yet; type one and press Enter", width)+ansiReset)
		}
		return out
	}
	start := 0
	if len(names) > rows {
		if rows <= 0 {
			return out
		}
		start = len(names) - rows + 1
		out = append(out, ansiDim+trimToWidth(fmt.Sprintf("... %d earlier", start), width)+ansiReset)
	}
	for i := start; i < len(names); i++ {
		index := ansiFgRGB(theme.IndexFG) + padLeft(strconv.Itoa(i), indexWidth) + ansiReset
		out = append(out, index+"  "+truncateName(sanitizeOutputLine(names[i]), nameWidth))
	}
	return out
}

func renderNotice(notice string, isErr bool, width int, theme tuiTheme) string {
	if notice == "" {
		return ""
	}
	color := theme.MetaFG
	if isErr {
		color = theme.ErrorFG
	}
	return ansiFgRGB(color) + trimToWidth(sanitizeOutputLine(notice), width) + ansiReset
}

func stylePrompt(prompt string, theme tuiTheme) string {
	if strings.HasPrefix(prompt, ">") {
		return ansiBold + ansiFgRGB(theme.PromptFG) + ">" + ansiReset + strings.TrimPrefix(prompt, ">")
	}
	return prompt
}

// renderInputLines wraps prefix+input to width. Continuation lines are
// indented to the prefix width.
func renderInputLines(prefix, input string, cursor, width int) ([]string, int, int) {
	runes := []rune(input)
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}
	prefixWidth := visibleWidth(prefix)
	if width <= 0 {
		width = prefixWidth + len(runes) + 1
	}
	if prefixWidth >= width {
		prefix = trimANSIToWidth(prefix, width-1)
		prefixWidth = visibleWidth(prefix)
	}
	avail := width - prefixWidth
	if avail < 1 {
		avail = 1
	}
	indent := strings.Repeat(" ", prefixWidth)
	var lines []string
	for start := 0; start < len(runes) || len(lines) == 0; start += avail {
		end := start + avail
		if end > len(runes) {
			end = len(runes)
		}
		lead := prefix
		if start > 0 {
			lead = indent
		}
		lines = append(lines, lead+string(runes[start:end]))
	}
	row := cursor / avail
	col := cursor % avail
	if row >= len(lines) {
		// cursor sits just past a full last line
		lines = append(lines, indent)
	}
	cursorCol := prefixWidth + col + 1
	if cursorCol > width {
		cursorCol = width
	}
	return lines, row + 1, cursorCol
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func padLeft(value string, width int) string {
	if n := utf8.RuneCountInString(value); n < width {
		return strings.Repeat(" ", width-n) + value
	}
	return value
}

func padRight(value string, width int) string {
	if n := utf8.RuneCountInString(value); n < width {
		return value + strings.Repeat(" ", width-n)
	}
	return value
}

func trimToWidth(value string, width int) string {
	if width <= 0 {
		return ""
	}
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width])
}

func truncateName(name string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	if max == 1 {
		return "$"
	}
	return string(append(runes[:max-1], '$'))
}

// sanitizeOutputLine strips escape sequences and control characters so user
// input cannot drive the terminal.
func sanitizeOutputLine(text string) string {
	if text == "" {
		return ""
	}
	var b strings.Builder
	for i := 0; i < len(text); {
		ch := text[i]
		if ch == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			i++
			continue
		}
		if r == '\t' {
			b.WriteString(" ")
			i += size
			continue
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			i += size
			continue
		}
		b.WriteRune(r)
		i += size
	}
	return b.String()
}

func skipEscape(text string, i int) int {
	if i >= len(text) {
		return i
	}
	switch text[i] {
	case '[':
		return skipCSI(text, i+1)
	case ']':
		return skipOSC(text, i+1)
	default:
		return i + 1
	}
}

func skipCSI(text string, i int) int {
	for i < len(text) {
		b := text[i]
		if b >= 0x40 && b <= 0x7e {
			return i + 1
		}
		i++
	}
	return i
}

func skipOSC(text string, i int) int {
	for i < len(text) {
		switch text[i] {
		case 0x07:
			return i + 1
		case 0x1b:
			if i+1 < len(text) && text[i+1] == '\\' {
				return i + 2
			}
		}
		i++
	}
	return i
}

func visibleWidth(text string) int {
	width := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			i = skipEscape(text, i+1)
			continue
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		i += size
		width++
	}
	return width
}

func trimANSIToWidth(text string, width int) string {
	if width <= 0 {
		return ""
	}
	var b strings.Builder
	visible := 0
	for i := 0; i < len(text); {
		if text[i] == 0x1b {
			start := i
			i = skipEscape(text, i+1)
			b.WriteString(text[start:i])
			continue
		}
		if visible >= width {
			break
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		if size == 0 {
			break
		}
		b.WriteRune(r)
		i += size
		visible++
	}
	return b.String()
}
