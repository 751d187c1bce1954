package sshserver

import (
	"bufio"
	"io"
	"unicode"
	"unicode/utf8"
)

type keyKind int

const (
	keyRune keyKind = iota
	keyEnter
	keyBackspace
	keyDelete
	keyLeft
	keyRight
	keyHome
	keyEnd
	keyCtrlD
	keyCtrlC
	keyCtrlL
	keyCtrlU
	keyCtrlK
	keyCtrlW
	keyAltB
	keyAltF
	keyUp
	keyDown
)

type key struct {
	kind keyKind
	r    rune
}

var controlKeys = map[byte]keyKind{
	0x7f: keyBackspace,
	0x08: keyBackspace,
	0x01: keyHome,
	0x05: keyEnd,
	0x02: keyLeft,
	0x06: keyRight,
	0x04: keyCtrlD,
	0x03: keyCtrlC,
	0x0c: keyCtrlL,
	0x15: keyCtrlU,
	0x0b: keyCtrlK,
	0x17: keyCtrlW,
}

var csiKeys = map[string]keyKind{
	"A":  keyUp,
	"B":  keyDown,
	"C":  keyRight,
	"D":  keyLeft,
	"H":  keyHome,
	"F":  keyEnd,
	"1~": keyHome,
	"4~": keyEnd,
	"3~": keyDelete,
}

// readKeys decodes terminal input into keys until r fails. CR, LF and CRLF
// all produce a single keyEnter.
func readKeys(r io.Reader, out chan<- key) {
	defer close(out)
	br := bufio.NewReader(r)
	lastWasCR := false
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		if lastWasCR {
			lastWasCR = false
			if b == '\n' {
				continue
			}
		}
		if kind, ok := controlKeys[b]; ok {
			out <- key{kind: kind}
			continue
		}
		switch {
		case b == 0x1b:
			readEscape(br, out)
		case b == '\r':
			out <- key{kind: keyEnter}
			lastWasCR = true
		case b == '\n':
			out <- key{kind: keyEnter}
		case b == '\t':
			out <- key{kind: keyRune, r: ' '}
		case b < 0x20:
			// other control bytes are dropped
		case b < utf8.RuneSelf:
			out <- key{kind: keyRune, r: rune(b)}
		default:
			_ = br.UnreadByte()
			rn, _, err := br.ReadRune()
			if err != nil {
				return
			}
			out <- key{kind: keyRune, r: rn}
		}
	}
}

func readEscape(br *bufio.Reader, out chan<- key) {
	b, err := br.ReadByte()
	if err != nil {
		return
	}
	switch b {
	case '[':
		readCSI(br, out)
	case 'O':
		if b, err = br.ReadByte(); err != nil {
			return
		}
		if kind, ok := csiKeys[string(b)]; ok {
			out <- key{kind: kind}
		}
	case 'b', 'B':
		out <- key{kind: keyAltB}
	case 'f', 'F':
		out <- key{kind: keyAltF}
	}
}

func readCSI(br *bufio.Reader, out chan<- key) {
	seq := make([]byte, 0, 8)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		seq = append(seq, b)
		if b == '~' || unicode.IsLetter(rune(b)) {
			break
		}
		if len(seq) > 8 {
			return
		}
	}
	if kind, ok := csiKeys[string(seq)]; ok {
		out <- key{kind: kind}
	}
}

// lineEditor is a single-line input buffer with a rune cursor.
type lineEditor struct {
	buf    []rune
	cursor int
}

func (e *lineEditor) String() string {
	return string(e.buf)
}

func (e *lineEditor) Len() int {
	return len(e.buf)
}

func (e *lineEditor) Clear() {
	e.buf = nil
	e.cursor = 0
}

func (e *lineEditor) SetString(value string) {
	e.buf = []rune(value)
	e.cursor = len(e.buf)
}

func (e *lineEditor) InsertRune(r rune) {
	e.clampCursor()
	e.buf = append(e.buf[:e.cursor], append([]rune{r}, e.buf[e.cursor:]...)...)
	e.cursor++
}

func (e *lineEditor) Backspace() {
	if e.cursor <= 0 {
		return
	}
	e.buf = append(e.buf[:e.cursor-1], e.buf[e.cursor:]...)
	e.cursor--
}

func (e *lineEditor) Delete() {
	if e.cursor < 0 || e.cursor >= len(e.buf) {
		return
	}
	e.buf = append(e.buf[:e.cursor], e.buf[e.cursor+1:]...)
}

func (e *lineEditor) MoveLeft() {
	if e.cursor > 0 {
		e.cursor--
	}
}

func (e *lineEditor) MoveRight() {
	if e.cursor < len(e.buf) {
		e.cursor++
	}
}

func (e *lineEditor) MoveStart() {
	e.cursor = 0
}

func (e *lineEditor) MoveEnd() {
	e.cursor = len(e.buf)
}

func (e *lineEditor) MoveWordLeft() {
	e.cursor = e.wordStart()
}

func (e *lineEditor) MoveWordRight() {
	i := e.cursor
	for i < len(e.buf) && isSpace(e.buf[i]) {
		i++
	}
	for i < len(e.buf) && !isSpace(e.buf[i]) {
		i++
	}
	e.cursor = i
}

func (e *lineEditor) DeleteWordBackward() {
	start := e.wordStart()
	e.buf = append(e.buf[:start], e.buf[e.cursor:]...)
	e.cursor = start
}

func (e *lineEditor) KillToStart() {
	e.buf = append([]rune(nil), e.buf[e.cursor:]...)
	e.cursor = 0
}

func (e *lineEditor) KillToEnd() {
	e.buf = e.buf[:e.cursor]
}

func (e *lineEditor) wordStart() int {
	e.clampCursor()
	i := e.cursor
	for i > 0 && isSpace(e.buf[i-1]) {
		i--
	}
	for i > 0 && !isSpace(e.buf[i-1]) {
		i--
	}
	return i
}

func (e *lineEditor) clampCursor() {
	if e.cursor < 0 {
		e.cursor = 0
	}
	if e.cursor > len(e.buf) {
		e.cursor = len(e.buf)
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t'
}
