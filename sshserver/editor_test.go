package sshserver

import (
	"strings"
	"testing"
)

func collectKeys(t *testing.T, input string) []key {
	t.Helper()
	keys := make(chan key, 64)
	go readKeys(strings.NewReader(input), keys)
	var out []key
	for k := range keys {
		out = append(out, k)
	}
	return out
}

func TestReadKeysLineEndings(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  int
	}{
		{name: "cr", input: "a\r", want: 1},
		{name: "lf", input: "a\n", want: 1},
		{name: "crlf", input: "a\r\n", want: 1},
		{name: "two cr", input: "\r\r", want: 2},
		{name: "cr then text", input: "\rb\n", want: 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			enters := 0
			for _, k := range collectKeys(t, tc.input) {
				if k.kind == keyEnter {
					enters++
				}
			}
			if enters != tc.want {
				t.Fatalf("expected %d enter keys, got %d", tc.want, enters)
			}
		})
	}
}

func TestReadKeysEscapeSequences(t *testing.T) {
	cases := []struct {
		input string
		want  keyKind
	}{
		{input: "\x1b[A", want: keyUp},
		{input: "\x1b[B", want: keyDown},
		{input: "\x1b[C", want: keyRight},
		{input: "\x1b[D", want: keyLeft},
		{input: "\x1b[3~", want: keyDelete},
		{input: "\x1b[1~", want: keyHome},
		{input: "\x1bOF", want: keyEnd},
		{input: "\x1bb", want: keyAltB},
		{input: "\x1bf", want: keyAltF},
		{input: "\x7f", want: keyBackspace},
		{input: "\x04", want: keyCtrlD},
	}
	for _, tc := range cases {
		keys := collectKeys(t, tc.input)
		if len(keys) != 1 {
			t.Fatalf("input %q: expected one key, got %d", tc.input, len(keys))
		}
		if keys[0].kind != tc.want {
			t.Fatalf("input %q: expected kind %v, got %v", tc.input, tc.want, keys[0].kind)
		}
	}
}

func TestReadKeysUnicodeAndTab(t *testing.T) {
	keys := collectKeys(t, "å\tb")
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	if keys[0].r != 'å' || keys[1].r != ' ' || keys[2].r != 'b' {
		t.Fatalf("unexpected runes: %q %q %q", keys[0].r, keys[1].r, keys[2].r)
	}
}

func TestReadKeysDropsUnknownControlBytes(t *testing.T) {
	keys := collectKeys(t, "\x00\x1fx")
	if len(keys) != 1 || keys[0].r != 'x' {
		t.Fatalf("expected only x, got %+v", keys)
	}
}

func TestLineEditorEditing(t *testing.T) {
	var e lineEditor
	for _, r := range "hello world" {
		e.InsertRune(r)
	}
	e.MoveWordLeft()
	if e.cursor != 6 {
		t.Fatalf("expected cursor at 6, got %d", e.cursor)
	}
	e.Backspace()
	if got := e.String(); got != "helloworld" {
		t.Fatalf("unexpected buffer %q", got)
	}
	e.InsertRune('_')
	e.MoveStart()
	e.Delete()
	if got := e.String(); got != "ello_world" {
		t.Fatalf("unexpected buffer %q", got)
	}
	e.MoveEnd()
	e.DeleteWordBackward()
	if got := e.String(); got != "" {
		t.Fatalf("expected empty buffer after deleting the only word, got %q", got)
	}
}

func TestLineEditorKill(t *testing.T) {
	var e lineEditor
	e.SetString("alpha beta")
	e.MoveStart()
	e.MoveWordRight()
	e.KillToEnd()
	if got := e.String(); got != "alpha" {
		t.Fatalf("expected kill to end to keep alpha, got %q", got)
	}
	e.SetString("alpha beta")
	e.MoveStart()
	e.MoveWordRight()
	e.KillToStart()
	if got := e.String(); got != " beta" || e.cursor != 0 {
		t.Fatalf("unexpected kill to start result %q cursor %d", got, e.cursor)
	}
}

func TestLineEditorBoundaries(t *testing.T) {
	var e lineEditor
	e.Backspace()
	e.Delete()
	e.MoveLeft()
	e.MoveRight()
	if e.Len() != 0 || e.cursor != 0 {
		t.Fatalf("expected empty editor, got len=%d cursor=%d", e.Len(), e.cursor)
	}
}
