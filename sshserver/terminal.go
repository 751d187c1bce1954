package sshserver

import (
	"context"
	"errors"
	"io"
	"strings"

	gliderssh "github.com/gliderlabs/ssh"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/internal/command"
	"pkt.systems/rollcall/internal/eventbus"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/schema"
)

// terminalIO is the part of an SSH channel the UI needs.
type terminalIO interface {
	io.ReadWriter
	Exit(code int) error
}

type terminalSession struct {
	io      terminalIO
	session command.Session
	handler CommandHandler
	prompt  string
	theme   tuiTheme
	screen  *screen
	ctx     context.Context
	events  <-chan eventbus.Event

	width  int
	height int

	editor    lineEditor
	history   []string
	histIndex int
	snapshot  schema.Snapshot
	notice    string
	noticeErr bool
	help      []string
	dirty     bool
}

func newTerminalSession(rw terminalIO, session command.Session, handler CommandHandler, prompt string, theme string, events <-chan eventbus.Event) *terminalSession {
	if prompt == "" {
		prompt = "> "
	}
	return &terminalSession{
		io:        rw,
		session:   session,
		handler:   handler,
		prompt:    prompt,
		theme:     themeForName(theme),
		screen:    newScreen(rw),
		events:    events,
		histIndex: -1,
	}
}

func (t *terminalSession) log() pslog.Logger {
	ctx := t.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return logx.WithSession(ctx, t.session.ID())
}

func (t *terminalSession) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	t.width = width
	t.height = height
}

// Run drives the UI until the user quits, the channel closes, the session is
// closed elsewhere, or ctx is done.
func (t *terminalSession) Run(ctx context.Context, winCh <-chan gliderssh.Window) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx = ctx
	t.screen.EnterAltScreen()
	defer t.screen.ExitAltScreen()

	t.snapshot = t.session.Snapshot()
	t.render()
	t.log().Info("tui session start", "width", t.width, "height", t.height)

	keys := make(chan key, 16)
	go readKeys(t.io, keys)

	events := t.events
	for {
		select {
		case <-ctx.Done():
			return nil
		case k, ok := <-keys:
			if !ok {
				return nil
			}
			if t.handleKey(k) {
				return nil
			}
		case win, ok := <-winCh:
			if ok {
				t.SetSize(win.Width, win.Height)
				t.dirty = true
				t.log().Debug("tui resize", "width", t.width, "height", t.height)
			}
		case ev, ok := <-events:
			if !ok {
				events = nil
				break
			}
			if t.handleEvent(ev) {
				return nil
			}
		}

		if t.dirty {
			t.render()
			t.dirty = false
		}
	}
}

// handleEvent applies a change event. It reports true when the session was
// closed and the UI should end.
func (t *terminalSession) handleEvent(ev eventbus.Event) bool {
	if ev.Snapshot.Session != t.session.ID() {
		return false
	}
	if ev.Kind == schema.ChangeClosed {
		t.log().Info("tui exit", "reason", "session closed")
		_ = t.io.Exit(0)
		return true
	}
	t.snapshot = ev.Snapshot
	t.dirty = true
	return false
}

func (t *terminalSession) handleKey(k key) bool {
	switch k.kind {
	case keyCtrlD:
		if t.editor.Len() == 0 {
			t.log().Info("tui exit", "reason", "ctrl-d")
			_ = t.io.Exit(0)
			return true
		}
		t.editor.Delete()
	case keyCtrlC:
		t.editor.Clear()
		t.histIndex = -1
		t.setNotice("", false)
	case keyCtrlL:
		t.help = nil
		t.setNotice("", false)
	case keyEnter:
		if t.handleEnter() {
			return true
		}
	case keyRune:
		t.editor.InsertRune(k.r)
	case keyBackspace:
		t.editor.Backspace()
	case keyDelete:
		t.editor.Delete()
	case keyLeft:
		t.editor.MoveLeft()
	case keyRight:
		t.editor.MoveRight()
	case keyHome:
		t.editor.MoveStart()
	case keyEnd:
		t.editor.MoveEnd()
	case keyAltB:
		t.editor.MoveWordLeft()
	case keyAltF:
		t.editor.MoveWordRight()
	case keyCtrlW:
		t.editor.DeleteWordBackward()
	case keyCtrlU:
		t.editor.KillToStart()
	case keyCtrlK:
		t.editor.KillToEnd()
	case keyUp:
		t.historyUp()
	case keyDown:
		t.historyDown()
	}
	t.dirty = true
	return false
}

func (t *terminalSession) handleEnter() bool {
	raw := t.editor.String()
	t.editor.Clear()
	t.histIndex = -1
	t.help = nil
	t.setNotice("", false)
	if strings.TrimSpace(raw) != "" {
		t.history = append(t.history, raw)
	}
	if t.handler == nil {
		return false
	}
	res, err := t.handler.Handle(t.ctx, t.session, raw)
	if err != nil {
		t.log().Debug("tui command failed", "err", err)
		t.setNotice(err.Error(), true)
		if errors.Is(err, schema.ErrSessionClosed) {
			_ = t.io.Exit(1)
			return true
		}
		return false
	}
	if res.Quit {
		t.log().Info("tui exit", "reason", "command")
		_ = t.io.Exit(0)
		return true
	}
	t.help = res.Help
	t.setNotice(res.Notice, false)
	t.snapshot = t.session.Snapshot()
	return false
}

func (t *terminalSession) historyUp() {
	if len(t.history) == 0 {
		return
	}
	switch {
	case t.histIndex < 0:
		t.histIndex = len(t.history) - 1
	case t.histIndex > 0:
		t.histIndex--
	}
	t.editor.SetString(t.history[t.histIndex])
}

func (t *terminalSession) historyDown() {
	if t.histIndex < 0 {
		return
	}
	if t.histIndex >= len(t.history)-1 {
		t.histIndex = -1
		t.editor.Clear()
		return
	}
	t.histIndex++
	t.editor.SetString(t.history[t.histIndex])
}

func (t *terminalSession) setNotice(message string, isErr bool) {
	t.notice = message
	t.noticeErr = isErr
}

func (t *terminalSession) render() {
	f := frame{
		snapshot:  t.snapshot,
		notice:    t.notice,
		noticeErr: t.noticeErr,
		help:      t.help,
	}
	lines, row, col := renderFrame(f, t.prompt, t.editor.String(), t.editor.cursor, t.width, t.height, t.theme)
	if err := t.screen.Render(lines, row, col); err != nil {
		t.log().Warn("tui render failed", "err", err)
	}
}
