package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/internal/version"
	"pkt.systems/rollcall/schema"
)

// Session is the subset of core.Session the handler drives.
type Session interface {
	ID() schema.SessionID
	AddName(ctx context.Context, input string) (schema.Snapshot, bool, error)
	RemoveName(ctx context.Context, index int) (schema.Snapshot, bool, error)
	Flip(ctx context.Context) (schema.Snapshot, error)
	Snapshot() schema.Snapshot
}

var _ Session = (*core.Session)(nil)

// Result tells the terminal what to show after a line was handled.
type Result struct {
	Notice string
	Help   []string
	Quit   bool
}

// HandlerConfig configures slash command behavior.
type HandlerConfig struct {
	DisableAuditLogging bool
}

// Handler turns terminal input lines into session operations.
type Handler struct {
	cfg HandlerConfig
}

// NewHandler constructs a command handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{cfg: cfg}
}

// Handle runs one input line against sess. Lines that do not start with "/"
// go through the add-name gate; a leading "//" adds the rest of the line
// starting with a single "/".
func (h *Handler) Handle(ctx context.Context, sess Session, input string) (Result, error) {
	if ctx == nil {
		return Result{}, errors.New("missing context")
	}
	if sess == nil {
		return Result{}, schema.ErrSessionNotFound
	}
	log := logx.WithSession(ctx, sess.ID()).With("input_len", len(input))
	cmd, ok := Parse(input)
	if !ok {
		snap, added, err := sess.AddName(ctx, unescapeName(input))
		if err != nil {
			return Result{}, err
		}
		if !added {
			return Result{}, nil
		}
		return Result{Notice: fmt.Sprintf("added #%d", len(snap.Names)-1)}, nil
	}
	if !h.cfg.DisableAuditLogging {
		log.Debug("audit command", "command_type", "slash", "command", strings.TrimSpace(input))
	}
	log = log.With("command", cmd.Name, "args", len(cmd.Args))
	log.Info("command slash request")
	switch cmd.Name {
	case "":
		log.Warn("command slash rejected", "reason", "empty")
		return Result{}, fmt.Errorf("%w: /", schema.ErrUnknownCommand)
	case "toggle", "t":
		return h.handleToggle(ctx, sess)
	case "rm", "del":
		return h.handleRemove(ctx, sess, cmd)
	case "help", "h", "?":
		return Result{Help: HelpLines()}, nil
	case "quit", "exit", "q":
		return Result{Quit: true}, nil
	case "version":
		info := version.Get()
		return Result{Notice: fmt.Sprintf("%s %s (%s)", info.Module, info.Version, info.GoVersion)}, nil
	default:
		log.Warn("command slash rejected", "reason", "unknown")
		return Result{}, fmt.Errorf("%w: /%s", schema.ErrUnknownCommand, cmd.Name)
	}
}

func (h *Handler) handleToggle(ctx context.Context, sess Session) (Result, error) {
	snap, err := sess.Flip(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Notice: fmt.Sprintf("toggle is now %t", snap.Flag)}, nil
}

func (h *Handler) handleRemove(ctx context.Context, sess Session, cmd Command) (Result, error) {
	if len(cmd.Args) != 1 {
		return Result{}, fmt.Errorf("%w: /rm <index>", schema.ErrUsage)
	}
	index, err := schema.ParseIndex(cmd.Args[0])
	if err != nil {
		return Result{}, fmt.Errorf("%w: /rm <index>: %q is not a number", schema.ErrUsage, cmd.Args[0])
	}
	_, removed, err := sess.RemoveName(ctx, index)
	if err != nil {
		return Result{}, err
	}
	if !removed {
		return Result{Notice: fmt.Sprintf("no name at index %d", index)}, nil
	}
	return Result{Notice: fmt.Sprintf("removed #%d", index)}, nil
}

// HelpLines returns the command reference shown by /help.
func HelpLines() []string {
	return []string{
		"Type a name and press Enter to add it to the list.",
		"Start a name with // to add one beginning with /, e.g. //dev adds /dev.",
		"/toggle, /t       flip the boolean paragraph",
		"/rm <index>       remove the name at index (alias /del)",
		"/version          show version information",
		"/help             show this help",
		"/quit             leave (Ctrl-D on an empty line also quits)",
	}
}

// unescapeName drops one slash from a line escaped with "//".
func unescapeName(input string) string {
	trimmed := strings.TrimLeft(input, " \t")
	if strings.HasPrefix(trimmed, "//") {
		return trimmed[1:]
	}
	return input
}
