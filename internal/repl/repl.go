// Package repl runs the name-list demo as a line-oriented prompt, for local
// terminals and SSH sessions without a pty.
package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"pkt.systems/rollcall/internal/command"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/schema"
)

// LineHandler executes one input line against a session.
type LineHandler interface {
	Handle(ctx context.Context, sess command.Session, input string) (command.Result, error)
}

// Options tweaks prompt output.
type Options struct {
	Prompt string
	// Quiet suppresses the prompt and the initial view, for piped input.
	Quiet bool
}

// Run reads lines from in until EOF, /quit or ctx cancellation.
func Run(ctx context.Context, sess command.Session, handler LineHandler, in io.Reader, out io.Writer, opts Options) error {
	if opts.Prompt == "" {
		opts.Prompt = "> "
	}
	log := logx.WithSession(ctx, sess.ID())
	if !opts.Quiet {
		if err := WriteView(out, sess.Snapshot()); err != nil {
			return err
		}
	}
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		if !opts.Quiet {
			_, _ = io.WriteString(out, opts.Prompt)
		}
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			before := sess.Snapshot()
			res, err := handler.Handle(ctx, sess, line)
			if err != nil {
				log.Debug("repl line failed", "err", err)
				fmt.Fprintf(out, "error: %v\n", err)
				continue
			}
			for _, help := range res.Help {
				fmt.Fprintln(out, help)
			}
			if res.Quit {
				return nil
			}
			after := sess.Snapshot()
			if res.Notice != "" {
				fmt.Fprintln(out, res.Notice)
			}
			if changed(before, after) {
				if err := WriteView(out, after); err != nil {
					return err
				}
			}
		}
	}
}

// WriteView prints the toggle paragraph and the Index/Name table.
func WriteView(w io.Writer, snap schema.Snapshot) error {
	var b strings.Builder
	b.WriteString(snap.FlagText)
	b.WriteString("\n")
	if len(snap.Names) == 0 {
		b.WriteString("(no names yet)\n")
		_, err := io.WriteString(w, b.String())
		return err
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Index\tName")
	for i, name := range snap.Names {
		fmt.Fprintf(tw, "%d\t%s\n", i, printable(name))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func changed(a, b schema.Snapshot) bool {
	if a.Flag != b.Flag || len(a.Names) != len(b.Names) {
		return true
	}
	for i := range a.Names {
		if a.Names[i] != b.Names[i] {
			return true
		}
	}
	return false
}

func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
