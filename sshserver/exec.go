package sshserver

import (
	"context"
	"fmt"
	"io"

	"pkt.systems/rollcall/internal/command"
)

// runExec handles the command line of `ssh host <line>` once and returns the
// exit status: notices and help go to stdout, errors to stderr.
func runExec(ctx context.Context, handler CommandHandler, sess command.Session, line string, stdout, stderr io.Writer) int {
	res, err := handler.Handle(ctx, sess, line)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	for _, help := range res.Help {
		fmt.Fprintln(stdout, help)
	}
	if res.Notice != "" {
		fmt.Fprintln(stdout, res.Notice)
	}
	return 0
}
