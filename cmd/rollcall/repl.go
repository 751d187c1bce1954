package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/internal/command"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/internal/repl"
)

func newReplCmd() *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Run a local session on stdin and stdout",
		Long:  "Run a local session on stdin and stdout. Plain lines add names; /help lists commands.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := pslog.Ctx(ctx)
			registry := core.NewRegistry(core.RegistryDeps{Logger: logger})
			sess := registry.Create(ctx)
			defer registry.Close(ctx, sess.ID())
			ctx = logx.ContextWithTransport(logx.ContextWithSessionLogger(ctx, logger, sess.ID()), "repl")

			in := cmd.InOrStdin()
			if !quiet && in == os.Stdin && !term.IsTerminal(int(os.Stdin.Fd())) {
				quiet = true
			}
			handler := command.NewHandler(command.HandlerConfig{})
			return repl.Run(ctx, sess, handler, in, cmd.OutOrStdout(), repl.Options{Quiet: quiet})
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the prompt and initial view")
	return cmd
}
