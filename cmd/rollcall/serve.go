package main

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/pslog"
	"pkt.systems/rollcall"
	"pkt.systems/rollcall/httpapi"
	"pkt.systems/rollcall/internal/appconfig"
	"pkt.systems/rollcall/sshserver"
)

//go:embed assets/banner.txt
var serveBanner string

func newServeCmd() *cobra.Command {
	var cfgPath string
	var disableAuditTrails bool
	var noBanner bool
	var httpOnly bool
	var sshOnly bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the SSH and HTTP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logMode := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_MODE")))
			showBanner := !noBanner && logMode != "json" && logMode != "structured"
			if showBanner && serveBanner != "" {
				_, _ = fmt.Fprint(cmd.OutOrStdout(), serveBanner)
			}
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			if httpOnly && sshOnly {
				return fmt.Errorf("--http-only and --ssh-only are mutually exclusive")
			}
			if httpOnly {
				cfg.HTTP.Enabled, cfg.SSH.Enabled = true, false
			}
			if sshOnly {
				cfg.HTTP.Enabled, cfg.SSH.Enabled = false, true
			}

			serverCfg := toServerConfig(cfg)
			serverCfg.DisableAuditLogging = disableAuditTrails
			server, err := rollcall.New(serverCfg, rollcall.ServerDeps{Logger: logger}, serverOptions(cfg)...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Stop(stopCtx); err != nil {
					logger.Warn("server stop failed", "err", err)
				}
			}()
			if err := server.Start(ctx); err != nil {
				return err
			}
			return server.Wait()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&disableAuditTrails, "disable-audit-trails", false, "disable audit trail logging for commands")
	cmd.Flags().BoolVar(&noBanner, "no-banner", false, "disable startup banner")
	cmd.Flags().BoolVar(&httpOnly, "http-only", false, "serve HTTP only")
	cmd.Flags().BoolVar(&sshOnly, "ssh-only", false, "serve SSH only")
	return cmd
}

func serverOptions(cfg appconfig.Config) []rollcall.ServerOption {
	var opts []rollcall.ServerOption
	if cfg.HTTP.Enabled {
		opts = append(opts, rollcall.WithHTTP())
	}
	if cfg.SSH.Enabled {
		opts = append(opts, rollcall.WithSSH())
	}
	return opts
}

func toServerConfig(cfg appconfig.Config) rollcall.ServerConfig {
	return rollcall.ServerConfig{
		HTTP:        toHTTPConfig(cfg),
		SSH:         toSSHConfig(cfg.SSH),
		Auth:        rollcall.AuthConfig{AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath, TOTPSecret: cfg.SSH.TOTPSecret},
		EventBuffer: cfg.Events.Buffer,
		Metrics:     cfg.Metrics.Enabled,
	}
}

func toHTTPConfig(cfg appconfig.Config) httpapi.Config {
	return httpapi.Config{
		Addr:            cfg.HTTP.Addr,
		SessionCookie:   cfg.HTTP.SessionCookie,
		SessionTTLHours: cfg.HTTP.SessionTTLHours,
		BasePath:        cfg.HTTP.BasePath,
		MetricsPath:     cfg.Metrics.Path,
	}
}

func toSSHConfig(cfg appconfig.SSHConfig) sshserver.Config {
	return sshserver.Config{
		Addr:        cfg.Addr,
		HostKeyPath: cfg.HostKeyPath,
		Prompt:      "> ",
		Theme:       cfg.Theme,
		IdleTimeout: time.Duration(cfg.IdleTimeoutMinutes) * time.Minute,
	}
}
