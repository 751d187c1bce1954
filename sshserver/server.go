package sshserver

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/internal/command"
	"pkt.systems/rollcall/internal/eventbus"
	"pkt.systems/rollcall/internal/logx"
	"pkt.systems/rollcall/internal/repl"
	"pkt.systems/rollcall/internal/sessionctx"
)

// CommandHandler runs one input line against a session.
type CommandHandler interface {
	Handle(ctx context.Context, sess command.Session, input string) (command.Result, error)
}

// LoginAuthorizer decides whether a client may log in.
type LoginAuthorizer interface {
	AllowKey(key ssh.PublicKey) bool
	RequiresTOTP() bool
	VerifyTOTP(code string) error
}

// Config defines SSH server settings.
type Config struct {
	Addr        string
	HostKeyPath string
	Prompt      string
	Theme       string
	IdleTimeout time.Duration
}

// Server exposes the name list over SSH. Every connection gets its own session.
type Server struct {
	Config
	Listener net.Listener
	Registry *core.Registry
	Handler  CommandHandler
	Auth     LoginAuthorizer
	EventBus *eventbus.Bus
	logger   pslog.Logger
}

type authContextKey string

const loginPubKeyOK authContextKey = "login-pubkey-ok"

// ListenAndServe starts the SSH server and shuts down on context cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Registry == nil {
		return errors.New("session registry is required for SSH")
	}

	signer, created, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}
	log := s.logger.With("fingerprint", ssh.FingerprintSHA256(signer.PublicKey()))
	if created {
		log.Info("ssh host key generated", "path", s.HostKeyPath)
	}

	server := &gliderssh.Server{
		Addr:                       s.Addr,
		Handler:                    s.handleSession,
		PublicKeyHandler:           s.handlePublicKey,
		KeyboardInteractiveHandler: s.handleKeyboardInteractive,
		IdleTimeout:                s.IdleTimeout,
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()
	log.Info("ssh server listening", "addr", s.Addr, "totp", s.Auth != nil && s.Auth.RequiresTOTP())

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		if errors.Is(err, gliderssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// handlePublicKey accepts the key outright unless a TOTP code is also
// required, in which case it marks the context and defers to
// keyboard-interactive auth.
func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", ssh.FingerprintSHA256(key))
	if sshSession := ctx.SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	if s.Auth != nil && !s.Auth.AllowKey(key) {
		log.Warn("ssh pubkey rejected", "reason", "no matching key")
		return false
	}
	if s.Auth != nil && s.Auth.RequiresTOTP() {
		ctx.SetValue(loginPubKeyOK, true)
		log.Info("ssh pubkey accepted", "next", "totp")
		return false
	}
	log.Info("ssh pubkey accepted")
	return true
}

func (s *Server) handleKeyboardInteractive(ctx gliderssh.Context, challenger ssh.KeyboardInteractiveChallenge) bool {
	if ctx.Value(loginPubKeyOK) != true || s.Auth == nil {
		return false
	}
	log := s.logger.With("user", ctx.User(), "remote", remoteAddr(ctx))
	if sshSession := ctx.SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	answers, err := challenger(ctx.User(), "", []string{"Verification code: "}, []bool{false})
	if err != nil {
		log.Warn("ssh totp rejected", "reason", "challenge failed", "err", err)
		return false
	}
	if len(answers) != 1 {
		log.Warn("ssh totp rejected", "reason", "invalid answer count", "count", len(answers))
		return false
	}
	if err := s.Auth.VerifyTOTP(answers[0]); err != nil {
		log.Warn("ssh totp rejected", "reason", "invalid code", "err", err)
		return false
	}
	log.Info("ssh totp accepted")
	return true
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := logx.WithRemote(logx.WithTransport(s.logger, "ssh"), sess.RemoteAddr().String())
	if user := sess.User(); user != "" {
		log = log.With("user", user)
	}
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx := logx.ContextWithTransport(pslog.ContextWithLogger(sess.Context(), log), "ssh")

	session := s.Registry.Create(ctx)
	defer s.Registry.Close(ctx, session.ID())
	ctx = logx.ContextWithSessionLogger(ctx, log.With("session", session.ID()), session.ID())
	ctx = sessionctx.WithContext(ctx, session)

	var events <-chan eventbus.Event
	if s.EventBus != nil {
		var unsubscribe func()
		events, unsubscribe = s.EventBus.Subscribe(session.ID())
		defer unsubscribe()
	}

	if args := sess.Command(); len(args) > 0 {
		log.Info("ssh session opened", "mode", "exec")
		code := runExec(ctx, s.Handler, session, strings.Join(args, " "), sess, sess.Stderr())
		_ = sess.Exit(code)
		log.Info("ssh session closed", "mode", "exec", "exit", code)
		return
	}

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session opened", "mode", "line")
		err := repl.Run(ctx, session, s.Handler, sess, sess, repl.Options{Prompt: s.Prompt})
		if err != nil && !errors.Is(err, io.EOF) {
			log.Warn("ssh line session failed", "err", err)
		}
		log.Info("ssh session closed", "mode", "line")
		return
	}

	log.Info("ssh session opened", "mode", "tui", "term", pty.Term)
	ui := newTerminalSession(sess, session, s.Handler, s.Prompt, s.Theme, events)
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	_ = ui.Run(ctx, winCh)
	log.Info("ssh session closed", "mode", "tui", "term", pty.Term)
}
