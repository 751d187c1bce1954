package rollcall

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/rollcall/core"
	"pkt.systems/rollcall/httpapi"
	"pkt.systems/rollcall/internal/auth"
	"pkt.systems/rollcall/internal/command"
	"pkt.systems/rollcall/internal/eventbus"
	"pkt.systems/rollcall/internal/metrics"
	"pkt.systems/rollcall/sshserver"
)

const sweepInterval = time.Minute

// Server composes the HTTP and SSH front ends around one session registry.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	HTTP                httpapi.Config
	SSH                 sshserver.Config
	Auth                AuthConfig
	EventBuffer         int
	Metrics             bool
	DisableAuditLogging bool
}

// AuthConfig defines SSH login settings.
type AuthConfig struct {
	AuthorizedKeysPath string
	TOTPSecret         string
}

// ServerDeps captures optional dependencies. Listeners override the
// configured addresses.
type ServerDeps struct {
	Logger       pslog.Logger
	EventSink    core.EventSink
	HTTPListener net.Listener
	SSHListener  net.Listener
}

// ServerOption toggles compositor components.
type ServerOption func(*serverOptions)

type serverOptions struct {
	enableHTTP bool
	enableSSH  bool
}

// WithHTTP enables the HTTP API and page.
func WithHTTP() ServerOption {
	return func(o *serverOptions) { o.enableHTTP = true }
}

// WithSSH enables the SSH server.
func WithSSH() ServerOption {
	return func(o *serverOptions) { o.enableSSH = true }
}

// New constructs a composable rollcall server.
func New(cfg ServerConfig, deps ServerDeps, opts ...ServerOption) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableHTTP && !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	logger := deps.Logger
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	bus := eventbus.New(logger, eventbus.WithDepth(cfg.EventBuffer))

	var registry *core.Registry
	var collector *metrics.Collector
	registryDeps := core.RegistryDeps{
		EventSink: joinSinks(deps.EventSink, bus),
		Logger:    logger,
	}
	if cfg.Metrics {
		collector = metrics.New(metrics.Gauges{
			Sessions:    func() int { return registry.Len() },
			Subscribers: bus.Subscribers,
		})
		registryDeps.Observer = collector
	}
	registry = core.NewRegistry(registryDeps)

	server := &compositeServer{
		cfg:      cfg,
		options:  options,
		registry: registry,
		bus:      bus,
		metrics:  collector,
		httpLn:   deps.HTTPListener,
	}

	if options.enableHTTP {
		var metricsHandler http.Handler
		if collector != nil {
			metricsHandler = collector.Handler()
		}
		server.httpSrv = httpapi.NewServer(cfg.HTTP, registry, bus, metricsHandler)
	}

	if options.enableSSH {
		authorizer, err := auth.NewAuthorizer(cfg.Auth.AuthorizedKeysPath, cfg.Auth.TOTPSecret, logger)
		if err != nil {
			return nil, err
		}
		server.sshSrv = &sshserver.Server{
			Config:   cfg.SSH,
			Listener: deps.SSHListener,
			Registry: registry,
			Handler:  command.NewHandler(command.HandlerConfig{DisableAuditLogging: cfg.DisableAuditLogging}),
			Auth:     authorizer,
			EventBus: bus,
		}
	}
	return server, nil
}

type compositeServer struct {
	cfg      ServerConfig
	options  serverOptions
	registry *core.Registry
	bus      *eventbus.Bus
	metrics  *metrics.Collector
	httpSrv  *httpapi.Server
	httpLn   net.Listener
	sshSrv   *sshserver.Server
	logger   pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	done    sync.WaitGroup
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 2)
	s.started = true
	s.logger = pslog.Ctx(s.ctx)
	s.mu.Unlock()

	log := s.logger
	log.Info(
		"server start",
		"http", s.options.enableHTTP,
		"ssh", s.options.enableSSH,
		"metrics", s.metrics != nil,
		"http_addr", s.cfg.HTTP.Addr,
		"http_base_path", s.cfg.HTTP.BasePath,
		"ssh_addr", s.cfg.SSH.Addr,
	)
	if s.httpSrv != nil {
		s.done.Add(2)
		go func() {
			defer s.done.Done()
			if err := httpapi.ListenAndServe(s.ctx, s.cfg.HTTP.Addr, s.httpLn, s.httpSrv.Handler()); err != nil {
				log.Error("http server failed", "err", err)
				s.errCh <- err
			}
		}()
		go func() {
			defer s.done.Done()
			s.httpSrv.RunSweeper(s.ctx, sweepInterval)
		}()
	}
	if s.sshSrv != nil {
		s.done.Add(1)
		go func() {
			defer s.done.Done()
			if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
				log.Error("ssh server failed", "err", err)
				s.errCh <- err
			}
		}()
	}
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

// Stop closes every session, which ends open terminals and event streams,
// then cancels the listeners and waits for them to return.
func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if s.httpSrv != nil {
		s.httpSrv.Close(context.Background())
	}
	if closed := s.registry.CloseAll(context.Background()); closed > 0 {
		log.Info("server sessions closed", "sessions", closed)
	}
	if cancel != nil {
		cancel()
	}
	if ctx == nil {
		log.Info("server stop completed")
		return nil
	}
	finished := make(chan struct{})
	go func() {
		s.done.Wait()
		close(finished)
	}()
	select {
	case <-ctx.Done():
		log.Warn("server stop timed out", "err", ctx.Err())
		return ctx.Err()
	case <-finished:
		log.Info("server stopped")
		return nil
	}
}
