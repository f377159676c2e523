package geminiserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/netutil"

	"github.com/yndnr/capsule/internal/infra/tlscert"
	"github.com/yndnr/capsule/internal/server/staticfile"
	"github.com/yndnr/capsule/internal/telemetry/logger"
	"github.com/yndnr/capsule/internal/telemetry/metric"
)

// ErrNoCertificate is returned by New when no certificate source is given.
var ErrNoCertificate = tlscert.ErrNoCertificate

// ErrServerStarted is returned when Serve is called twice.
var ErrServerStarted = errors.New("geminiserver: server already started")

// Config holds the Gemini server configuration.
type Config struct {
	// Hostname is the host clients must address (HostPolicy).
	Hostname string
	// Port is the Gemini port clients must address (default: 1965).
	Port int
	// Addr is the listen address. Empty means ":<Port>".
	Addr string
	// ReadTimeout bounds reading the request line after the handshake
	// (default: 5s).
	ReadTimeout time.Duration
	// HandshakeTimeout bounds the TLS handshake (default: 5s).
	HandshakeTimeout time.Duration
	// WriteTimeout bounds each write to the client, renewed per chunk,
	// so a slow but progressing client can receive a large file (default: 30s).
	WriteTimeout time.Duration
	// MaskRemoteAddr replaces client addresses in logs with "-".
	MaskRemoteAddr bool
	// MaxConnections caps concurrent connections. 0 means unlimited.
	MaxConnections int
	// RateLimit is requests per second per client IP. 0 disables it.
	RateLimit float64
	// RateBurst is the token bucket size per client IP.
	RateBurst int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Hostname:         "localhost",
		Port:             DefaultPort,
		ReadTimeout:      5 * time.Second,
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     30 * time.Second,
		MaskRemoteAddr:   true,
		RateBurst:        10,
	}
}

func (c *Config) listenAddr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return net.JoinHostPort("", strconv.Itoa(c.Port))
}

// Server is a Gemini server.
type Server struct {
	cfg       *Config
	tlsConfig *tls.Config
	policy    Policy
	router    Router
	redirects RedirectTable
	static    *staticfile.Resolver
	accessLog *logger.AccessLog
	metrics   *metric.Registry
	limiter   *clientLimiter
	logger    *slog.Logger

	mu      sync.Mutex
	ln      net.Listener
	started atomic.Bool
	running atomic.Bool
	wg      sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the operational logger. Request-scoped records are
// logged with the request context; loggers from internal/telemetry/logger
// turn its connection ID into a conn_id attribute.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithAccessLog sets the access log. A nil log disables access logging.
func WithAccessLog(a *logger.AccessLog) Option {
	return func(s *Server) { s.accessLog = a }
}

// WithMetrics sets the metrics registry.
func WithMetrics(m *metric.Registry) Option {
	return func(s *Server) { s.metrics = m }
}

// WithStaticFiles serves files through r when no route or redirect matches.
func WithStaticFiles(r *staticfile.Resolver) Option {
	return func(s *Server) { s.static = r }
}

// WithPolicy replaces the default HostPolicy.
func WithPolicy(p Policy) Option {
	return func(s *Server) { s.policy = p }
}

// New creates a server presenting certificates from certs.
func New(cfg *Config, certs tlscert.Source, opts ...Option) (*Server, error) {
	if certs == nil {
		return nil, fmt.Errorf("%w: certificate source is required", ErrNoCertificate)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = withDefaults(*cfg)

	s := &Server{
		cfg:       cfg,
		tlsConfig: tlscert.ServerConfig(certs),
		policy:    HostPolicy{Hostname: cfg.Hostname, Port: cfg.Port},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = metric.NewRegistry()
	}
	if cfg.RateLimit > 0 {
		s.limiter = newClientLimiter(cfg.RateLimit, cfg.RateBurst)
	}
	return s, nil
}

func withDefaults(c Config) *Config {
	d := DefaultConfig()
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	return &c
}

// Handle registers a route. Routes are matched in registration order.
// It panics if called after Serve.
func (s *Server) Handle(pattern string, h Handler) {
	s.mustNotBeStarted("Handle")
	s.router.Handle(pattern, h)
}

// HandleFunc registers a route for a plain function.
func (s *Server) HandleFunc(pattern string, f func(w *Response, r *Request)) {
	s.Handle(pattern, HandlerFunc(f))
}

// Redirect registers a redirect rule. Rules are matched in registration
// order, after routes. It panics if called after Serve.
func (s *Server) Redirect(r Redirect) {
	s.mustNotBeStarted("Redirect")
	s.redirects.Add(r)
}

func (s *Server) mustNotBeStarted(op string) {
	if s.started.Load() {
		panic("geminiserver: " + op + " called after Serve")
	}
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.listenAddr())
	if err != nil {
		return fmt.Errorf("geminiserver: listen %s: %w", s.cfg.listenAddr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts TCP connections on ln and performs the TLS handshake on
// each of them. It blocks until ctx is cancelled or Shutdown is called,
// and returns nil in both cases.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrServerStarted
	}
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	s.mu.Lock()
	s.ln = ln
	s.running.Store(true)
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		s.running.Store(false)
		_ = ln.Close()
	})
	defer stop()

	if s.limiter != nil {
		limCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go s.limiter.run(limCtx)
	}

	s.logger.Info("gemini server listening",
		"address", ln.Addr().String(),
		"hostname", s.cfg.Hostname,
		"port", s.cfg.Port,
		"routes", s.router.Len(),
		"redirects", s.redirects.Len(),
		"static", s.static != nil,
	)
	return s.acceptLoop(ctx, ln)
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops accepting connections and waits for in-flight
// connections to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	var closeErr error
	s.mu.Lock()
	s.running.Store(false)
	if s.ln != nil {
		if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			closeErr = err
		}
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return closeErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}

			// Transient failures (EMFILE, ECONNABORTED) must not end the loop.
			if backoff == 0 {
				backoff = 5 * time.Millisecond
			} else {
				backoff *= 2
			}
			if backoff > time.Second {
				backoff = time.Second
			}
			s.logger.Warn("accept failed", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		// Add under mu so it cannot race with Shutdown's Wait.
		s.mu.Lock()
		if !s.running.Load() {
			s.mu.Unlock()
			_ = c.Close()
			return nil
		}
		s.wg.Add(1)
		s.mu.Unlock()

		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, c)
		}()
	}
}
