package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/capsule/internal/infra/buildinfo"
	"github.com/yndnr/capsule/internal/infra/confloader"
	"github.com/yndnr/capsule/internal/infra/shutdown"
	"github.com/yndnr/capsule/internal/infra/tlscert"
	"github.com/yndnr/capsule/internal/server/config"
	"github.com/yndnr/capsule/internal/server/geminiserver"
	"github.com/yndnr/capsule/internal/server/httpserver"
	"github.com/yndnr/capsule/internal/server/staticfile"
	"github.com/yndnr/capsule/internal/telemetry/logger"
	"github.com/yndnr/capsule/internal/telemetry/metric"
)

// shutdownTimeout bounds the wait for in-flight connections.
const shutdownTimeout = 30 * time.Second

// ServeCommand returns the serve command.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the Gemini server",
		Action: serve,
	}
}

func serve(c *cli.Context) error {
	cfgPath := ParseGlobalFlags(c).ConfigFile
	cfg, loader, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}

	// Initialize logger
	appLog, err := logger.New(config.LoggerConfig(cfg))
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(appLog)
	log := appLog.Slog()

	log.Info("starting capsule-server",
		"version", buildinfo.Version,
		"commit", buildinfo.Commit,
		"config", cfgPath)

	sh := shutdown.NewHandler(shutdownTimeout, log)

	// Hooks run in reverse order; the access log is closed last.
	accessLog, err := logger.OpenAccessLog(cfg.AccessLog.Path)
	if err != nil {
		return fmt.Errorf("open access log: %w", err)
	}
	sh.OnShutdown(func(context.Context) error {
		return accessLog.Close()
	})

	certs, stopCerts, err := certificateSource(cfg, log)
	if err != nil {
		_ = accessLog.Close()
		return err
	}
	sh.OnShutdown(func(context.Context) error {
		stopCerts()
		return nil
	})

	metrics := metric.NewRegistry()
	opts := []geminiserver.Option{
		geminiserver.WithLogger(log),
		geminiserver.WithAccessLog(accessLog),
		geminiserver.WithMetrics(metrics),
		geminiserver.WithPolicy(config.Policy(cfg)),
	}
	if cfg.Server.PublicRoot != "" {
		resolver, err := staticfile.New(cfg.Server.PublicRoot, staticfile.WithMIMETypes(cfg.MIMETypes))
		if err != nil {
			_ = accessLog.Close()
			return fmt.Errorf("init static files: %w", err)
		}
		log.Info("serving static files", "root", resolver.Root())
		opts = append(opts, geminiserver.WithStaticFiles(resolver))
	}

	srv, err := geminiserver.New(config.ToGeminiConfig(cfg), certs, opts...)
	if err != nil {
		_ = accessLog.Close()
		return err
	}
	for _, r := range config.RedirectRules(cfg) {
		srv.Redirect(r)
	}

	if cfg.Metrics.Addr != "" {
		hs := startOperatorEndpoint(cfg, metrics, log)
		sh.OnShutdown(hs.Shutdown)
	}

	if cfgPath != "" {
		w, err := watchConfig(cfgPath, loader, log)
		if err != nil {
			log.Warn("config file watching disabled", "error", err)
		} else {
			sh.OnShutdown(func(context.Context) error { return w.Stop() })
		}
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	sh.OnShutdown(func(shutdownCtx context.Context) error {
		log.Info("shutting down gemini server")
		cancel()
		return srv.Shutdown(shutdownCtx)
	})

	serveErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(ctx)
		serveErr <- err
		if err != nil {
			sh.Trigger()
		}
	}()

	// Wait for shutdown signal
	waitErr := sh.Wait(c.Context)
	select {
	case err := <-serveErr:
		if err != nil {
			return errors.Join(err, waitErr)
		}
	default:
	}
	if waitErr != nil {
		log.Error("shutdown error", "error", waitErr)
		return waitErr
	}

	log.Info("server stopped gracefully")
	return nil
}

// certificateSource loads (and if allowed, first generates) the server key
// pair. With tls.watch the returned source follows file changes.
func certificateSource(cfg *config.ServerConfig, log *slog.Logger) (tlscert.Source, func(), error) {
	certFile, keyFile := cfg.TLS.CertFile, cfg.TLS.KeyFile

	if !tlscert.Exists(certFile, keyFile) {
		if !cfg.TLS.Generate {
			return nil, nil, fmt.Errorf("%w: %s or %s not found (enable tls.generate or run gencert)",
				geminiserver.ErrNoCertificate, certFile, keyFile)
		}
		host := firstNonEmpty(cfg.Server.Hostname, "localhost")
		if err := tlscert.WriteSelfSigned(certFile, keyFile, host, tlscert.DefaultValidity); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", geminiserver.ErrNoCertificate, err)
		}
		log.Info("generated self-signed certificate", "cert_file", certFile, "host", host)
	}

	if cfg.TLS.Watch {
		w, err := tlscert.NewWatcher(certFile, keyFile, tlscert.WithLogger(log))
		if err != nil {
			return nil, nil, err
		}
		w.StartAsync()
		return w, w.Stop, nil
	}

	cert, err := tlscert.LoadKeyPair(certFile, keyFile)
	if err != nil {
		return nil, nil, err
	}
	return tlscert.Static(cert), func() {}, nil
}

func startOperatorEndpoint(cfg *config.ServerConfig, metrics *metric.Registry, log *slog.Logger) *httpserver.Server {
	hs := httpserver.New(cfg.Metrics.Addr, httpserver.NewRouter(&httpserver.RouterConfig{
		Metrics:      metrics,
		MetricsToken: cfg.Metrics.Token,
		Logger:       log,
	}))
	go func() {
		log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics endpoint error", "error", err)
		}
	}()
	return hs
}

// watchConfig re-reads the config file on change and applies log.level.
// Other settings take effect on restart.
func watchConfig(path string, loader *confloader.Loader, log *slog.Logger) (*confloader.Watcher, error) {
	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return nil, err
	}
	w.OnChange(reloadLogLevel(loader, log))
	w.StartAsync()
	return w, nil
}

func reloadLogLevel(loader *confloader.Loader, log *slog.Logger) func(string) {
	return func(path string) {
		next := config.Default()
		if err := loader.Reload(next); err != nil {
			log.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if err := config.Verify(next); err != nil {
			log.Warn("reloaded config is invalid, keeping current settings", "path", path, "error", err)
			return
		}

		prev := logger.GetLevel()
		logger.SetLevel(next.Log.Level)
		if cur := logger.GetLevel(); cur != prev {
			log.Info("log level changed", "from", prev, "to", cur)
		}
	}
}
