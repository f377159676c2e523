package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyTLS(&cfg.TLS); err != nil {
		return err
	}
	if err := verifyRateLimit(&cfg.RateLimit); err != nil {
		return err
	}
	if err := verifyRedirects(cfg.Redirects); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Port)
	}
	switch cfg.Mode {
	case ModeGemini:
		if cfg.Hostname == "" {
			return errors.New("server.hostname is required in gemini mode")
		}
	case ModeProxy:
	default:
		return fmt.Errorf("server.mode must be %q or %q, got %q", ModeGemini, ModeProxy, cfg.Mode)
	}

	if cfg.ReadTimeout <= 0 || cfg.HandshakeTimeout <= 0 || cfg.WriteTimeout <= 0 {
		return errors.New("server timeouts must be positive")
	}
	if cfg.MaxConnections < 0 {
		return errors.New("server.max_connections must not be negative")
	}

	if cfg.PublicRoot != "" {
		info, err := os.Stat(cfg.PublicRoot)
		if err != nil {
			return fmt.Errorf("server.public_root: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("server.public_root %s is not a directory", cfg.PublicRoot)
		}
	}
	return nil
}

func verifyTLS(cfg *TLSSection) error {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return errors.New("tls.cert_file and tls.key_file are required")
	}
	return nil
}

func verifyRateLimit(cfg *RateLimitSection) error {
	if cfg.RequestsPerSecond < 0 {
		return errors.New("rate_limit.requests_per_second must not be negative")
	}
	if cfg.RequestsPerSecond > 0 && cfg.Burst < 1 {
		return errors.New("rate_limit.burst must be at least 1 when rate limiting is enabled")
	}
	return nil
}

func verifyRedirects(rules []RedirectConfig) error {
	for i, r := range rules {
		if !strings.HasPrefix(r.Prefix, "/") {
			return fmt.Errorf("redirects[%d].prefix %q must start with /", i, r.Prefix)
		}
		if r.Target == "" {
			return fmt.Errorf("redirects[%d].target is required", i)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}
