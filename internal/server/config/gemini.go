package config

import (
	"github.com/yndnr/capsule/internal/server/geminiserver"
	"github.com/yndnr/capsule/internal/telemetry/logger"
)

// ToGeminiConfig converts ServerConfig to geminiserver.Config.
func ToGeminiConfig(cfg *ServerConfig) *geminiserver.Config {
	return &geminiserver.Config{
		Hostname:         cfg.Server.Hostname,
		Port:             cfg.Server.Port,
		Addr:             cfg.Server.Listen,
		ReadTimeout:      cfg.Server.ReadTimeout,
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		MaskRemoteAddr:   cfg.Server.MaskRemoteAddr,
		MaxConnections:   cfg.Server.MaxConnections,
		RateLimit:        cfg.RateLimit.RequestsPerSecond,
		RateBurst:        cfg.RateLimit.Burst,
	}
}

// Policy returns the URL policy selected by server.mode.
func Policy(cfg *ServerConfig) geminiserver.Policy {
	if cfg.Server.Mode == ModeProxy {
		return geminiserver.AcceptAll{}
	}
	return geminiserver.HostPolicy{Hostname: cfg.Server.Hostname, Port: cfg.Server.Port}
}

// RedirectRules converts the configured redirects, preserving order.
func RedirectRules(cfg *ServerConfig) []geminiserver.Redirect {
	rules := make([]geminiserver.Redirect, 0, len(cfg.Redirects))
	for _, r := range cfg.Redirects {
		rules = append(rules, geminiserver.Redirect{
			Prefix:    r.Prefix,
			Target:    r.Target,
			Permanent: r.Permanent,
		})
	}
	return rules
}

// LoggerConfig returns the operational logger settings.
func LoggerConfig(cfg *ServerConfig) logger.Config {
	lc := logger.DefaultConfig()
	lc.Level = cfg.Log.Level
	lc.Format = cfg.Log.Format
	return lc
}
