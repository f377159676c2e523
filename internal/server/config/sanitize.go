package config

import (
	"maps"
	"slices"

	"github.com/yndnr/capsule/internal/telemetry/logger"
)

// Sanitize returns a copy of the config with sensitive fields masked.
//
// This is used for logging configuration without exposing secrets.
func Sanitize(cfg *ServerConfig) *ServerConfig {
	sanitized := *cfg
	sanitized.MIMETypes = maps.Clone(cfg.MIMETypes)
	sanitized.Redirects = slices.Clone(cfg.Redirects)

	if sanitized.Metrics.Token != "" {
		sanitized.Metrics.Token = logger.MaskSecret(sanitized.Metrics.Token)
	}

	return &sanitized
}
