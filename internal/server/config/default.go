package config

import "time"

// Default configuration values.
const (
	DefaultHostname         = "localhost"
	DefaultPort             = 1965
	DefaultMode             = ModeGemini
	DefaultReadTimeout      = 5 * time.Second
	DefaultHandshakeTimeout = 5 * time.Second
	DefaultWriteTimeout     = 30 * time.Second

	DefaultCertFile = "capsule.crt"
	DefaultKeyFile  = "capsule.key"

	DefaultRateBurst = 10

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// URL policy modes.
const (
	ModeGemini = "gemini"
	ModeProxy  = "proxy"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Hostname:         DefaultHostname,
			Port:             DefaultPort,
			Mode:             DefaultMode,
			MaskRemoteAddr:   true,
			ReadTimeout:      DefaultReadTimeout,
			HandshakeTimeout: DefaultHandshakeTimeout,
			WriteTimeout:     DefaultWriteTimeout,
		},
		TLS: TLSSection{
			CertFile: DefaultCertFile,
			KeyFile:  DefaultKeyFile,
		},
		RateLimit: RateLimitSection{
			Burst: DefaultRateBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
