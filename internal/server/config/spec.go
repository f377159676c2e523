package config

import "time"

// ServerConfig is the root configuration for capsule-server.
type ServerConfig struct {
	Server    ServerSection     `koanf:"server" yaml:"server"`
	TLS       TLSSection        `koanf:"tls" yaml:"tls"`
	AccessLog AccessLogSection  `koanf:"access_log" yaml:"access_log"`
	RateLimit RateLimitSection  `koanf:"rate_limit" yaml:"rate_limit"`
	MIMETypes map[string]string `koanf:"mime_types" yaml:"mime_types,omitempty"`
	Redirects []RedirectConfig  `koanf:"redirects" yaml:"redirects,omitempty"`
	Log       LogSection        `koanf:"log" yaml:"log"`
	Metrics   MetricsSection    `koanf:"metrics" yaml:"metrics"`
}

// ServerSection configures the Gemini listener.
type ServerSection struct {
	// Hostname is the host clients must address in gemini mode.
	Hostname string `koanf:"hostname" yaml:"hostname"`
	// Port is the port clients must address, and the default listen port.
	Port int `koanf:"port" yaml:"port"`
	// Listen overrides the listen address (e.g. "127.0.0.1:1965").
	Listen string `koanf:"listen" yaml:"listen"`
	// Mode selects the URL policy: "gemini" (host must match) or "proxy".
	Mode string `koanf:"mode" yaml:"mode"`
	// PublicRoot is the static file directory. Empty disables static files.
	PublicRoot string `koanf:"public_root" yaml:"public_root"`

	MaskRemoteAddr   bool          `koanf:"mask_remote_addr" yaml:"mask_remote_addr"`
	ReadTimeout      time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	HandshakeTimeout time.Duration `koanf:"handshake_timeout" yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
	MaxConnections   int           `koanf:"max_connections" yaml:"max_connections"`
}

// TLSSection configures the server certificate.
type TLSSection struct {
	CertFile string `koanf:"cert_file" yaml:"cert_file"`
	KeyFile  string `koanf:"key_file" yaml:"key_file"`
	// Generate writes a self-signed certificate when the files are missing.
	Generate bool `koanf:"generate" yaml:"generate"`
	// Watch reloads the certificate when the files change.
	Watch bool `koanf:"watch" yaml:"watch"`
}

// AccessLogSection configures the access log. An empty path disables it,
// "-" writes to stdout.
type AccessLogSection struct {
	Path string `koanf:"path" yaml:"path"`
}

// RateLimitSection configures per-client rate limiting.
type RateLimitSection struct {
	// RequestsPerSecond of 0 disables rate limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `koanf:"burst" yaml:"burst"`
}

// RedirectConfig is one redirect rule. Rules are temporary unless
// Permanent is set.
type RedirectConfig struct {
	Prefix    string `koanf:"prefix" yaml:"prefix"`
	Target    string `koanf:"target" yaml:"target"`
	Permanent bool   `koanf:"permanent" yaml:"permanent"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" yaml:"level"`
	Format string `koanf:"format" yaml:"format"`
}

// MetricsSection configures the Prometheus endpoint.
type MetricsSection struct {
	// Addr is the HTTP listen address for /metrics. Empty disables it.
	Addr string `koanf:"addr" yaml:"addr"`
	// Token, when set, must be presented as a bearer token by scrapers.
	Token string `koanf:"token" yaml:"token"`
}
