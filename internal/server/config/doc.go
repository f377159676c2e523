// Package config provides server configuration for Capsule.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - verify.go: Validation (ranges, modes, path existence)
//   - sanitize.go: Log sanitization (hide sensitive values)
//   - gemini.go: Conversion to geminiserver and logger settings
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: defaults, a YAML file and environment variables.
package config
