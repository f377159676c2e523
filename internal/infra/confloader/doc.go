// Package confloader provides the configuration loading mechanism.
//
// It uses koanf to merge configuration from several sources into a typed
// struct. Priority (highest to lowest):
//
//  1. Environment variables (CAPSULE_ prefix, "__" between sections)
//  2. Configuration file (YAML)
//  3. Values already present in the target (defaults)
//
// With WithStrict, keys that match no struct field fail the load.
//
// Watcher reports writes to the configuration file via fsnotify so that
// runtime-adjustable settings (the log level) can be reapplied.
package confloader
