// Package output renders command results for capsule-server subcommands.
//
// Supported formats are YAML (default, via gopkg.in/yaml.v3), JSON and a
// one-line text form for values implementing fmt.Stringer.
package output
