package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/capsule/internal/cli/output"
	"github.com/yndnr/capsule/internal/infra/buildinfo"
	"github.com/yndnr/capsule/internal/infra/confloader"
	"github.com/yndnr/capsule/internal/server/config"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:           "capsule-server",
		Usage:          "Gemini protocol server",
		Version:        buildinfo.String(),
		Flags:          globalFlags(),
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			ServeCommand(),
			GenCertCommand(),
			ConfigCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to YAML configuration file",
			EnvVars: []string{"CAPSULE_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: yaml, json, text",
			Value:   string(output.FormatYAML),
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	ConfigFile string
	Output     string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		ConfigFile: c.String("config"),
		Output:     c.String("output"),
	}
}

// readConfig loads defaults, the config file and the environment, without
// validating the result.
func readConfig(path string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg := config.Default()

	opts := []confloader.Option{confloader.WithStrict()}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}
	loader := confloader.NewLoader(opts...)

	if err := loader.Load(cfg); err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, loader, nil
}

// loadConfig is readConfig followed by config.Verify.
func loadConfig(path string) (*config.ServerConfig, *confloader.Loader, error) {
	cfg, loader, err := readConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, loader, nil
}
