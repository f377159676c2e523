package command

import (
	"github.com/urfave/cli/v2"

	"github.com/yndnr/capsule/internal/cli/output"
	"github.com/yndnr/capsule/internal/infra/buildinfo"
)

// VersionCommand returns the version command.
func VersionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show build information",
		Action: func(c *cli.Context) error {
			format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
			if err != nil {
				return err
			}
			return output.NewFormatter(format).Format(c.App.Writer, buildinfo.Get())
		},
	}
}
