package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/capsule/internal/infra/tlscert"
)

// GenCertCommand returns the gencert command.
func GenCertCommand() *cli.Command {
	return &cli.Command{
		Name:  "gencert",
		Usage: "Write a self-signed certificate and key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Certificate host name or IP (default: server.hostname)",
			},
			&cli.StringFlag{
				Name:  "cert",
				Usage: "Certificate output path (default: tls.cert_file)",
			},
			&cli.StringFlag{
				Name:  "key",
				Usage: "Private key output path (default: tls.key_file)",
			},
			&cli.DurationFlag{
				Name:  "valid-for",
				Usage: "Certificate lifetime",
				Value: tlscert.DefaultValidity,
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite existing files",
			},
		},
		Action: genCert,
	}
}

func genCert(c *cli.Context) error {
	cfg, _, err := readConfig(ParseGlobalFlags(c).ConfigFile)
	if err != nil {
		return err
	}

	host := firstNonEmpty(c.String("host"), cfg.Server.Hostname, "localhost")
	certFile := firstNonEmpty(c.String("cert"), cfg.TLS.CertFile)
	keyFile := firstNonEmpty(c.String("key"), cfg.TLS.KeyFile)
	validFor := c.Duration("valid-for")

	if tlscert.Exists(certFile, keyFile) && !c.Bool("force") {
		return fmt.Errorf("%s and %s already exist (use --force to overwrite)", certFile, keyFile)
	}
	if err := tlscert.WriteSelfSigned(certFile, keyFile, host, validFor); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "wrote %s and %s for %s, valid until %s\n",
		certFile, keyFile, host, time.Now().Add(validFor).UTC().Format(time.DateOnly))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
