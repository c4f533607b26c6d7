package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/entrakit/go-entra-middleware/config"
)

// cli holds what the persistent pre-run prepared for subcommands.
type cli struct {
	configPath string
	logLevel   string

	cfg    *config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "entragate",
		Short: "Entra ID token gate",
		Long: `entragate verifies Entra ID access tokens in front of an API and
acquires application tokens with the client-credentials flow.

Settings are read from --config and from ENTRA_ prefixed environment
variables, e.g. ENTRA_AUTH_CLIENT_ID or ENTRA_APP_TOKEN_CLIENT_SECRET.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(newServeCmd(c), newTokenCmd(c))
	return root
}

func (c *cli) load() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	if c.configPath != "" {
		logger.WithField("path", c.configPath).Debug("using config file")
	}
	return nil
}
