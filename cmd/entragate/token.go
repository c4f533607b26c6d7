package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print an application access token",
		Long: `token acquires an access token with the client-credentials flow
configured in the app_token section and prints it to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newStore(c.cfg.Cache)
			if err != nil {
				return fmt.Errorf("cache: %w", err)
			}

			tokens, err := newTokenCache(c.cfg.AppToken, store, c.logger)
			if err != nil {
				return err
			}

			token, err := tokens.GetToken(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
}
