package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/auth"
)

func newTokenCommand() *cobra.Command {
	tokenCmd := &cobra.Command{
		Use:   "token",
		Short: "Manage the cached Spotify access token",
	}

	tokenCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the cached access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.DefaultTokenCache()
			if err != nil {
				return err
			}
			if err := tokens.Delete(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", tokens.Path())
			return nil
		},
	})

	return tokenCmd
}
