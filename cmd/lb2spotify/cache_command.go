package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/cache"
)

func newCacheCommand(f *flags) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the lookup cache",
	}

	cacheCmd.AddCommand(newCacheInfoCommand(f))

	return cacheCmd
}

func newCacheInfoCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show the cache backend, location and entry count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			cfg, err := loadConfig(cmd, f, false)
			if err != nil {
				return err
			}
			logger, err := newLogger(cmd, cfg)
			if err != nil {
				return err
			}

			store, err := openCache(cmd, cfg, logger)
			if err != nil {
				return fmt.Errorf("opening cache: %w", err)
			}
			defer func() {
				if cerr := store.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			location := cfg.CachePath()
			if cfg.Cache.Backend == cache.BackendPostgres {
				location = "postgres (track_cache table)"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backend:  %s\n", cfg.Cache.Backend)
			fmt.Fprintf(out, "Location: %s\n", location)
			fmt.Fprintf(out, "Entries:  %d\n", store.Len())
			return nil
		},
	}
}
