package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/auth"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/batch"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/cache"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/config"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/convert"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/history"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/logging"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/resolve"
	"github.com/GrignardLouka/Listenbrainz-to-spotify-stats/internal/spotify"
)

// flags holds the raw command-line values. Only flags the user set
// override the loaded configuration.
type flags struct {
	configPath string
	envFile    string

	input       string
	output      string
	unknowns    string
	maxPerFile  int
	searchLimit int
	dropSpotify bool
	dryRun      bool

	cachePath    string
	cacheBackend string
	cacheDSN     string

	logLevel  string
	logFormat string
}

func newRootCommand() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "lb2spotify",
		Short: "Convert ListenBrainz listens into Spotify extended streaming history",
		Long: `lb2spotify reads ListenBrainz exports (.json or .jsonl) from the input
directory and writes them as Spotify extended streaming history entries.

Listens played on Spotify are remapped directly. Everything else is matched
against the Spotify catalog, with results kept in a persistent cache so
repeated runs do not repeat lookups.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, f)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "", "TOML configuration file")
	pf.StringVar(&f.envFile, "env-file", config.DefaultEnvFile, "dotenv file with credentials, ignored when missing")
	pf.StringVar(&f.cachePath, "cache", "", "cache file for the json and sqlite backends (default spotify_cache.json or spotify_cache.db)")
	pf.StringVar(&f.cacheBackend, "cache-backend", cache.BackendJSON, "cache backend: json, sqlite or postgres")
	pf.StringVar(&f.cacheDSN, "cache-dsn", "", "PostgreSQL connection string for the postgres backend")
	pf.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	pf.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")

	fl := rootCmd.Flags()
	fl.StringVarP(&f.input, "input", "i", config.DefaultInputDir, "directory searched recursively for ListenBrainz exports")
	fl.StringVarP(&f.output, "output", "o", history.DefaultFileName, "output file, or directory when --max-per-file is set")
	fl.StringVar(&f.unknowns, "unknowns", batch.DefaultUnknownsPath, "file listing unresolved songs, empty to disable")
	fl.IntVar(&f.maxPerFile, "max-per-file", 0, "split output into Streaming_History_Audio chunks of this many entries")
	fl.IntVar(&f.searchLimit, "search-limit", resolve.DefaultSearchLimit, "Spotify search results compared per query (1-50)")
	fl.BoolVar(&f.dropSpotify, "drop-spotify", false, "skip listens already played on Spotify")
	fl.BoolVar(&f.dryRun, "dry-run", false, "use only the cache and embedded URIs, no Spotify credentials needed")

	rootCmd.AddCommand(newCacheCommand(f))
	rootCmd.AddCommand(newTokenCommand())

	return rootCmd
}

// loadConfig layers the set flags over the file and environment
// configuration. Credentials are only validated when requireCredentials.
func loadConfig(cmd *cobra.Command, f *flags, requireCredentials bool) (*config.Config, error) {
	cfg, err := config.Load(f.configPath, f.envFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	setString := func(name string, dst *string, v string) {
		if changed(name) {
			*dst = v
		}
	}
	setString("input", &cfg.Input, f.input)
	setString("output", &cfg.Output, f.output)
	setString("unknowns", &cfg.Unknowns, f.unknowns)
	setString("cache", &cfg.Cache.Path, f.cachePath)
	setString("cache-backend", &cfg.Cache.Backend, f.cacheBackend)
	setString("cache-dsn", &cfg.Cache.DSN, f.cacheDSN)
	setString("log-level", &cfg.Log.Level, f.logLevel)
	setString("log-format", &cfg.Log.Format, f.logFormat)
	if changed("max-per-file") {
		cfg.MaxPerFile = f.maxPerFile
	}
	if changed("search-limit") {
		cfg.Spotify.SearchLimit = f.searchLimit
	}
	if changed("drop-spotify") {
		cfg.DropSpotify = f.dropSpotify
	}
	if changed("dry-run") {
		cfg.DryRun = f.dryRun
	}
	cfg.Normalize()

	check := *cfg
	if !requireCredentials {
		check.DryRun = true
	}
	if err := check.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Writer: cmd.ErrOrStderr(),
	})
}

func openCache(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (cache.Store, error) {
	return cache.Open(cmd.Context(), cache.Options{
		Backend:    cfg.Cache.Backend,
		Path:       cfg.CachePath(),
		DSN:        cfg.Cache.DSN,
		FlushEvery: cfg.Cache.FlushEvery,
		Logger:     logger,
	})
}

func runConvert(cmd *cobra.Command, f *flags) (err error) {
	cfg, err := loadConfig(cmd, f, true)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := openCache(cmd, cfg, logger)
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing cache: %w", cerr)
		}
	}()

	var (
		catalog       resolve.Catalog
		authenticator *auth.Authenticator
	)
	if !cfg.DryRun {
		client, a, err := newCatalog(cmd, cfg, logger)
		if err != nil {
			return err
		}
		catalog, authenticator = client, a
	}

	resolver := resolve.New(store, catalog,
		resolve.WithSearchLimit(cfg.Spotify.SearchLimit),
		resolve.WithLogger(logger))
	if resolver.Offline() {
		logger.Info("dry run: only cached and embedded matches are used")
	}

	conv := convert.New(resolver, convert.Options{
		Username:    cfg.Username,
		CountryCode: cfg.CountryCode,
		DropSpotify: cfg.DropSpotify,
		Logger:      logger,
	})

	driver := batch.New(conv, batch.Options{
		InputDir:     cfg.Input,
		Output:       cfg.Output,
		UnknownsPath: cfg.Unknowns,
		MaxPerFile:   cfg.MaxPerFile,
		Progress:     os.Stderr,
		Logger:       logger,
	})

	stats, err := driver.Run(ctx)
	if err != nil {
		if authenticator != nil && errors.Is(err, spotify.ErrUnauthorized) {
			// A revoked token must not be reused by the next run.
			if ferr := authenticator.Forget(); ferr != nil {
				logger.Warn("failed to clear cached token", "error", ferr)
			}
		}
		return err
	}

	stats.Render(cmd.OutOrStdout())
	for _, path := range stats.OutputFiles {
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	}
	if stats.Unknowns > 0 && cfg.Unknowns != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Unresolved songs listed in %s\n", cfg.Unknowns)
	}
	return nil
}

// newCatalog authenticates with the client credentials grant.
func newCatalog(cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*spotify.Client, *auth.Authenticator, error) {
	opts := []auth.Option{auth.WithLogger(logger)}
	if tokens, err := auth.DefaultTokenCache(); err != nil {
		logger.Warn("token cache unavailable", "error", err)
	} else {
		opts = append(opts, auth.WithTokenCache(tokens))
	}

	authenticator, err := auth.New(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, opts...)
	if err != nil {
		return nil, nil, err
	}

	api, err := authenticator.Client(cmd.Context())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", spotify.ErrUnauthorized, err)
	}
	return spotify.New(api), authenticator, nil
}
