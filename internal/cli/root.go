package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lazypower/graphwalk/internal/config"
	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/logging"
	"github.com/lazypower/graphwalk/internal/store"
)

var (
	cfgPath string
	verbose bool

	cfg    = config.Default()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "graphwalk",
	Short: "Interactive knowledge-graph explorer",
	Long: `Graphwalk lets you start from a searched entity, expand its neighbors one
click at a time and watch the growing subgraph settle into a force-directed
layout. Single Go binary with an embedded UI and a SQLite graph store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath()
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		if verbose {
			c.Log.Level = "debug"
			c.Log.Development = true
		}

		l, err := logging.New(c.Log.Level, c.Log.Development)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg, logger = c, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default $GRAPHWALK_CONFIG or ~/.graphwalk/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(exploreCmd)
}

// openDB is a helper that opens the database for CLI commands.
func openDB() (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}
	return store.Open(dbPath)
}

// openFetcher returns a fetcher for the remote server when remote is set,
// otherwise one over the local database. The returned func releases it.
func openFetcher(remote bool, url string) (fetch.Fetcher, func(), error) {
	if remote {
		opts := cfg.ClientOptions()
		if url != "" {
			opts.BaseURL = url
		}
		return fetch.NewHTTPClient(opts), func() {}, nil
	}

	db, err := openDB()
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	return fetch.NewStoreFetcher(db), func() { db.Close() }, nil
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
}
