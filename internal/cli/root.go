// Package cli implements the notes command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/memonotes/internal/config"
	"github.com/kimhsiao/memonotes/internal/db"
	"github.com/kimhsiao/memonotes/internal/errors"
	"github.com/kimhsiao/memonotes/internal/logging"
	"github.com/kimhsiao/memonotes/internal/notes"
)

// app holds what every subcommand needs once the store is open.
type app struct {
	cfg   *config.AppConfig
	repo  *notes.Repository
	close func() error
}

type appKey struct{}

// NewRootCommand builds the notes command tree.
func NewRootCommand(version string) *cobra.Command {
	var (
		configPath string
		dataDir    string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "notes",
		Short:         "Local notes and tags",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `Manage notes and tags stored in a local SQLite database.

Examples:
  notes note add "Buy milk" --content "2% lowfat" --tag errand
  notes note search milk
  notes tag list
  notes watch --filter errand`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			logging.Init(cmd.ErrOrStderr(), logging.ParseLevel(cfg.Log.Level), logging.Format(cfg.Log.Format))

			a, err := openApp(cfg)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, appKey{}, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a, ok := cmd.Context().Value(appKey{}).(*app); ok {
				return a.close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	cmd.AddCommand(NewNoteCommand())
	cmd.AddCommand(NewTagCommand())
	cmd.AddCommand(NewCategoriesCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}

func openApp(cfg *config.AppConfig) (*app, error) {
	database, err := db.Open(db.Options{
		DataDir:      cfg.DataDir,
		FileName:     cfg.DBFile,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		BusyTimeout:  cfg.Storage.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, err
	}

	store := db.NewStore(database)
	repo := notes.NewRepository(store, notes.WithMaxConcurrentQueries(cfg.Live.MaxConcurrentQueries))
	return &app{
		cfg:  cfg,
		repo: repo,
		close: func() error {
			storeErr := store.Close()
			if err := database.Close(); err != nil {
				return err
			}
			return storeErr
		},
	}, nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok {
		return nil, errors.New(errors.ErrInternal, "store is not open")
	}
	return a, nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Newf(errors.ErrInvalid, "invalid %s id %q", kind, s)
	}
	return id, nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context, version string, args []string) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		switch {
		case errors.Is(err, errors.ErrNotFound):
			return 3
		case errors.Is(err, errors.ErrInvalid), errors.Is(err, errors.ErrConstraint):
			return 2
		default:
			return 1
		}
	}
	return 0
}
