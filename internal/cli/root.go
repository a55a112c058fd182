package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/entries/internal/config"
	"github.com/roach88/entries/internal/mongostore"
	"github.com/roach88/entries/internal/record"
	"github.com/roach88/entries/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// OpenStore opens the configured backend. Tests override it; nil means
	// OpenStore.
	OpenStore func(ctx context.Context, cfg *config.Config) (record.Store, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the entries CLI.
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(&RootOptions{}, version)
}

func newRootCommand(opts *RootOptions, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "entries",
		Short:   "entries - tagged JSON record service",
		Long:    "Store JSON payloads tagged as input, output or mapping records and serve them over HTTP.",
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// StoreFlags are the per-command overrides of the store configuration.
type StoreFlags struct {
	Database string
	Backend  string
	MongoURI string
}

func (sf *StoreFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&sf.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.Flags().StringVar(&sf.Backend, "backend", "", "store backend: sqlite or mongo (overrides config)")
	cmd.Flags().StringVar(&sf.MongoURI, "mongo-uri", "", "MongoDB connection string (overrides config)")
}

func (sf *StoreFlags) apply(cfg *config.Config) {
	if sf.Database != "" {
		cfg.Store.Path = sf.Database
	}
	if sf.Backend != "" {
		cfg.Store.Backend = sf.Backend
	}
	if sf.MongoURI != "" {
		cfg.Store.MongoURI = sf.MongoURI
	}
}

// loadConfig resolves configuration from file and environment, then lets
// apply set flag overrides before validation.
func (o *RootOptions) loadConfig(apply func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if apply != nil {
		apply(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid config", err)
	}
	return cfg, nil
}

func (o *RootOptions) openStore(ctx context.Context, cfg *config.Config) (record.Store, error) {
	open := o.OpenStore
	if open == nil {
		open = OpenStore
	}
	st, err := open(ctx, cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return st, nil
}

// OpenStore opens the backend selected by cfg.
func OpenStore(ctx context.Context, cfg *config.Config) (record.Store, error) {
	switch backend := cfg.ResolvedBackend(); backend {
	case config.BackendSQLite:
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.BackendMongo:
		st, err := mongostore.Open(ctx, cfg.Store.MongoURI)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

// newLogger returns the text logger used by long-running commands: INFO by
// default, DEBUG with --verbose.
func (o *RootOptions) newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
