package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/entries/internal/api"
	"github.com/roach88/entries/internal/config"
)

// shutdownTimeout bounds how long in-flight requests may run after a stop
// signal.
const shutdownTimeout = 10 * time.Second

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	StoreFlags
	Address   string
	StaticDir string

	// Ready is called with the bound address once the listener is open.
	Ready func(addr net.Addr)
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the input and output record routes over HTTP.

Configuration is read from --config (YAML), then the environment
(PORT, MONGODB_URI, ENTRIES_DB, ENTRIES_BACKEND, ENTRIES_STATIC_DIR),
then flags. Unmatched GET requests are served from the static directory.

Example:
  entries serve
  entries serve --addr 127.0.0.1:8080 --db ./entries.db
  MONGODB_URI=mongodb://localhost:27017/app entries serve --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	opts.StoreFlags.register(cmd)
	cmd.Flags().StringVar(&opts.Address, "addr", "", "listen address (default :3000, or :$PORT)")
	cmd.Flags().StringVar(&opts.StaticDir, "static", "", "static asset directory (default public)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	logger := opts.newLogger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig(func(cfg *config.Config) {
		opts.StoreFlags.apply(cfg)
		if opts.Address != "" {
			cfg.Server.Address = opts.Address
		}
		if opts.StaticDir != "" {
			cfg.Server.StaticDir = opts.StaticDir
		}
	})
	if err != nil {
		return err
	}
	if opts.ConfigPath != "" {
		logger.Info("config loaded", "path", opts.ConfigPath)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	backend := cfg.ResolvedBackend()
	logger.Info("opening store", "backend", backend)
	st, err := opts.openStore(ctx, cfg)
	if err != nil {
		logger.Error("store connection failed", "backend", backend, "error", err)
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing store", "error", closeErr)
		}
	}()
	logger.Info("store ready", "backend", backend)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.Options{
		Store:        st,
		StaticDir:    cfg.Server.StaticDir,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Logger:       logger,
	})

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	logger.Info("listening", "addr", ln.Addr().String(), "static_dir", cfg.Server.StaticDir)
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on %s\n", ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr())
	}

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return WrapExitError(ExitFailure, "shutdown error", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}
