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

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/graphwalk/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and explorer UI",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, VersionString(), server.Options{
		Logger:        logger,
		Explorer:      cfg.ExplorerOptions(),
		FrameInterval: cfg.FrameInterval(),
	})
	addr := cfg.ListenAddr()

	// Graceful shutdown. Explore sessions hold hijacked connections that
	// Shutdown does not track, so they end with the base context instead.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		warnf("graphwalk serving on http://%s\n", addr)
		warnf("  db: %s\n", db.Path)
		logger.Info("listening", zap.String("addr", addr), zap.String("db", db.Path))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		warnf("\nshutting down...\n")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
