package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/middleware"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search reports over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ln, err := net.Listen("tcp", cfg.Server.Addr())
			if err != nil {
				return fmt.Errorf("listening on %s: %w", cfg.Server.Addr(), err)
			}
			return serve(ctx, cfg, ln)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "search port (overrides server.port)")
	return cmd
}

// serve runs the search server on ln, plus the admin server when enabled,
// until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a, err := buildApp(ctx, cfg, true)
	if err != nil {
		ln.Close()
		return err
	}

	search := handler.New(a.service)
	server := &http.Server{
		Handler:      searchChain(search, a.metrics, cfg.Server),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var shutdownAdmin func(context.Context) error
	if cfg.Admin.Enabled {
		stats := analytics.NewHandler(a.aggregator, a.snapshotReader())
		shutdownAdmin = metrics.StartServer(cfg.Admin.Port, a.metrics,
			metrics.Route{Pattern: "GET /health/live", Handler: a.checker.LiveHandler()},
			metrics.Route{Pattern: "GET /health/ready", Handler: a.checker.ReadyHandler()},
			metrics.Route{Pattern: "GET /api/v1/cache/stats", Handler: http.HandlerFunc(search.CacheStats)},
			metrics.Route{Pattern: "GET /api/v1/analytics", Handler: http.HandlerFunc(stats.Stats)},
			metrics.Route{Pattern: "GET /api/v1/analytics/snapshot", Handler: http.HandlerFunc(stats.Snapshot)},
		)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("search service listening", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Background workers stop on ctx before their backends are closed.
	cancel()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		slog.Error("server shutdown error", "error", serr)
	}
	if shutdownAdmin != nil {
		if serr := shutdownAdmin(shutdownCtx); serr != nil {
			slog.Error("admin server shutdown error", "error", serr)
		}
	}
	if cerr := a.Close(shutdownCtx); cerr != nil {
		slog.Error("releasing backends failed", "error", cerr)
	}
	slog.Info("search service stopped")
	return err
}

// searchChain wraps h with request IDs, metrics, the optional per-client
// rate limit and the optional request timeout. Every path reaches h.
func searchChain(h http.Handler, m *metrics.Metrics, cfg config.ServerConfig) http.Handler {
	chain := middleware.Timeout(cfg.RequestTimeout)(h)
	chain = middleware.RateLimit(cfg.RateLimit)(chain)
	chain = middleware.Metrics(m)(chain)
	return middleware.RequestID(chain)
}
