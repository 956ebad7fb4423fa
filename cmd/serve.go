package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bnema/outreach-quota/internal/adapters/httpapi"
	"github.com/bnema/outreach-quota/internal/logger"
	"github.com/spf13/cobra"
)

func newServeCmd(app *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the allocation API over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(listen) == "" {
				listen = app.cfg.HTTP.Listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := app.allocations(ctx)
			if err != nil {
				return err
			}

			router := httpapi.NewRouter(svc, httpapi.Options{
				RateLimit: app.cfg.HTTP.RateLimit,
				Burst:     app.cfg.HTTP.Burst,
				Clock:     app.clock,
				Health:    app.ping,
			})

			listener, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", listen, err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Serving allocations on http://%s\n", listener.Addr())
			return serveUntilDone(ctx, listener, router, app.cfg.HTTP.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (default from http.listen)")

	return cmd
}

// serveUntilDone serves on listener until ctx is cancelled, then drains
// in-flight requests for at most grace.
func serveUntilDone(ctx context.Context, listener net.Listener, handler http.Handler, grace time.Duration) error {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	logger.Info("http server started", "addr", listener.Addr().String())

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	logger.Info("http server shutting down", "grace", grace.String())
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}
