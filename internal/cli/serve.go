package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	intakehttp "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/catalog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pruneEvery is how often submitted sessions are dropped from memory.
const pruneEvery = time.Minute

// Handler builds the HTTP API of the App, with /metrics when enabled.
func (a *App) Handler() http.Handler {
	opts := []intakehttp.Option{
		intakehttp.WithStreams(a.Streams),
		intakehttp.WithLogger(a.Logger),
		intakehttp.WithSchemas(catalog.Schemas()),
	}
	if a.Metrics != nil {
		opts = append(opts, intakehttp.WithHandler("/metrics", promhttp.HandlerFor(a.Metrics, promhttp.HandlerOpts{})))
	}
	return intakehttp.NewHandler(a.Sessions, a.Directory, opts...)
}

// Serve runs the HTTP API on addr until ctx is cancelled, then shuts down
// within the configured timeout.
func Serve(ctx context.Context, app *App, addr string, out io.Writer) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Serving intake API on %s", addr)
		serverErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(pruneEvery)
	defer ticker.Stop()

	for {
		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-ticker.C:
			if n := app.Sessions.Prune(); n > 0 {
				app.Logger.Debug("pruned submitted sessions", "count", n)
			}
		case <-ctx.Done():
			timeout := app.Config.Server.ShutdownTimeout
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			printSystemMessage(out, "Shutting down...")
			if err := srv.Shutdown(shutdownCtx); err != nil {
				app.Logger.Warn("graceful shutdown did not complete", "timeout", timeout, "err", err)
				return srv.Close()
			}
			printSystemMessage(out, "Server stopped gracefully")
			return nil
		}
	}
}
