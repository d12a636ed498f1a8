package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/frc-scouting/scoutqr/internal/api"
	"github.com/frc-scouting/scoutqr/internal/monitoring"
	"github.com/frc-scouting/scoutqr/internal/report"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen string
		scan   bool
		o      scanOpts
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit report and the debug SQL console",
		Long: `Serve the live audit report at /, the JSON API under /api/ and the debug
routes under /debug/, including a SQL console on the scouting database and a
database backup. POST /api/ingest takes newline-delimited payloads.

With --scan the serial scanner is read at the same time and its payloads are
ingested every flush_interval; a live tail of scanned payloads is served at
/debug/scanner-tail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd)
			defer stop()

			s, err := a.openSession()
			if err != nil {
				return err
			}
			defer s.Close()

			mux := http.NewServeMux()
			if err := s.db.AttachAdminRoutes(mux); err != nil {
				return err
			}
			apiMux := api.NewServer(s.reg, s.db, s.pipe).ServeMux()
			mux.Handle("/api/", http.StripPrefix("/api", apiMux))
			mux.Handle("/", report.Handler(s.db, defaultReportTitle))

			var wg sync.WaitGroup
			if scan {
				sc, source, err := a.openScanner(o)
				if err != nil {
					return err
				}
				sc.AttachAdminRoutes(mux)
				wg.Add(1)
				go func() {
					defer wg.Done()
					if err := runScanner(ctx, s.pipe, sc, source, a.cfg.GetFlushInterval()); err != nil {
						monitoring.Error("scan routine failed", "err", err)
					}
				}()
			}

			addr := listen
			if addr == "" {
				addr = a.cfg.GetListenAddr()
			}
			err = serveHTTP(ctx, addr, mux)
			stop()
			wg.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides listen_addr)")
	cmd.Flags().BoolVar(&scan, "scan", false, "also ingest from the serial scanner")
	o.register(cmd)
	return cmd
}

// serveHTTP runs an HTTP server on addr until ctx is done, then shuts it
// down gracefully.
func serveHTTP(ctx context.Context, addr string, mux *http.ServeMux) error {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		monitoring.Debug("request", "method", r.Method, "path", r.URL.Path)
		mux.ServeHTTP(w, r)
	})
	server := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	monitoring.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Warn("HTTP server shutdown error", "err", err)
	}
	return nil
}
