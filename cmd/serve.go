package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/philjestin/routegen/internal/generate"
	"github.com/philjestin/routegen/internal/notify"
	"github.com/philjestin/routegen/internal/route"
)

var serveAddr string

// serveCmd is watch plus a small HTTP surface for dev servers and dashboards.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch, and serve invalidations, the route table and metrics over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		gen, err := a.generator()
		if err != nil {
			return err
		}

		hub := notify.NewHub(a.log.Named("notify"))
		srv := &http.Server{
			Addr:              serveAddr,
			Handler:           newServeMux(a, gen, hub),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g, ctx := errgroup.WithContext(cmd.Context())
		g.Go(func() error {
			a.log.Info("serving", zap.String("addr", serveAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			defer func() {
				shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
				defer stop()
				_ = srv.Shutdown(shutdownCtx)
			}()
			return reconcileUntilDone(ctx, a, gen, func(res generate.Result) {
				hub.Invalidate(res.Outcome.Paths())
			})
		})
		return g.Wait()
	},
}

func newServeMux(a *app, gen *generate.Generator, hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.Handle("/metrics", promhttp.HandlerFor(a.reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/routes.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		table := gen.Table()
		if table == nil {
			table = []route.Descriptor{}
		}
		if err := enc.Encode(table); err != nil {
			a.log.Debug("write routes.json", zap.Error(err))
		}
	})
	return mux
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":5174", "address to listen on (e.g. :5174)")
}
