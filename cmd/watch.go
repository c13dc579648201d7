package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/generate"
	"github.com/philjestin/routegen/internal/reconcile"
	"github.com/philjestin/routegen/internal/scan"
	"github.com/philjestin/routegen/internal/watch"
)

// watchCmd runs the startup pass, then regenerates whenever page files change.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Generate once, then keep the route artifacts in sync with the page directory",
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
		return reconcileUntilDone(cmd.Context(), a, gen, nil)
	},
}

// reconcileUntilDone drives gen from file-system events until ctx is cancelled.
// onPass, if set, sees every successful pass.
func reconcileUntilDone(ctx context.Context, a *app, gen *generate.Generator, onPass func(generate.Result)) error {
	cfg := a.cfg
	loop := reconcile.New(func(ctx context.Context) error {
		res, err := gen.Run(ctx)
		if err == nil && onPass != nil {
			onPass(res)
		}
		return err
	}, reconcile.Options{
		Debounce:       cfg.Watch.Debounce,
		ModifyDebounce: cfg.Watch.ModifyDebounce,
		RerunDelay:     cfg.Watch.RerunDelay,
		Relevant:       relevance(gen.Index(), cfg.Output.Routes, cfg.Output.Config, cfg.Output.Guards),
		Logger:         a.log.Named("reconcile"),
		Metrics:        a.metrics,
	})
	defer loop.Close()

	// start watching before the startup pass so nothing written during it is missed
	w, werr := watch.New(cfg.AutoRoute.Dir, a.log.Named("watch"))
	if werr != nil {
		a.log.Warn("not watching; restart once the directory exists", zap.String("dir", cfg.AutoRoute.Dir), zap.Error(werr))
	} else {
		defer w.Close()
	}

	// a failed startup pass is already logged, and the next change retries it
	_ = loop.Start(ctx)

	if w == nil {
		<-ctx.Done()
		return nil
	}
	a.log.Info("watching", zap.String("dir", cfg.AutoRoute.Dir), zap.Int("dirs", w.Dirs()))
	if err := w.Run(ctx, loop.Notify); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// relevance accepts page files the index would pick up and directories inside the scan root.
// Writes to the generated outputs are ignored so a pass never triggers itself.
func relevance(ix *scan.Index, outputs ...string) func(reconcile.Event) bool {
	return func(ev reconcile.Event) bool {
		for _, out := range outputs {
			if ev.Path == out {
				return false
			}
		}
		if ev.Dir {
			return ix.Covers(ev.Path)
		}
		return ix.Matches(ev.Path)
	}
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
