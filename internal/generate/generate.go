// Package generate runs one regeneration pass: scan, map, resolve conflicts, emit.
package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/emit"
	"github.com/philjestin/routegen/internal/meta"
	"github.com/philjestin/routegen/internal/metrics"
	"github.com/philjestin/routegen/internal/route"
	"github.com/philjestin/routegen/internal/scan"
)

// Options carries the optional collaborators of a Generator.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// Meta overrides the metadata source; nil uses a cached tree-sitter
	// extractor built from cfg.AutoRoute.MetaMarkers.
	Meta route.MetaSource
}

// Plan is the route table of a pass before anything is written.
type Plan struct {
	Routes    []route.Descriptor
	Conflicts []route.Conflict
}

// Result describes a completed pass.
type Result struct {
	Plan
	Outcome  emit.Outcome
	Duration time.Duration
}

// Generator owns everything that survives between passes: the configuration
// and the fingerprint of the last successful commit. Passes must not overlap;
// the reconciliation loop guarantees that.
type Generator struct {
	cfg     *config.Config
	index   *scan.Index
	mapper  *route.Mapper
	log     *zap.Logger
	metrics *metrics.Metrics

	last string

	mu    sync.RWMutex
	table []route.Descriptor
}

// New returns a Generator for cfg, which must already be sanitized and resolved.
func New(cfg *config.Config, opts Options) (*Generator, error) {
	index, err := scan.NewIndex(cfg.AutoRoute.Dir, cfg.AutoRoute.Extensions, cfg.AutoRoute.Exclude)
	if err != nil {
		return nil, err
	}
	src := opts.Meta
	if src == nil {
		cache, err := meta.NewCache(meta.NewExtractor(cfg.AutoRoute.MetaMarkers), meta.DefaultCacheSize)
		if err != nil {
			return nil, err
		}
		src = cache
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		cfg:     cfg,
		index:   index,
		mapper:  route.NewMapper(cfg, src),
		log:     log,
		metrics: opts.Metrics,
	}, nil
}

// Index exposes the file filter so watchers can judge event relevance.
func (g *Generator) Index() *scan.Index { return g.index }

// Plan scans the tree and resolves the route table without writing.
// The not-found route, when enabled, is always offered last.
func (g *Generator) Plan(ctx context.Context) (Plan, error) {
	entries, err := g.index.Walk(ctx)
	if err != nil {
		return Plan{}, fmt.Errorf("scan %s: %w", g.index.Root(), err)
	}

	resolver := route.NewResolver(g.log)
	for _, e := range entries {
		if g.mapper.IsNotFound(e) {
			continue
		}
		resolver.Accept(g.mapper.Map(e))
	}
	if nf, ok := g.mapper.NotFound(); ok {
		resolver.Accept(nf)
	}
	return Plan{Routes: resolver.Accepted(), Conflicts: resolver.Conflicts()}, nil
}

// Run performs one full pass. On error nothing about the previous state is
// forgotten, so the next pass retries every write.
func (g *Generator) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	res, err := g.run(ctx)
	res.Duration = time.Since(start)

	switch {
	case err != nil:
		g.metrics.ObservePass(metrics.ResultError, res.Duration)
		g.log.Error("route generation failed", zap.Error(err), zap.Duration("took", res.Duration))
		return res, err
	case res.Outcome.Unchanged:
		g.metrics.ObservePass(metrics.ResultUnchanged, res.Duration)
		g.log.Debug("routes unchanged", zap.Int("routes", len(res.Routes)), zap.Duration("took", res.Duration))
	default:
		g.metrics.ObservePass(metrics.ResultWritten, res.Duration)
		g.log.Info("routes generated",
			zap.Int("routes", len(res.Routes)),
			zap.Int("conflicts", len(res.Conflicts)),
			zap.Strings("written", res.Outcome.Paths()),
			zap.Duration("took", res.Duration),
		)
	}
	return res, nil
}

func (g *Generator) run(ctx context.Context) (Result, error) {
	plan, err := g.Plan(ctx)
	if err != nil {
		return Result{}, err
	}
	g.metrics.ObserveConflicts(len(plan.Conflicts))

	set, err := emit.Render(plan.Routes, g.cfg)
	if err != nil {
		return Result{Plan: plan}, err
	}
	out, err := emit.Commit(set, g.last)
	for _, a := range out.Written {
		g.metrics.ObserveWrite(string(a.Kind))
	}
	if err != nil {
		return Result{Plan: plan, Outcome: out}, err
	}

	g.last = out.Fingerprint
	g.metrics.SetRoutes(len(plan.Routes))
	g.mu.Lock()
	g.table = plan.Routes
	g.mu.Unlock()
	return Result{Plan: plan, Outcome: out}, nil
}

// Table returns the route table of the last successful pass.
func (g *Generator) Table() []route.Descriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.table
}
