package generate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/metrics"
	"github.com/philjestin/routegen/internal/route"
)

type project struct {
	dir string
	cfg *config.Config
}

func newProject(t *testing.T) *project {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.AutoRoute.Home.Files = []string{"index"}
	require.Empty(t, cfg.Resolve(dir))
	require.Empty(t, cfg.Sanitize())
	return &project{dir: dir, cfg: &cfg}
}

func (p *project) page(t *testing.T, rel, content string) string {
	t.Helper()
	path := filepath.Join(p.cfg.AutoRoute.Dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (p *project) generator(t *testing.T, opts Options) *Generator {
	t.Helper()
	g, err := New(p.cfg, opts)
	require.NoError(t, err)
	return g
}

func paths(routes []route.Descriptor) []string {
	out := make([]string, 0, len(routes))
	for _, d := range routes {
		out = append(out, d.Path)
	}
	return out
}

func TestRun_HomeScopes(t *testing.T) {
	p := newProject(t)
	p.page(t, "index.vue", "")
	p.page(t, "user/index.vue", "")

	res, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/", "/user"}, paths(res.Routes))
}

func TestRun_IsIdempotent(t *testing.T) {
	p := newProject(t)
	p.page(t, "index.vue", "")
	p.page(t, "About.vue", `<script setup>definePage({ meta: { title: 'About us' } })</script>`)

	g := p.generator(t, Options{})
	first, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, first.Outcome.Written, 3)

	second, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, second.Outcome.Unchanged)
	assert.Empty(t, second.Outcome.Written)

	// a new instance has no fingerprint, but the disk already matches
	third, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, third.Outcome.Written)

	routes, err := os.ReadFile(p.cfg.Output.Routes)
	require.NoError(t, err)
	assert.Contains(t, string(routes), `meta: {"title":"About us"}`)
}

func TestRun_NestedParamsRenderAsJSON(t *testing.T) {
	p := newProject(t)
	p.page(t, "a.vue", `<script setup>definePage({ meta: { title: 'A', params: { tabs: { 1: 'x' } } } })</script>`)

	_, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)

	routes, err := os.ReadFile(p.cfg.Output.Routes)
	require.NoError(t, err)
	assert.Contains(t, string(routes), `meta: {"params":{"tabs":{"1":"x"}},"title":"A"},`)
	assert.NotContains(t, string(routes), "meta: ,")
}

func TestRun_ConflictKeepsFirst(t *testing.T) {
	p := newProject(t)
	first := p.page(t, "Dup.vue", "")
	second := p.page(t, "dup.vue", "")

	core, logs := observer.New(zapcore.WarnLevel)
	m := metrics.New(prometheus.NewRegistry())
	res, err := p.generator(t, Options{Logger: zap.New(core), Metrics: m}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"/dup"}, paths(res.Routes))
	assert.Equal(t, first, res.Routes[0].File)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, second, res.Conflicts[0].Dropped)
	assert.Equal(t, 1, logs.FilterMessage("route path conflict, dropping later file").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
}

func TestRun_PathsAreUnique(t *testing.T) {
	p := newProject(t)
	for _, rel := range []string{
		"index.vue", "Index.vue", "home.vue", "user/index.vue", "User.vue", "user.vue",
		"UserList.vue", "user-list.vue", "user/List.vue", "user/list.vue", "a/b/index.vue", "a/B.vue",
	} {
		p.page(t, rel, "")
	}

	res, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)

	seen, names := map[string]bool{}, map[string]bool{}
	for _, d := range res.Routes {
		assert.False(t, seen[d.Path], "duplicate path %s", d.Path)
		assert.False(t, names[d.Name], "duplicate name %s", d.Name)
		seen[d.Path] = true
		names[d.Name] = true
	}
	assert.NotEmpty(t, res.Conflicts)
}

func TestRun_NotFoundLast(t *testing.T) {
	p := newProject(t)
	p.cfg.NotFound.Enabled = true
	p.cfg.NotFound.Component = p.page(t, "NotFound.vue", "")
	p.page(t, "Zebra.vue", "")
	p.page(t, "About.vue", "")

	res, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Routes, 3)
	last := res.Routes[2]
	assert.Equal(t, "not-found", last.Name)
	assert.True(t, last.Hidden)
	assert.NotContains(t, paths(res.Routes), "/not-found")
}

func TestRun_GuardsSurviveChanges(t *testing.T) {
	p := newProject(t)
	p.page(t, "index.vue", "")
	g := p.generator(t, Options{})

	_, err := g.Run(context.Background())
	require.NoError(t, err)
	custom := []byte("// customized\n")
	require.NoError(t, os.WriteFile(p.cfg.Output.Guards, custom, 0o644))

	for _, rel := range []string{"A.vue", "B.vue", "C.vue"} {
		p.page(t, rel, "")
		res, err := g.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{p.cfg.Output.Routes}, res.Outcome.Paths())
	}

	got, err := os.ReadFile(p.cfg.Output.Guards)
	require.NoError(t, err)
	assert.Equal(t, custom, got)
}

func TestRun_WriteFailureIsRetried(t *testing.T) {
	p := newProject(t)
	p.page(t, "index.vue", "")
	routerDir := filepath.Dir(p.cfg.Output.Routes)
	require.NoError(t, os.WriteFile(routerDir, []byte("not a dir"), 0o644))

	m := metrics.New(prometheus.NewRegistry())
	g := p.generator(t, Options{Metrics: m})
	_, err := g.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, g.Table())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal.WithLabelValues(metrics.ResultError)))

	require.NoError(t, os.Remove(routerDir))
	res, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Outcome.Written, 3)
	assert.Len(t, g.Table(), 1)
}

func TestRun_MissingRoot(t *testing.T) {
	p := newProject(t)

	res, err := p.generator(t, Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Routes)
	assert.Len(t, res.Outcome.Written, 3)
}

func TestPlan_DoesNotWrite(t *testing.T) {
	p := newProject(t)
	p.page(t, "About.vue", "")

	plan, err := p.generator(t, Options{}).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"/about"}, paths(plan.Routes))

	_, err = os.Stat(p.cfg.Output.Routes)
	assert.True(t, os.IsNotExist(err))
}
