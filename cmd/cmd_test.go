package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/generate"
	"github.com/philjestin/routegen/internal/metrics"
	"github.com/philjestin/routegen/internal/notify"
	"github.com/philjestin/routegen/internal/reconcile"
	"github.com/philjestin/routegen/internal/route"
	"github.com/philjestin/routegen/internal/scan"
)

func write(t *testing.T, path string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, dir, file string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.Set("root", dir)
	_, err := readConfig(v, file)
	require.NoError(t, err)
	return v
}

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.yaml"), `
meta:
  title: My App
  requiresAuth: true
autoRoute:
  dir: pages
  home:
    files: [index]
  naming:
    stripSuffixes: [View]
watch:
  debounce: 150ms
`)
	v := load(t, dir, "")
	assert.Equal(t, filepath.Join(dir, "routegen.config.yaml"), v.ConfigFileUsed())

	cfg, warnings, err := loadConfig(v)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, filepath.Join(dir, "pages"), cfg.AutoRoute.Dir)
	assert.Equal(t, []string{"index"}, cfg.AutoRoute.Home.Files)
	assert.Equal(t, []string{"View"}, cfg.AutoRoute.Naming.StripSuffixes)
	assert.Equal(t, []string{".vue"}, cfg.AutoRoute.Extensions)
	assert.True(t, cfg.AutoRoute.Lazy)
	assert.Equal(t, 150*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.ModifyDebounce)
	assert.Equal(t, map[string]any{"title": "My App", "requiresAuth": true}, cfg.Meta)
	assert.Equal(t, filepath.Join(dir, "src", "router", "routes.generated.ts"), cfg.Output.Routes)
}

func TestLoadConfig_JSONMetaKeepsCase(t *testing.T) {
	dir := t.TempDir()
	file := write(t, filepath.Join(dir, "custom.json"), "{\n\t\"meta\": {\"keepAlive\": true}\n}\n")

	cfg, _, err := loadConfig(load(t, dir, file))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"keepAlive": true}, cfg.Meta)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.yaml"), "autoRoute:\n  prefix: /app\n")
	t.Setenv("ROUTEGEN_AUTOROUTE_PREFIX", "/admin")
	t.Setenv("ROUTEGEN_LOG_LEVEL", "debug")

	cfg, _, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	assert.Equal(t, "/admin", cfg.AutoRoute.Prefix)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfig_YAMLMetaNumericKeys(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.yaml"), "meta:\n  labels:\n    1: first\n")

	cfg, _, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"labels": map[string]any{"1": "first"}}, cfg.Meta)
}

func TestLoadConfig_TOMLMetaKeepsCase(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.toml"), "[meta]\nrequiresAuth = true\n\n[autoRoute]\nlazy = false\n")

	cfg, _, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"requiresAuth": true}, cfg.Meta)
	assert.False(t, cfg.AutoRoute.Lazy)
}

func TestReadConfig_DotEnv(t *testing.T) {
	const key = "ROUTEGEN_AUTOROUTE_DIR"
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))

	dir := t.TempDir()
	write(t, filepath.Join(dir, ".env"), key+"=app/pages\n")

	cfg, _, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "app", "pages"), cfg.AutoRoute.Dir)
}

func TestLoadConfig_WarningsAreNotFatal(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.yaml"), `
autoRoute:
  dir: ""
  extensions: [vue]
  home:
    files: ["  "]
output:
  routes: src/views/routes.ts
`)
	cfg, warnings, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	// empty dir, bare extension, blank home stem, empty home list, output inside the scan root
	assert.Len(t, warnings, 5)
	assert.Equal(t, []string{".vue"}, cfg.AutoRoute.Extensions)
	assert.Equal(t, filepath.Join(dir, "src", "views"), cfg.AutoRoute.Dir)
}

func TestReadConfig_MissingDefaultFileIsFine(t *testing.T) {
	v := load(t, t.TempDir(), "")
	assert.Empty(t, v.ConfigFileUsed())
}

func TestReadConfig_ExplicitFileMustExist(t *testing.T) {
	v := viper.New()
	_, err := readConfig(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRelevance(t *testing.T) {
	dir := t.TempDir()
	ix, err := scan.NewIndex(dir, []string{".vue"}, nil)
	require.NoError(t, err)
	out := filepath.Join(dir, "routes.generated.vue")
	rel := relevance(ix, out)

	assert.True(t, rel(reconcile.Event{Op: reconcile.OpCreate, Path: filepath.Join(dir, "About.vue")}))
	assert.False(t, rel(reconcile.Event{Op: reconcile.OpModify, Path: filepath.Join(dir, "notes.md")}))
	assert.False(t, rel(reconcile.Event{Op: reconcile.OpModify, Path: out}))
	assert.True(t, rel(reconcile.Event{Op: reconcile.OpRemove, Path: filepath.Join(dir, "user"), Dir: true}))
	assert.False(t, rel(reconcile.Event{Op: reconcile.OpRemove, Path: filepath.Join(dir, ".git"), Dir: true}))
}

func TestPrintPlan(t *testing.T) {
	color.NoColor = true
	root := "/app/src/views"
	plan := generate.Plan{
		Routes: []route.Descriptor{
			{Path: "/", Name: "home", Title: "Home", File: "/app/src/views/index.vue"},
			{Path: "/user-list", Name: "user-list", Title: "User List", File: "/app/src/views/UserList.vue"},
		},
		Conflicts: []route.Conflict{
			{Path: "/user-list", Kept: "/app/src/views/UserList.vue", Dropped: "/app/src/views/user-list.vue"},
			{Path: "/user/list", Name: "user-list", Kept: "/app/src/views/UserList.vue", Dropped: "/app/src/views/user/list.vue"},
		},
	}

	var buf bytes.Buffer
	printPlan(&buf, plan, root)
	out := buf.String()

	assert.Contains(t, out, "PATH")
	assert.Contains(t, out, "/user-list  user-list  User List  UserList.vue")
	assert.Contains(t, out, "routes: 2")
	assert.Contains(t, out, "conflicts: 2")
	assert.Contains(t, out, "/user-list UserList.vue kept, user-list.vue dropped")
	assert.Contains(t, out, "name user-list UserList.vue kept, user/list.vue (/user/list) dropped")
}

func TestServeMux(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "routegen.config.yaml"), "autoRoute:\n  dir: views\n")
	write(t, filepath.Join(dir, "views", "About.vue"), "")

	cfg, _, err := loadConfig(load(t, dir, ""))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	a := &app{cfg: cfg, log: zap.NewNop(), reg: reg, metrics: metrics.New(reg)}
	gen, err := a.generator()
	require.NoError(t, err)

	srv := httptest.NewServer(newServeMux(a, gen, notify.NewHub(nil)))
	defer srv.Close()

	get := func(path string) *http.Response {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return resp
	}

	var before []route.Descriptor
	require.NoError(t, json.NewDecoder(get("/routes.json").Body).Decode(&before))
	assert.Empty(t, before)

	_, err = gen.Run(context.Background())
	require.NoError(t, err)

	var after []route.Descriptor
	require.NoError(t, json.NewDecoder(get("/routes.json").Body).Decode(&after))
	require.Len(t, after, 1)
	assert.Equal(t, "/about", after[0].Path)
	assert.Equal(t, "../../views/About.vue", after[0].Import)

	var body bytes.Buffer
	_, err = body.ReadFrom(get("/metrics").Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), "routegen_passes_total")
}
