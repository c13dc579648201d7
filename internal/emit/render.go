// Package emit renders the route table, the config snapshot and the guard
// scaffold, and writes them to disk.
//
// Rendering is a pure function of the accepted descriptors and the
// configuration: the same inputs always produce byte-identical output, which
// is what makes fingerprint comparison meaningful.
package emit

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cespare/xxhash/v2"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/route"
)

// Kind names one of the three artifacts.
type Kind string

const (
	KindRoutes Kind = "routes"
	KindConfig Kind = "config"
	KindGuards Kind = "guards"
)

// Artifact is one rendered output.
type Artifact struct {
	Kind        Kind
	Path        string
	Content     []byte
	Fingerprint string
}

// Set is the output of one render.
type Set struct {
	Routes Artifact
	Config Artifact
	Guards Artifact
}

// All returns the artifacts in write order.
func (s Set) All() []Artifact { return []Artifact{s.Routes, s.Config, s.Guards} }

// Fingerprint covers all three contents, including the guards that may never be written.
func (s Set) Fingerprint() string {
	return Fingerprint(s.Routes.Content, s.Config.Content, s.Guards.Content)
}

// Fingerprint hashes contents in order. Each part is length-prefixed so
// moving bytes between parts changes the result.
func Fingerprint(contents ...[]byte) string {
	h := xxhash.New()
	for _, c := range contents {
		_, _ = h.WriteString(strconv.Itoa(len(c)))
		_, _ = h.WriteString(":")
		_, _ = h.Write(c)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

var templates = template.Must(template.New("emit").Funcs(sprig.TxtFuncMap()).Parse(routesTmpl + configTmpl + guardsTmpl))

// Render produces the artifact set for routes, in order, under cfg.
func Render(routes []route.Descriptor, cfg *config.Config) (Set, error) {
	var set Set
	var err error

	set.Routes, err = render(KindRoutes, cfg.Output.Routes, "routes", struct {
		Lazy   bool
		Routes []route.Descriptor
	}{cfg.AutoRoute.Lazy, routes})
	if err != nil {
		return Set{}, err
	}

	set.Config, err = render(KindConfig, cfg.Output.Config, "config", struct {
		Snapshot snapshot
	}{newSnapshot(cfg)})
	if err != nil {
		return Set{}, err
	}

	set.Guards, err = render(KindGuards, cfg.Output.Guards, "guards", struct {
		TypeScript   bool
		ConfigImport string
	}{
		TypeScript:   isTypeScript(cfg.Output.Guards),
		ConfigImport: moduleSpecifier(filepath.Dir(cfg.Output.Guards), cfg.Output.Config),
	})
	if err != nil {
		return Set{}, err
	}
	return set, nil
}

func render(kind Kind, path, name string, data any) (Artifact, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return Artifact{}, fmt.Errorf("render %s: %w", kind, err)
	}
	content := buf.Bytes()
	return Artifact{
		Kind:        kind,
		Path:        path,
		Content:     content,
		Fingerprint: Fingerprint(content),
	}, nil
}

// snapshot mirrors the active configuration for runtime consumers.
// Paths are relative to the config artifact so the output does not depend on the checkout location.
type snapshot struct {
	Base      string            `json:"base"`
	Meta      map[string]any    `json:"meta"`
	AutoRoute autoRouteSnapshot `json:"autoRoute"`
	NotFound  notFoundSnapshot  `json:"notFound"`
}

type autoRouteSnapshot struct {
	Dir        string        `json:"dir"`
	Extensions []string      `json:"extensions"`
	Exclude    []string      `json:"exclude"`
	Prefix     string        `json:"prefix"`
	Lazy       bool          `json:"lazy"`
	Naming     config.Naming `json:"naming"`
	Home       config.Home   `json:"home"`
}

type notFoundSnapshot struct {
	Enabled   bool   `json:"enabled"`
	Path      string `json:"path"`
	Name      string `json:"name"`
	Component string `json:"component,omitempty"`
}

func newSnapshot(cfg *config.Config) snapshot {
	dir := filepath.Dir(cfg.Output.Config)
	nf := notFoundSnapshot{
		Enabled: cfg.NotFound.Enabled,
		Path:    cfg.NotFound.Path,
		Name:    cfg.NotFound.Name,
	}
	if cfg.NotFound.Component != "" {
		nf.Component = relSlash(dir, cfg.NotFound.Component)
	}
	naming := cfg.AutoRoute.Naming
	if naming.StripSuffixes == nil {
		naming.StripSuffixes = []string{}
	}
	exclude := cfg.AutoRoute.Exclude
	if exclude == nil {
		exclude = []string{}
	}
	m := cfg.Meta
	if m == nil {
		m = map[string]any{}
	}
	return snapshot{
		Base: cfg.Base,
		Meta: m,
		AutoRoute: autoRouteSnapshot{
			Dir:        relSlash(dir, cfg.AutoRoute.Dir),
			Extensions: cfg.AutoRoute.Extensions,
			Exclude:    exclude,
			Prefix:     cfg.AutoRoute.Prefix,
			Lazy:       cfg.AutoRoute.Lazy,
			Naming:     naming,
			Home:       cfg.AutoRoute.Home,
		},
		NotFound: nf,
	}
}

func relSlash(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}

// moduleSpecifier returns an extensionless import path from dir to target.
func moduleSpecifier(dir, target string) string {
	spec := relSlash(dir, target)
	for _, ext := range []string{".ts", ".js", ".mjs", ".mts"} {
		if strings.HasSuffix(spec, ext) {
			spec = strings.TrimSuffix(spec, ext)
			break
		}
	}
	if !strings.HasPrefix(spec, "../") && !strings.HasPrefix(spec, "/") {
		spec = "./" + spec
	}
	return spec
}

func isTypeScript(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".ts" || ext == ".mts" || ext == ".tsx"
}
