package route

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/meta"
	"github.com/philjestin/routegen/internal/scan"
)

// NotFoundTitle is the title of the synthetic not-found route.
const NotFoundTitle = "404 Not Found"

// MetaSource supplies per-file metadata. *meta.Extractor satisfies it.
type MetaSource interface {
	ExtractFile(path string) (meta.Meta, bool)
}

// Mapper derives route descriptors from scan entries.
type Mapper struct {
	cfg      *config.Config
	meta     MetaSource
	homes    map[string]struct{}
	notFound string
	routeDir string
}

// NewMapper returns a Mapper for cfg. src may be nil, in which case no file metadata is read.
func NewMapper(cfg *config.Config, src MetaSource) *Mapper {
	homes := make(map[string]struct{}, len(cfg.AutoRoute.Home.Files))
	for _, f := range cfg.AutoRoute.Home.Files {
		homes[f] = struct{}{}
	}
	m := &Mapper{
		cfg:      cfg,
		meta:     src,
		homes:    homes,
		routeDir: filepath.Dir(cfg.Output.Routes),
	}
	if cfg.NotFound.Enabled && cfg.NotFound.Component != "" {
		m.notFound = normalize(cfg.NotFound.Component)
	}
	return m
}

// IsNotFound reports whether e is the configured not-found component.
// Such an entry is never mapped by Map; it is emitted once through NotFound.
func (m *Mapper) IsNotFound(e scan.Entry) bool {
	return m.notFound != "" && normalize(e.Abs) == m.notFound
}

// Map derives the descriptor for e.
func (m *Mapper) Map(e scan.Entry) Descriptor {
	var path, name, title string

	if _, home := m.homes[e.Stem]; home {
		if len(e.Dirs) == 0 {
			path = m.cfg.AutoRoute.Home.Path
			name = m.cfg.AutoRoute.Home.Name
			title = capitalize(name)
		} else {
			segs := m.caseSegments(e.Dirs)
			path = m.cfg.AutoRoute.Prefix + "/" + strings.Join(segs, "/")
			name = strings.Join(segs, "-")
			title = titleOf(segs)
		}
	} else {
		segs := m.Segments(e)
		path = m.cfg.AutoRoute.Prefix + "/" + strings.Join(segs, "/")
		name = strings.Join(segs, "-")
		title = titleOf(segs)
	}

	var extracted meta.Meta
	if m.meta != nil {
		extracted, _ = m.meta.ExtractFile(e.Abs)
	}
	merged := m.merge(extracted, title)

	d := Descriptor{
		Path:   path,
		Name:   name,
		Meta:   merged,
		Import: m.importFor(e.Abs),
		File:   e.Abs,
	}
	d.Title, _ = merged[meta.FieldTitle].(string)
	d.Hidden, _ = merged[meta.FieldHidden].(bool)
	return d
}

// NotFound returns the synthetic not-found descriptor, if enabled.
func (m *Mapper) NotFound() (Descriptor, bool) {
	if m.notFound == "" {
		return Descriptor{}, false
	}
	merged := m.merge(nil, "")
	merged[meta.FieldTitle] = NotFoundTitle
	merged[meta.FieldHidden] = true
	return Descriptor{
		Path:   m.cfg.NotFound.Path,
		Name:   m.cfg.NotFound.Name,
		Title:  NotFoundTitle,
		Meta:   merged,
		Import: m.importFor(m.notFound),
		File:   m.notFound,
		Hidden: true,
	}, true
}

// Segments returns the transformed segments of a non-home entry:
// the configured suffix is stripped from the last segment, then every
// segment is kebab-cased when enabled.
func (m *Mapper) Segments(e scan.Entry) []string {
	var segs []string
	if m.cfg.AutoRoute.Naming.PreserveFullPath {
		segs = append(segs, e.Dirs...)
	}
	segs = append(segs, stripSuffix(e.Stem, m.cfg.AutoRoute.Naming.StripSuffixes))
	return m.caseSegments(segs)
}

func (m *Mapper) caseSegments(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		if m.cfg.AutoRoute.Naming.KebabCase {
			s = kebab(s)
		}
		out[i] = s
	}
	return out
}

// merge layers defaults < extracted < fallback title. The fallback only
// applies when neither earlier layer set a title.
func (m *Mapper) merge(extracted meta.Meta, fallbackTitle string) map[string]any {
	out := make(map[string]any, len(m.cfg.Meta)+len(extracted)+1)
	for k, v := range m.cfg.Meta {
		out[k] = v
	}
	for k, v := range extracted {
		out[k] = v
	}
	if _, ok := out[meta.FieldTitle]; !ok && fallbackTitle != "" {
		out[meta.FieldTitle] = fallbackTitle
	}
	return out
}

func (m *Mapper) importFor(abs string) string {
	rel, err := filepath.Rel(m.routeDir, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, "../") {
		rel = "./" + rel
	}
	return rel
}

// stripSuffix removes the first suffix in order that s ends with,
// unless that would leave nothing.
func stripSuffix(s string, suffixes []string) string {
	for _, suf := range suffixes {
		if suf != "" && strings.HasSuffix(s, suf) && len(s) > len(suf) {
			return strings.TrimSuffix(s, suf)
		}
	}
	return s
}

// kebab inserts '-' before every upper-case letter after the first rune and lower-cases the result.
func kebab(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	var prev rune
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) && prev != '-' && prev != '_' {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return b.String()
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func titleOf(segs []string) string {
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = capitalize(s)
	}
	return strings.Join(parts, " ")
}

func normalize(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}
