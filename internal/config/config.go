package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Config mirrors what viper will unmarshal from the CLI layer.
// It is sanitized once at startup and then treated as read-only.
type Config struct {
	Base      string         `mapstructure:"base" json:"base" yaml:"base"`
	Meta      map[string]any `mapstructure:"meta" json:"meta" yaml:"meta"`
	AutoRoute AutoRoute      `mapstructure:"autoRoute" json:"autoRoute" yaml:"autoRoute"`
	NotFound  NotFound       `mapstructure:"notFound" json:"notFound" yaml:"notFound"`
	Output    Output         `mapstructure:"output" json:"output" yaml:"output"`
	Watch     Watch          `mapstructure:"watch" json:"watch" yaml:"watch"`
	Log       Log            `mapstructure:"log" json:"log" yaml:"log"`
}

// AutoRoute controls how files under Dir become routes.
type AutoRoute struct {
	Dir         string   `mapstructure:"dir" json:"dir" yaml:"dir"`
	Extensions  []string `mapstructure:"extensions" json:"extensions" yaml:"extensions"`
	Exclude     []string `mapstructure:"exclude" json:"exclude" yaml:"exclude"`
	Prefix      string   `mapstructure:"prefix" json:"prefix" yaml:"prefix"`
	Lazy        bool     `mapstructure:"lazy" json:"lazy" yaml:"lazy"`
	Naming      Naming   `mapstructure:"naming" json:"naming" yaml:"naming"`
	Home        Home     `mapstructure:"home" json:"home" yaml:"home"`
	MetaMarkers []string `mapstructure:"metaMarkers" json:"metaMarkers" yaml:"metaMarkers"`
}

type Naming struct {
	KebabCase        bool     `mapstructure:"kebabCase" json:"kebabCase" yaml:"kebabCase"`
	PreserveFullPath bool     `mapstructure:"preserveFullPath" json:"preserveFullPath" yaml:"preserveFullPath"`
	StripSuffixes    []string `mapstructure:"stripSuffixes" json:"stripSuffixes" yaml:"stripSuffixes"`
}

// Home names the landing route of each directory scope.
// Files lists the exact (case-sensitive) stems treated as home files.
type Home struct {
	Path  string   `mapstructure:"path" json:"path" yaml:"path"`
	Name  string   `mapstructure:"name" json:"name" yaml:"name"`
	Files []string `mapstructure:"files" json:"files" yaml:"files"`
}

type NotFound struct {
	Enabled   bool   `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Path      string `mapstructure:"path" json:"path" yaml:"path"`
	Name      string `mapstructure:"name" json:"name" yaml:"name"`
	Component string `mapstructure:"component" json:"component" yaml:"component"`
}

// Output holds the artifact targets. None of them may live inside AutoRoute.Dir.
type Output struct {
	Routes string `mapstructure:"routes" json:"routes" yaml:"routes"`
	Config string `mapstructure:"config" json:"config" yaml:"config"`
	Guards string `mapstructure:"guards" json:"guards" yaml:"guards"`
}

type Watch struct {
	Debounce       time.Duration `mapstructure:"debounce" json:"debounce" yaml:"debounce"`
	ModifyDebounce time.Duration `mapstructure:"modifyDebounce" json:"modifyDebounce" yaml:"modifyDebounce"`
	RerunDelay     time.Duration `mapstructure:"rerunDelay" json:"rerunDelay" yaml:"rerunDelay"`
}

type Log struct {
	Level  string `mapstructure:"level" json:"level" yaml:"level"`
	Format string `mapstructure:"format" json:"format" yaml:"format"`
}

// DefaultHomeFiles is used when no home file list is configured.
// Matching stays exact; the list just spells out the common variants.
var DefaultHomeFiles = []string{"index", "Index", "home", "Home"}

// Default returns the configuration used when no file, env or flag overrides a key.
func Default() Config {
	return Config{
		Base: "/",
		Meta: map[string]any{},
		AutoRoute: AutoRoute{
			Dir:        "src/views",
			Extensions: []string{".vue"},
			Exclude:    []string{"**/components/**"},
			Lazy:       true,
			Naming: Naming{
				KebabCase:        true,
				PreserveFullPath: true,
			},
			Home: Home{
				Path:  "/",
				Name:  "home",
				Files: append([]string(nil), DefaultHomeFiles...),
			},
			MetaMarkers: []string{"definePage"},
		},
		NotFound: NotFound{
			Enabled: false,
			Path:    "/:pathMatch(.*)*",
			Name:    "not-found",
		},
		Output: Output{
			Routes: "src/router/routes.generated.ts",
			Config: "src/router/config.generated.ts",
			Guards: "src/router/guards.ts",
		},
		Watch: Watch{
			Debounce:       100 * time.Millisecond,
			ModifyDebounce: 300 * time.Millisecond,
			RerunDelay:     50 * time.Millisecond,
		},
		Log: Log{Level: "info", Format: "console"},
	}
}

// Sanitize repairs malformed values in place and returns one warning per repair.
// Nothing here is fatal: a bad value is reported and replaced by its default.
func (c *Config) Sanitize() []string {
	def := Default()
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if strings.TrimSpace(c.AutoRoute.Dir) == "" {
		warn("autoRoute.dir is empty, using %q", def.AutoRoute.Dir)
		c.AutoRoute.Dir = def.AutoRoute.Dir
	}

	if len(c.AutoRoute.Extensions) == 0 {
		warn("autoRoute.extensions is empty, using %v", def.AutoRoute.Extensions)
		c.AutoRoute.Extensions = def.AutoRoute.Extensions
	}
	exts := make([]string, 0, len(c.AutoRoute.Extensions))
	for _, ext := range c.AutoRoute.Extensions {
		ext = strings.TrimSpace(ext)
		if ext == "" || ext == "." {
			warn("autoRoute.extensions contains an empty entry, dropping it")
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			warn("autoRoute.extensions entry %q has no leading '.', using %q", ext, "."+ext)
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = def.AutoRoute.Extensions
	}
	c.AutoRoute.Extensions = exts

	if c.AutoRoute.Home.Files != nil {
		files := make([]string, 0, len(c.AutoRoute.Home.Files))
		for _, f := range c.AutoRoute.Home.Files {
			if strings.TrimSpace(f) == "" {
				warn("autoRoute.home.files contains a blank entry, dropping it")
				continue
			}
			files = append(files, f)
		}
		if len(files) == 0 {
			warn("autoRoute.home.files is empty, using %v", DefaultHomeFiles)
			files = append([]string(nil), DefaultHomeFiles...)
		}
		c.AutoRoute.Home.Files = files
	} else {
		c.AutoRoute.Home.Files = append([]string(nil), DefaultHomeFiles...)
	}
	if c.AutoRoute.Home.Path == "" || !strings.HasPrefix(c.AutoRoute.Home.Path, "/") {
		warn("autoRoute.home.path %q must start with '/', using %q", c.AutoRoute.Home.Path, def.AutoRoute.Home.Path)
		c.AutoRoute.Home.Path = def.AutoRoute.Home.Path
	}
	if c.AutoRoute.Home.Name == "" {
		c.AutoRoute.Home.Name = def.AutoRoute.Home.Name
	}

	if p := strings.TrimRight(c.AutoRoute.Prefix, "/"); p != "" && !strings.HasPrefix(p, "/") {
		warn("autoRoute.prefix %q must start with '/', using %q", c.AutoRoute.Prefix, "/"+p)
		c.AutoRoute.Prefix = "/" + p
	} else {
		c.AutoRoute.Prefix = p
	}

	if len(c.AutoRoute.MetaMarkers) == 0 {
		c.AutoRoute.MetaMarkers = def.AutoRoute.MetaMarkers
	}

	if c.NotFound.Enabled && c.NotFound.Component == "" {
		warn("notFound.enabled is set without notFound.component, disabling it")
		c.NotFound.Enabled = false
	}
	if c.NotFound.Path == "" {
		c.NotFound.Path = def.NotFound.Path
	}
	if c.NotFound.Name == "" {
		c.NotFound.Name = def.NotFound.Name
	}

	if c.Output.Routes == "" {
		warn("output.routes is empty, using %q", def.Output.Routes)
		c.Output.Routes = def.Output.Routes
	}
	if c.Output.Config == "" {
		warn("output.config is empty, using %q", def.Output.Config)
		c.Output.Config = def.Output.Config
	}
	if c.Output.Guards == "" {
		warn("output.guards is empty, using %q", def.Output.Guards)
		c.Output.Guards = def.Output.Guards
	}

	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = def.Watch.Debounce
	}
	if c.Watch.ModifyDebounce <= 0 {
		c.Watch.ModifyDebounce = def.Watch.ModifyDebounce
	}
	if c.Watch.RerunDelay <= 0 {
		c.Watch.RerunDelay = def.Watch.RerunDelay
	}
	if c.Meta == nil {
		c.Meta = map[string]any{}
	}
	if c.Base == "" {
		c.Base = def.Base
	}

	return warnings
}

// Resolve makes every configured path absolute against dir and reports
// outputs that would land inside the scan root.
func (c *Config) Resolve(dir string) []string {
	abs := func(p string) string {
		if p == "" {
			return ""
		}
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return filepath.Clean(p)
	}
	c.AutoRoute.Dir = abs(c.AutoRoute.Dir)
	c.NotFound.Component = abs(c.NotFound.Component)
	c.Output.Routes = abs(c.Output.Routes)
	c.Output.Config = abs(c.Output.Config)
	c.Output.Guards = abs(c.Output.Guards)

	var warnings []string
	for _, out := range []string{c.Output.Routes, c.Output.Config, c.Output.Guards} {
		if Within(c.AutoRoute.Dir, out) {
			warnings = append(warnings, fmt.Sprintf("output %s is inside the scan root %s; it will be scanned as a page", out, c.AutoRoute.Dir))
		}
	}
	return warnings
}

// Within reports whether path sits below root. Both must be absolute and clean.
func Within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
