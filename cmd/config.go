package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/meta"
)

const (
	configName = "routegen.config"
	envPrefix  = "ROUTEGEN"
)

// readConfig wires env and config-file sources into v and returns the file used, if any.
// A missing default config file is fine; an explicit --config that cannot be read is not.
func readConfig(v *viper.Viper, file string) (string, error) {
	// Read env vars with prefix ROUTEGEN_, e.g. ROUTEGEN_AUTOROUTE_DIR
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	// a project .env may carry ROUTEGEN_ settings; real env vars win
	_ = godotenv.Load(filepath.Join(rootOf(v), ".env"))

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(rootOf(v))
		v.SetConfigName(configName)
		// Let viper detect the extension (json/yaml/toml) automatically.
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return "", nil
		}
		return "", fmt.Errorf("read config: %w", err)
	}
	return v.ConfigFileUsed(), nil
}

// setDefaults registers every key viper should know about, so env vars can override keys
// that no config file mentions.
func setDefaults(v *viper.Viper) {
	d := config.Default()
	v.SetDefault("root", ".")
	v.SetDefault("base", d.Base)
	v.SetDefault("autoRoute.dir", d.AutoRoute.Dir)
	v.SetDefault("autoRoute.extensions", d.AutoRoute.Extensions)
	v.SetDefault("autoRoute.exclude", d.AutoRoute.Exclude)
	v.SetDefault("autoRoute.prefix", d.AutoRoute.Prefix)
	v.SetDefault("autoRoute.lazy", d.AutoRoute.Lazy)
	v.SetDefault("autoRoute.naming.kebabCase", d.AutoRoute.Naming.KebabCase)
	v.SetDefault("autoRoute.naming.preserveFullPath", d.AutoRoute.Naming.PreserveFullPath)
	v.SetDefault("autoRoute.naming.stripSuffixes", []string{})
	v.SetDefault("autoRoute.home.path", d.AutoRoute.Home.Path)
	v.SetDefault("autoRoute.home.name", d.AutoRoute.Home.Name)
	// no default: an unset list falls back to config.DefaultHomeFiles in Sanitize
	_ = v.BindEnv("autoRoute.home.files")
	v.SetDefault("autoRoute.metaMarkers", d.AutoRoute.MetaMarkers)
	v.SetDefault("notFound.enabled", d.NotFound.Enabled)
	v.SetDefault("notFound.path", d.NotFound.Path)
	v.SetDefault("notFound.name", d.NotFound.Name)
	v.SetDefault("notFound.component", "")
	v.SetDefault("output.routes", d.Output.Routes)
	v.SetDefault("output.config", d.Output.Config)
	v.SetDefault("output.guards", d.Output.Guards)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.modifyDebounce", d.Watch.ModifyDebounce)
	v.SetDefault("watch.rerunDelay", d.Watch.RerunDelay)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func rootOf(v *viper.Viper) string {
	if root := v.GetString("root"); root != "" {
		return root
	}
	return "."
}

// loadConfig unmarshals v into a sanitized Config with paths resolved against the root.
// The returned warnings are not fatal.
func loadConfig(v *viper.Viper) (*config.Config, []string, error) {
	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("config unmarshal: %w", err)
	}

	var warnings []string
	// viper lowercases map keys; meta keys are case-sensitive, so reread them from the file
	if m, err := rawMeta(v.ConfigFileUsed()); err != nil {
		warnings = append(warnings, fmt.Sprintf("meta: %v", err))
	} else if m != nil {
		cfg.Meta = m
	}

	warnings = append(warnings, cfg.Sanitize()...)

	root, err := filepath.Abs(rootOf(v))
	if err != nil {
		return nil, nil, fmt.Errorf("resolve root: %w", err)
	}
	warnings = append(warnings, cfg.Resolve(root)...)
	return &cfg, warnings, nil
}

// rawMeta returns the top-level meta section of a config file with its key case intact.
func rawMeta(path string) (map[string]any, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	case ".toml":
		unmarshal = toml.Unmarshal
	default:
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc struct {
		Meta map[string]any `json:"meta" yaml:"meta" toml:"meta"`
	}
	if err := unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return meta.StringKeys(doc.Meta), nil
}
