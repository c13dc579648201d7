package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/philjestin/routegen/internal/config"
	"github.com/philjestin/routegen/internal/generate"
	"github.com/philjestin/routegen/internal/logging"
	"github.com/philjestin/routegen/internal/metrics"
)

// cfgFile stores an optional explicit path to a config file
// (if not provided we look for routegen.config.{json,yaml,toml} in --root).
var cfgFile string

// workspace (aka --root) is the project directory all configured paths are relative to.
var workspace string

var logLevel string

var rootCmd = &cobra.Command{
	Use:           "routegen",
	Short:         "Generate SPA route tables from a directory of page components",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE executes before any subcommand; we use it to load config/env.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		used, err := readConfig(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		if used != "" {
			fmt.Fprintln(os.Stderr, "Using config file:", used)
		}
		return nil
	},
}

// app is what every subcommand works with once config is loaded.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	reg     *prometheus.Registry
	metrics *metrics.Metrics
}

// newApp merges config from viper, builds the logger and reports config warnings through it.
func newApp() (*app, error) {
	cfg, warnings, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	for _, w := range warnings {
		log.Warn("config", zap.String("problem", w))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &app{cfg: cfg, log: log, reg: reg, metrics: metrics.New(reg)}, nil
}

func (a *app) generator() (*generate.Generator, error) {
	return generate.New(a.cfg, generate.Options{Logger: a.log.Named("generate"), Metrics: a.metrics})
}

func (a *app) close() { _ = logging.Sync(a.log) }

// Execute is called from main.go and starts the CLI.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Define persistent flags that apply to all subcommands.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: <root>/routegen.config.{json,yaml,toml})")
	rootCmd.PersistentFlags().StringVar(&workspace, "root", ".", "project root; configured paths are relative to it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error")

	// Bind these flags to viper keys so config/env/flags merge cleanly.
	_ = viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
