package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/catalog"
	"github.com/rodstewart/modelosctl/internal/config"
	"github.com/rodstewart/modelosctl/internal/listcache"
	"github.com/rodstewart/modelosctl/internal/logger"
)

var (
	cfgFile    string
	jsonOutput bool
	debugMode  bool
	flagURL    string
	flagToken  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "modelosctl",
	Short: "Modelos CLI - Browse and manage the Modelos catalog from the command line",
	Long: `modelosctl is a command-line front-end for the Modelos teaching-model catalog.

Configure your connection with 'modelosctl config init', sign in with
'modelosctl login', then use 'modelosctl list' to filter, sort and page
through the catalog.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
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
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (default ~/.config/modelosctl/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON instead of human-readable")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Modelos API URL (overrides config and env)")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "session token (overrides config and env)")
}

// loadConfig loads the configuration from file and environment variables,
// then applies CLI flag overrides if provided.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)

	// Browsing needs no session, so --url alone is enough to run
	// without a config file
	if err != nil {
		if flagURL != "" {
			cfg = config.Default()
			cfg.URL = flagURL
			cfg.Token = flagToken
			return cfg, nil
		}
		return nil, err
	}

	// Apply CLI flag overrides (highest precedence)
	if flagURL != "" {
		cfg.URL = flagURL
	}
	if flagToken != "" {
		cfg.Token = flagToken
	}

	return cfg, nil
}

// configPath returns --config or the default location
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// app bundles what most commands need
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	client *api.Client
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	log, err := logger.New(cfg.Log, debugMode)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return &app{
		cfg:    cfg,
		log:    log,
		client: api.NewClient(cfg.URL, cfg.Token, api.WithLogger(log)),
	}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) engine() *catalog.Engine {
	return catalog.NewEngine(a.log, catalog.WithDefaultSort(catalog.SortKey(a.cfg.DefaultSort)))
}

// listSource returns the entry list source, cached in Redis when configured.
// An unreachable Redis only disables caching.
func (a *app) listSource() *listcache.Cache {
	var rdb *redis.Client
	if a.cfg.Cache.Enabled() {
		client, err := listcache.NewRedis(a.cfg.Cache)
		if err != nil {
			a.log.Warn("list cache disabled", zap.Error(err))
		} else {
			rdb = client
		}
	}
	return listcache.New(a.client, rdb, a.cfg.Cache.TTL, a.log)
}

// invalidateLists drops cached lists after a write
func (a *app) invalidateLists(ctx context.Context) {
	if !a.cfg.Cache.Enabled() {
		return
	}
	source := a.listSource()
	defer func() { _ = source.Close() }()
	if err := source.Invalidate(ctx); err != nil {
		a.log.Warn("failed to invalidate list cache", zap.Error(err))
	}
}

// requireSession fails early for commands that need a signed-in user
func (a *app) requireSession() error {
	if !a.client.HasToken() {
		return fmt.Errorf("not signed in. Run 'modelosctl login' first")
	}
	return nil
}

func outputJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
