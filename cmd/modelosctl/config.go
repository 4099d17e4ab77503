package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rodstewart/modelosctl/internal/api"
	"github.com/rodstewart/modelosctl/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage modelosctl configuration",
	Long:  `Manage your modelosctl configuration including the API URL, session token and display preferences.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long: `Create a new configuration file by prompting for the Modelos API URL.

A session token is optional; browsing the catalog works without one.
Use 'modelosctl login' to sign in later.`,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long:  `Show the current configuration with the session token redacted for security.`,
	RunE:  runConfigShow,
}

var configTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connection to the Modelos API",
	Long:  `Verify that the configured URL can successfully reach the Modelos API.`,
	RunE:  runConfigTest,
}

var configViewCmd = &cobra.Command{
	Use:   "view <grid|list>",
	Short: "Set the default result layout",
	Long: `Persist the layout used by 'modelosctl list'.

Examples:
  modelosctl config view list
  modelosctl config view grid`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{config.ViewGrid, config.ViewList},
	RunE:      runConfigView,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configTestCmd)
	configCmd.AddCommand(configViewCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Modelos API URL: ")
	url, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read URL: %w", err)
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("URL is required")
	}

	fmt.Print("Session token (optional): ")
	token, err := readSecret(reader)
	if err != nil {
		return fmt.Errorf("failed to read token: %w", err)
	}

	cfg := config.Default()
	cfg.URL = url
	cfg.Token = token
	if err := cfg.Validate(); err != nil {
		return err
	}

	path, err := configPath()
	if err != nil {
		return err
	}
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]string{
			"status": "success",
			"path":   path,
		})
	}

	fmt.Printf("✓ Configuration saved to %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	cache := "disabled"
	if cfg.Cache.Enabled() {
		cache = fmt.Sprintf("redis://%s/%d (ttl %s)", cfg.Cache.RedisAddr, cfg.Cache.RedisDB, cfg.Cache.TTL)
	}

	if jsonOutput {
		return outputJSON(map[string]interface{}{
			"url":          cfg.URL,
			"token":        redactToken(cfg.Token),
			"view":         cfg.View,
			"page_size":    cfg.PageSize,
			"window_size":  cfg.WindowSize,
			"default_sort": cfg.DefaultSort,
			"cache":        cache,
		})
	}

	fmt.Printf("URL:          %s\n", cfg.URL)
	fmt.Printf("Token:        %s\n", redactToken(cfg.Token))
	fmt.Printf("View:         %s\n", cfg.View)
	fmt.Printf("Page size:    %d\n", cfg.PageSize)
	fmt.Printf("Page window:  %d\n", cfg.WindowSize)
	fmt.Printf("Default sort: %s\n", cfg.DefaultSort)
	fmt.Printf("Cache:        %s\n", cache)
	return nil
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := api.NewClient(cfg.URL, cfg.Token)
	if err := client.TestConnection(cmd.Context()); err != nil {
		if jsonOutput {
			_ = outputJSON(map[string]string{
				"status": "failed",
				"error":  err.Error(),
			})
			return err
		}
		return fmt.Errorf("✗ Connection failed: %w", err)
	}

	if jsonOutput {
		return outputJSON(map[string]string{
			"status": "success",
			"url":    cfg.URL,
		})
	}

	fmt.Printf("✓ Successfully connected to %s\n", cfg.URL)
	return nil
}

func runConfigView(cmd *cobra.Command, args []string) error {
	view := args[0]
	if view != config.ViewGrid && view != config.ViewList {
		return fmt.Errorf("invalid view '%s'. Valid views: grid, list", view)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	cfg.View = view
	if err := saveConfig(cfg); err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(map[string]string{"view": view})
	}
	fmt.Printf("✓ Default view set to %s\n", view)
	return nil
}

// redactToken masks most of the token for security
func redactToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
