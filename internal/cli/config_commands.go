package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lohnkonto/lohnkonto-client/internal/api"
	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/constants"
	inthttp "github.com/lohnkonto/lohnkonto-client/internal/http"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage lohnkonto configuration",
		Long: `Configuration management commands for lohnkonto.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Check that the processing service is reachable
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for lohnkonto.

The configuration is saved to the path shown by 'lohnkonto config path'.
Passwords and storage credentials are never written to the file; set
them through the environment instead.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Fprintf(out, "Configuration already exists at: %s\n", path)
					fmt.Fprintln(out, "Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			cfg, err := config.LoadConfigCSV(path)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			fmt.Fprintln(out, "Lohnkonto Configuration Setup")
			fmt.Fprintln(out, "=============================")
			fmt.Fprintln(out)

			p := newPrompter(cmd.InOrStdin(), out)
			cfg.APIBaseURL = p.line("Processing service URL", cfg.APIBaseURL)
			cfg.OutputDestination = p.line("Save results to (directory, s3://bucket/prefix or azblob://container/prefix)", cfg.OutputDestination)
			cfg.Overwrite = p.yes("Overwrite existing result files?", cfg.Overwrite)
			cfg.Notify = p.yes("Show a desktop notification when a result is saved?", cfg.Notify)

			fmt.Fprintln(out)
			if p.yes("Configure proxy?", cfg.ProxyMode != "no-proxy") {
				fmt.Fprintln(out, "Proxy modes: no-proxy, system, basic, ntlm")
				cfg.ProxyMode = p.line("Proxy mode", "system")
				if cfg.ProxyMode != "no-proxy" {
					cfg.ProxyHost = p.line("Proxy host", cfg.ProxyHost)
					port := cfg.ProxyPort
					if port == 0 {
						port = 8080
					}
					cfg.ProxyPort = p.number("Proxy port", port)
					if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
						cfg.ProxyUser = p.line("Proxy user", cfg.ProxyUser)
					}
				}
			} else {
				cfg.ProxyMode = "no-proxy"
				cfg.ProxyHost = ""
				cfg.ProxyPort = 0
			}

			cfg.MergeWithFlags("", "", "", "", 0)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfigCSV(cfg, path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			GetLogger().Info().Str("path", path).Msg("configuration saved")
			fmt.Fprintln(out)
			fmt.Fprintf(out, "✓ Configuration saved to: %s\n", path)
			if cfg.ProxyUser != "" {
				fmt.Fprintln(out, "  Set LOHNKONTO_PROXY_PASSWORD to authenticate with the proxy.")
			}
			fmt.Fprintln(out, "Test your configuration with: lohnkonto config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration settings.

This command shows the merged configuration from:
  1. Configuration file
  2. .env file and environment variables (LOHNKONTO_API_URL, VITE_API_URL, ...)
  3. Command-line flags (--api-url, --proxy-*)

Priority: flags > environment > config file > defaults`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig("")
			if err != nil {
				return err
			}
			printConfig(cmd.OutOrStdout(), cfg, configPath())
			return nil
		},
	}
}

func printConfig(out io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(out, "Current Configuration")
	fmt.Fprintln(out, "=====================")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Service:")
	fmt.Fprintf(out, "  API Base URL:    %s\n", cfg.APIBaseURL)
	if cfg.RequestTimeout > 0 {
		fmt.Fprintf(out, "  Request Timeout: %s\n", cfg.RequestTimeout)
	} else {
		fmt.Fprintln(out, "  Request Timeout: none")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Results:")
	dest := cfg.OutputDestination
	if dest == "" {
		dest = "current directory"
	}
	fmt.Fprintf(out, "  Output:    %s\n", dest)
	fmt.Fprintf(out, "  Overwrite: %t\n", cfg.Overwrite)
	fmt.Fprintf(out, "  Notify:    %t\n", cfg.Notify)
	if cfg.S3Region != "" || cfg.S3Endpoint != "" {
		fmt.Fprintf(out, "  S3 Region:   %s\n", cfg.S3Region)
		fmt.Fprintf(out, "  S3 Endpoint: %s\n", cfg.S3Endpoint)
	}
	if cfg.S3AccessKeyID != "" {
		fmt.Fprintln(out, "  S3 Credentials: <set>")
	}
	if cfg.AzureAccountURL != "" {
		fmt.Fprintln(out, "  Azure Account URL: <set>")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Proxy Settings:")
	fmt.Fprintf(out, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(out, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(out, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	if cfg.ProxyUser != "" {
		fmt.Fprintf(out, "  Proxy User: %s\n", cfg.ProxyUser)
		if cfg.ProxyPassword != "" {
			fmt.Fprintln(out, "  Proxy Password: <set>")
		} else {
			fmt.Fprintln(out, "  Proxy Password: <not set>")
		}
	}
	if cfg.NoProxy != "" {
		fmt.Fprintf(out, "  No Proxy:   %s\n", cfg.NoProxy)
	}
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(out, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the processing service is reachable",
		Long: `Check connectivity to the processing service with the current
configuration, including proxy settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := loadConfig("")
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "API URL: %s\n", cfg.APIBaseURL)
			fmt.Fprintln(out, "Testing connection...")

			httpClient, err := inthttp.NewClient(cfg)
			if err != nil {
				return fmt.Errorf("failed to create HTTP client: %w", err)
			}
			client := api.NewClient(cfg.APIBaseURL, httpClient, GetLogger())

			ctx, cancel := context.WithTimeout(GetContext(), constants.HealthCheckTimeout)
			defer cancel()

			status, err := client.Health(ctx)
			if err != nil {
				GetLogger().Error().Err(err).Msg("connection test failed")
				fmt.Fprintln(out, "✗ Connection FAILED")
				return err
			}
			if !status.Healthy() {
				fmt.Fprintf(out, "✗ Service reports status %q\n", status.Status)
				return fmt.Errorf("service is not healthy")
			}

			fmt.Fprintln(out, "✓ Connection SUCCESSFUL")
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := configPath()
			fmt.Fprintln(out, path)
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "(file does not exist - run 'lohnkonto config init' to create it)")
			}
			return nil
		},
	}
}
