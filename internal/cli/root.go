// Package cli provides the command-line interface for lohnkonto.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
	"github.com/lohnkonto/lohnkonto-client/internal/logging"
	"github.com/lohnkonto/lohnkonto-client/internal/transfer"
	"github.com/lohnkonto/lohnkonto-client/internal/version"
)

var (
	// Global flags
	cfgFile    string
	apiBaseURL string
	proxyMode  string
	proxyHost  string
	proxyPort  int
	logFile    string
	verbose    bool
	debug      bool

	// Global logger
	logger     *logging.Logger
	closeLogFn func() error

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command for CLI mode.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lohnkonto",
		Short: "Lohnkonto - convert payroll PDFs into spreadsheets",
		Long: `Lohnkonto ` + version.Version + ` - Built: ` + version.BuildTime + `
Uploads a payroll account PDF to the Lohnkonto processing service and
saves the spreadsheet it returns.

CLI Mode (default):
  lohnkonto process payroll.pdf -o ./out

GUI Mode (--gui flag or no arguments on a desktop):
  Drag-and-drop window with upload progress and a download button.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
			if logFile != "" {
				closeFn, err := logger.EnableFileLogging(logFile)
				if err != nil {
					return fmt.Errorf("failed to open log file: %w", err)
				}
				closeLogFn = closeFn
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if closeLogFn != nil {
				_ = closeLogFn()
				closeLogFn = nil
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiBaseURL, "api-url", "", "Processing service base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&proxyMode, "proxy-mode", "", "Proxy mode: no-proxy, system, basic, ntlm")
	rootCmd.PersistentFlags().StringVar(&proxyHost, "proxy-host", "", "Proxy host")
	rootCmd.PersistentFlags().IntVar(&proxyPort, "proxy-port", 0, "Proxy port")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Also write JSON logs to this file (rotated)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	// Mode switch, consumed by main before cobra runs
	rootCmd.PersistentFlags().Bool("cli", false, "Force CLI mode")
	_ = rootCmd.PersistentFlags().MarkHidden("cli")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	rootCmd.AddCommand(newCompletionCmd(rootCmd))
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

func newCompletionCmd(rootCmd *cobra.Command) *cobra.Command {
	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for lohnkonto.

QUICK START:

  zsh:
    lohnkonto completion zsh > ~/.zsh/completions/_lohnkonto

  bash:
    lohnkonto completion bash | sudo tee /etc/bash_completion.d/lohnkonto

  fish:
    lohnkonto completion fish > ~/.config/fish/completions/lohnkonto.fish

  PowerShell:
    lohnkonto completion powershell >> $PROFILE`,
	}

	completionCmd.AddCommand(&cobra.Command{
		Use:   "bash",
		Short: "Generate bash completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "zsh",
		Short: "Generate zsh completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "fish",
		Short: "Generate fish completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		},
	})
	completionCmd.AddCommand(&cobra.Command{
		Use:   "powershell",
		Short: "Generate PowerShell completion script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		},
	})

	return completionCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not fall through to the default handler
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", transfer.UserMessage(err))
	}

	signal.Stop(sigChan)
	close(sigChan)
	cancelFunc()

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newProcessCmd())
	rootCmd.AddCommand(newHealthCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGUICmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}

// configPath returns the --config value or the default location.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.GetDefaultConfigPath()
}

// loadConfig resolves the effective configuration for a command.
// Priority: flags > environment > config file > defaults.
func loadConfig(output string) (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.MergeWithFlags(apiBaseURL, output, proxyMode, proxyHost, proxyPort)
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.DetailedLogging {
		logging.SetGlobalLevel(zerolog.DebugLevel)
	}
	// log_file from the config file; --log-file was already opened
	if cfg.LogFile != "" && closeLogFn == nil {
		closeFn, err := GetLogger().EnableFileLogging(cfg.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closeLogFn = closeFn
	}
	return cfg, nil
}
