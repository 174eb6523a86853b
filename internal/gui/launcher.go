package gui

import (
	"fmt"
	"os"
	"runtime"

	"github.com/lohnkonto/lohnkonto-client/internal/config"
)

// Run launches GUI mode from raw program arguments. Only --config/-c and
// --api-url are honoured; everything else comes from the config file and
// environment.
func Run(args []string) error {
	configFile, apiURL := parseArgs(args)
	if configFile == "" {
		configFile = config.GetDefaultConfigPath()
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg.MergeWithFlags(apiURL, "", "", "", 0)
	if err := cfg.Validate(); err != nil {
		return err
	}
	return Launch(cfg)
}

// Launch opens the window for an already resolved configuration.
func Launch(cfg *config.Config) error {
	if err := checkDisplay(); err != nil {
		return err
	}
	return LaunchGUI(cfg)
}

func checkDisplay() error {
	if runtime.GOOS == "linux" {
		if os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return fmt.Errorf("GUI mode requires a display. No display detected.\n" +
				"DISPLAY and WAYLAND_DISPLAY are not set.\n" +
				"Use 'lohnkonto process FILE' for CLI mode")
		}
	}
	return nil
}

func parseArgs(args []string) (configFile, apiURL string) {
	for i, arg := range args {
		if i+1 >= len(args) {
			break
		}
		switch arg {
		case "--config", "-c":
			configFile = args[i+1]
		case "--api-url":
			apiURL = args[i+1]
		}
	}
	return configFile, apiURL
}
