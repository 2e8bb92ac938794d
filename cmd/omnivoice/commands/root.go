package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/cmd/omnivoice/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Global configuration (loaded at init time)
	globalConfig  *config.Config
	configLoadErr error
)

var rootCmd = &cobra.Command{
	Use:   "omnivoice",
	Short: "Voice command assistant",
	Long: `omnivoice - an always-on voice command pipeline.

A continuous microphone stream is watched for a wake word; the following
utterance is transcribed, mapped to an intent, matched against the command
catalogue, confirmed when risky, executed, and answered with spoken
feedback.

Configuration lives in the OS config directory:
  macOS:   ~/Library/Application Support/omnivoice/config.yaml
  Linux:   ~/.config/omnivoice/config.yaml
  Windows: %AppData%/omnivoice/config.yaml

Examples:
  # Run the pipeline with the default config
  omnivoice run

  # Process a single typed utterance (no microphone needed)
  omnivoice run --text "给张三发消息说晚上开会"

  # Train a personal wake-word profile from recorded samples
  omnivoice train sample1.pcm sample2.pcm sample3.pcm

  # Inspect and extend the command catalogue
  omnivoice commands list
  omnivoice commands add -f my-commands.yaml

  # List audio devices for the audio.device config key
  omnivoice devices`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig, initLogging)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default <os config dir>/omnivoice/config.yaml)")
}

func initConfig() {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Defer the error; commands that need config report it via
		// GetConfig, and 'omnivoice version' keeps working.
		configLoadErr = err
		return
	}
	globalConfig = cfg
}

func initLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// GetConfig returns the global configuration.
func GetConfig() (*config.Config, error) {
	if globalConfig == nil {
		if configLoadErr != nil {
			return nil, fmt.Errorf("config not available: %w", configLoadErr)
		}
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config not available: %w", err)
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// ConfigFile returns the path the configuration is read from.
func ConfigFile() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
