package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/cmd/omnivoice/internal/config"
	"github.com/charice-projects/omnivoice/pkg/cli"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the omnivoice configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := ConfigFile()
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists at %s", path)
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		cli.PrintSuccess("wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return cli.Output(cfg, cli.OutputOptions{Format: cli.FormatYAML})
	},
}

func init() {
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}
