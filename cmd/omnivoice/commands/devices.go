package commands

import (
	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/pkg/audio/portaudio"
	"github.com/charice-projects/omnivoice/pkg/cli"
)

var devicesFormat string

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().StringVarP(&devicesFormat, "output", "o", "yaml", "output format (yaml|json)")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, args []string) error {
	devices, err := portaudio.Devices()
	if err != nil {
		return err
	}
	defer portaudio.Terminate()
	return cli.Output(devices, cli.OutputOptions{Format: cli.OutputFormat(devicesFormat)})
}
