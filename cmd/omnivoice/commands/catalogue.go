package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/charice-projects/omnivoice/pkg/cli"
	"github.com/charice-projects/omnivoice/pkg/command"
)

var (
	catalogueAddFile string
	catalogueFormat  string
)

var commandsCmd = &cobra.Command{
	Use:   "commands",
	Short: "Manage the user command catalogue",
}

var commandsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and user commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		reg, err := newRegistry(cmd.Context(), store, cfg.User)
		if err != nil {
			return err
		}
		return cli.Output(reg.List(), cli.OutputOptions{Format: cli.OutputFormat(catalogueFormat)})
	},
}

var commandsAddCmd = &cobra.Command{
	Use:   "add -f <commands.yaml>",
	Short: "Add user commands from a YAML file",
	Long: `Add registers user commands and persists them to the catalogue. The
file holds a list of command definitions:

  - id: good_night
    intent: send_message
    trigger_phrases: ["晚安模式"]
    priority: 4
    reply: "晚安"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		var adds []*command.Command
		if err := cli.LoadRequest(catalogueAddFile, &adds); err != nil {
			return err
		}
		if len(adds) == 0 {
			return fmt.Errorf("no commands in %s", catalogueAddFile)
		}

		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		catalog := command.NewCatalog(store)
		existing, err := catalog.Load(ctx, cfg.User)
		if err != nil {
			return err
		}

		// Validate the merged set against the built-ins before saving.
		reg, err := newRegistry(ctx, store, cfg.User)
		if err != nil {
			return err
		}
		for _, c := range adds {
			if err := reg.Register(c); err != nil {
				return fmt.Errorf("command %s: %w", c.ID, err)
			}
		}

		if err := catalog.Save(ctx, cfg.User, append(existing, adds...)); err != nil {
			return err
		}
		cli.PrintSuccess("added %d command(s)", len(adds))
		return nil
	},
}

var commandsRemoveCmd = &cobra.Command{
	Use:   "remove <id> [...]",
	Short: "Remove user commands by id",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		catalog := command.NewCatalog(store)
		existing, err := catalog.Load(ctx, cfg.User)
		if err != nil {
			return err
		}

		drop := make(map[string]bool, len(args))
		for _, id := range args {
			drop[id] = true
		}
		kept := existing[:0]
		removed := 0
		for _, c := range existing {
			if drop[c.ID] {
				removed++
				continue
			}
			kept = append(kept, c)
		}
		if removed == 0 {
			return fmt.Errorf("no matching user commands (built-ins cannot be removed)")
		}

		if err := catalog.Save(ctx, cfg.User, kept); err != nil {
			return err
		}
		cli.PrintSuccess("removed %d command(s)", removed)
		return nil
	},
}

func init() {
	commandsListCmd.Flags().StringVarP(&catalogueFormat, "output", "o", "yaml", "output format (yaml, json)")
	commandsAddCmd.Flags().StringVarP(&catalogueAddFile, "file", "f", "", "YAML file with command definitions")
	commandsAddCmd.MarkFlagRequired("file")

	commandsCmd.AddCommand(commandsListCmd, commandsAddCmd, commandsRemoveCmd)
	rootCmd.AddCommand(commandsCmd)
}
