package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/carloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set CarLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		if len(cfg.DoorTable) > 0 {
			models := make([]string, 0, len(cfg.DoorTable))
			for m := range cfg.DoorTable {
				models = append(models, m)
			}
			sort.Strings(models)
			fmt.Fprintln(out, "door_table:")
			for _, m := range models {
				fmt.Fprintf(out, "  %s: %d\n", m, cfg.DoorTable[m])
			}
		}
		fmt.Fprintln(out, "exclusions:")
		for _, e := range cfg.Exclusions {
			fmt.Fprintf(out, "  - year %d, price %g\n", e.Year, e.Price)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if _, err := cfg.Policy(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
