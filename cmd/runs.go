package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/runlog"
)

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := outputDir()
		if err != nil {
			return err
		}
		ms, err := runlog.List(dir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ms) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		if runsLimit > 0 && len(ms) > runsLimit {
			ms = ms[:runsLimit]
		}
		for _, m := range ms {
			status := "ok"
			if m.Error != "" {
				status = "failed: " + m.Error
			}
			fmt.Fprintf(out, "- %s  %s  %-6s %s  cars=%d  %s\n",
				m.ID, m.StartedAt.Local().Format(time.DateTime), m.Command, m.Source, m.Cars, status)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 0, "show at most n runs (0 = all)")
}
