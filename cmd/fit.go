package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/runlog"
)

var (
	fitScored string
	fitUseKM  bool
	fitInput  inputFlags
)

var fitCmd = &cobra.Command{
	Use:   "fit [source]",
	Short: "Fit an OLS price model and write predictions keyed by CarID",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		source, err := resolveSource(args)
		if err != nil {
			return err
		}
		p, err := fitInput.policy(cmd)
		if err != nil {
			return err
		}
		dir, err := outputDir()
		if err != nil {
			return err
		}
		m := runlog.New("fit", source, dir, p)
		defer func() {
			m.Fail(err)
			if serr := m.Save(); serr != nil && err == nil {
				err = fmt.Errorf("save run manifest: %w", serr)
			}
		}()

		res, err := loadAndRun(cmd.Context(), source, &fitInput, p)
		if err != nil {
			return err
		}
		m.Record(res)

		useKM := cfg.UseKM
		if cmd.Flags().Changed("use-km") {
			useKM = fitUseKM
		}
		fit, scoredPath, err := fitAndScore(res, useKM, fitScored)
		if err != nil {
			return err
		}
		m.Fit = fit

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "price ~ intercept")
		for _, f := range fit.Features {
			fmt.Fprintf(out, " + %s", f)
		}
		fmt.Fprintf(out, "\n  n = %d, R² = %.4f\n", fit.N, fit.R2)
		fmt.Fprintf(out, "  %-12s %14.4f\n", "intercept", fit.Intercept)
		for i, f := range fit.Features {
			fmt.Fprintf(out, "  %-12s %14.4f\n", f, fit.Coefficients[i])
		}
		if scoredPath != "" {
			m.AddOutput("scored", scoredPath)
			fmt.Fprintf(out, "✓ Wrote scored cars to %s\n", scoredPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fitCmd)
	fitCmd.Flags().StringVar(&fitScored, "scored", "scored.csv", "scored CSV path (empty to skip)")
	fitCmd.Flags().BoolVar(&fitUseKM, "use-km", false, "regress on KM instead of mileage (overrides config)")
	fitInput.register(fitCmd)
}
