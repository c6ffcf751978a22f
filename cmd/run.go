package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/analysis"
	"github.com/KaramelBytes/carloom-cli/internal/model"
	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
	"github.com/KaramelBytes/carloom-cli/internal/runlog"
	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

var (
	runOutput string
	runReport string
	runFit    bool
	runScored string
	runUseKM  bool
	runQuiet  bool
	runInput  inputFlags
)

var runCmd = &cobra.Command{
	Use:   "run [source]",
	Short: "Run the full pipeline and export the keyed Cars table",
	Long: `Load the source (path or URL; default source_url), clean, derive, filter and key it,
then write the keyed Cars CSV. Optionally write a Markdown report and a scored CSV
from an OLS price model. Every run is recorded under <output_dir>/runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		out := cmd.OutOrStdout()
		if runQuiet {
			out = io.Discard
		}
		source, err := resolveSource(args)
		if err != nil {
			return err
		}
		p, err := runInput.policy(cmd)
		if err != nil {
			return err
		}
		dir, err := outputDir()
		if err != nil {
			return err
		}

		m := runlog.New("run", source, dir, p)
		defer func() {
			m.Fail(err)
			if serr := m.Save(); serr != nil && err == nil {
				err = fmt.Errorf("save run manifest: %w", serr)
			}
		}()

		res, err := loadAndRun(cmd.Context(), source, &runInput, p)
		if err != nil {
			return err
		}
		m.Record(res)

		csvPath, err := outputPath(runOutput)
		if err != nil {
			return err
		}
		if err := pipeline.ExportCSV(csvPath, res.Cars); err != nil {
			return err
		}
		m.AddOutput("csv", csvPath)
		fmt.Fprintf(out, "✓ Wrote %d cars (%d of %d rows kept) to %s\n", len(res.Cars), res.Filter.Out, res.RawRows, csvPath)

		if runReport != "" {
			path, err := outputPath(runReport)
			if err != nil {
				return err
			}
			md := analysis.Build(source, res, analysis.DefaultOptions()).Markdown()
			if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			m.AddOutput("report", path)
			fmt.Fprintf(out, "✓ Wrote report to %s\n", path)
		}

		if runFit {
			useKM := cfg.UseKM
			if cmd.Flags().Changed("use-km") {
				useKM = runUseKM
			}
			fit, scoredPath, err := fitAndScore(res, useKM, runScored)
			if err != nil {
				return err
			}
			m.Fit = fit
			if scoredPath != "" {
				m.AddOutput("scored", scoredPath)
			}
			fmt.Fprintf(out, "✓ Fitted price model on %d cars (R² %.4f)\n", fit.N, fit.R2)
			if scoredPath != "" {
				fmt.Fprintf(out, "✓ Wrote scored cars to %s\n", scoredPath)
			}
		}

		fmt.Fprintf(out, "✓ Run %s recorded\n", m.ID)
		return nil
	},
}

// fitAndScore fits the price model and writes the scored CSV when scored is set.
func fitAndScore(res *pipeline.Result, useKM bool, scored string) (*model.Fit, string, error) {
	fit, err := model.FitPrice(res.Cars, useKM)
	if err != nil {
		return nil, "", err
	}
	if scored == "" {
		return fit, "", nil
	}
	path, err := outputPath(scored)
	if err != nil {
		return nil, "", err
	}
	rows, err := model.Attach(res.Cars, fit.Score(res.Cars))
	if err != nil {
		return nil, "", err
	}
	if err := model.ExportCSV(path, rows); err != nil {
		return nil, "", err
	}
	return fit, path, nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "cars.csv", "keyed Cars CSV path (relative to output_dir)")
	runCmd.Flags().StringVar(&runReport, "report", "", "also write the Markdown report to this path")
	runCmd.Flags().BoolVar(&runFit, "fit", false, "fit the OLS price model")
	runCmd.Flags().StringVar(&runScored, "scored", "scored.csv", "scored CSV path when --fit is set")
	runCmd.Flags().BoolVar(&runUseKM, "use-km", false, "regress on KM instead of mileage (overrides config)")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "suppress progress output")
	runInput.register(runCmd)
}
