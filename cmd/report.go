package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/analysis"
	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

var (
	reportOutput      string
	reportSampleRows  int
	reportTopGroups   int
	reportNoCorr      bool
	reportBucketWidth float64
	reportInput       inputFlags
)

var reportCmd = &cobra.Command{
	Use:   "report [source]",
	Short: "Summarize the keyed Cars table as Markdown",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := resolveSource(args)
		if err != nil {
			return err
		}
		p, err := reportInput.policy(cmd)
		if err != nil {
			return err
		}
		res, err := loadAndRun(cmd.Context(), source, &reportInput, p)
		if err != nil {
			return err
		}

		opt := analysis.DefaultOptions()
		opt.SampleRows = reportSampleRows
		opt.TopGroups = reportTopGroups
		opt.Correlations = !reportNoCorr
		opt.HistogramWidth = reportBucketWidth
		md := analysis.Build(source, res, opt).Markdown()

		if reportOutput == "" {
			fmt.Fprint(cmd.OutOrStdout(), md)
			return nil
		}
		path, err := outputPath(reportOutput)
		if err != nil {
			return err
		}
		if err := utils.SafeWriteFile(path, []byte(md)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote report to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "write the report to this path instead of stdout")
	reportCmd.Flags().IntVar(&reportSampleRows, "sample-rows", 5, "head rows to include")
	reportCmd.Flags().IntVar(&reportTopGroups, "top-groups", 10, "max groups per group-by table (0 = all)")
	reportCmd.Flags().BoolVar(&reportNoCorr, "no-corr", false, "skip correlations")
	reportCmd.Flags().Float64Var(&reportBucketWidth, "bucket-width", 5000, "price histogram bucket width (0 disables)")
	reportInput.register(reportCmd)
}
