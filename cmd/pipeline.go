package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

// inputFlags are the source and policy overrides shared by pipeline commands.
type inputFlags struct {
	sheet           string
	referenceYear   int
	automaticPolicy string
	doorPolicy      string
	noMPG           bool
}

func (in *inputFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&in.sheet, "sheet-name", "", "sheet to read from an .xlsx source (default: first sheet)")
	c.Flags().IntVar(&in.referenceYear, "reference-year", 0, "year Age is measured from (overrides config)")
	c.Flags().StringVar(&in.automaticPolicy, "automatic-policy", "", "Automatic flag rule: allowlist or substring (overrides config)")
	c.Flags().StringVar(&in.doorPolicy, "door-policy", "", "door preset: two-four or three-five (overrides config)")
	c.Flags().BoolVar(&in.noMPG, "no-mpg", false, "skip mpg corrections")
}

// policy builds the effective policy: config values with changed flags on top.
func (in *inputFlags) policy(c *cobra.Command) (pipeline.Policy, error) {
	base := *cfg
	f := c.Flags()
	if f.Changed("reference-year") {
		base.ReferenceYear = in.referenceYear
	}
	if f.Changed("automatic-policy") {
		base.AutomaticPolicy = in.automaticPolicy
	}
	if f.Changed("door-policy") {
		base.DoorPolicy = in.doorPolicy
	}
	if f.Changed("no-mpg") && in.noMPG {
		base.TrackMPG = false
	}
	return base.Policy()
}

// resolveSource returns the explicit source argument or the configured source_url.
func resolveSource(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if cfg.SourceURL != "" {
		return cfg.SourceURL, nil
	}
	return "", errors.New("no source given: pass a path or URL, or set source_url")
}

// outputPath resolves a relative output path against output_dir.
func outputPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	p, err := utils.ExpandHome(p)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(p) {
		return p, nil
	}
	dir, err := utils.ExpandHome(cfg.OutputDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, p), nil
}

// outputDir returns the expanded output_dir.
func outputDir() (string, error) {
	return utils.ExpandHome(cfg.OutputDir)
}

// loadAndRun loads source and runs the pipeline under p.
func loadAndRun(ctx context.Context, source string, in *inputFlags, p pipeline.Policy) (*pipeline.Result, error) {
	fetcher := dataset.NewFetcher(
		time.Duration(cfg.HTTPTimeoutSec)*time.Second,
		cfg.RetryMaxAttempts,
		time.Duration(cfg.RetryBaseDelayMs)*time.Millisecond,
		time.Duration(cfg.RetryMaxDelayMs)*time.Millisecond,
		logger,
	)
	tbl, err := dataset.NewLoader(fetcher, logger).Load(ctx, source, dataset.Options{SheetName: in.sheet})
	if err != nil {
		return nil, err
	}
	res, err := pipeline.Run(tbl.Records, p, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return res, nil
}
