package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
)

// Result is the keyed output of one pipeline run.
type Result struct {
	RawRows int
	Clean   CleanStats
	Filter  FilterStats
	// Cars is the inner join of Specs and Pricing, ordered by CarID.
	Cars    []Car
	Specs   []CarSpecs
	Pricing []Pricing
}

// Pipeline runs clean -> derive -> filter -> key -> split/join under one Policy.
type Pipeline struct {
	policy Policy
	logger *zap.Logger
}

// New validates the policy and returns a Pipeline.
func New(p Policy, logger *zap.Logger) (*Pipeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{policy: p, logger: logger}, nil
}

// Policy returns the policy the pipeline runs with.
func (pl *Pipeline) Policy() Policy { return pl.policy }

// Run transforms raw records into the keyed tables.
func (pl *Pipeline) Run(raw []dataset.RawRecord) (*Result, error) {
	p := pl.policy
	cleaned, cst := Clean(raw, p)
	pl.logger.Info("cleaned",
		zap.Int("rows", cst.Rows),
		zap.Int("trimmed_cells", cst.TrimmedCells),
		zap.Int("engine_size_floored", cst.EngineSizeFloored),
		zap.Int("mpg_capped", cst.MPGCapped),
		zap.Int("mpg_replaced", cst.MPGReplaced))

	enriched := Derive(cleaned, p)
	pl.logger.Debug("derived features",
		zap.Int("rows", len(enriched)),
		zap.Int("reference_year", p.ReferenceYear),
		zap.String("automatic_policy", string(p.Automatic)))

	kept, fst, err := Filter(enriched, p)
	pl.logger.Info("filtered outliers",
		zap.Int("in", fst.In),
		zap.Int("out", fst.Out),
		zap.Int("price_dropped", fst.PriceDropped),
		zap.Int("mileage_dropped", fst.MileageDropped),
		zap.Int("excluded", fst.Excluded))
	if err != nil {
		return nil, err
	}

	keyed := AssignKeys(kept)
	specs, pricing := Split(keyed)
	cars, err := Join(specs, pricing)
	if err != nil {
		return nil, &JoinIntegrityError{Reason: err.Error()}
	}
	if err := VerifyRoundTrip(keyed, cars); err != nil {
		return nil, err
	}
	pl.logger.Info("keyed and split", zap.Int("cars", len(cars)))

	return &Result{
		RawRows: len(raw),
		Clean:   cst,
		Filter:  fst,
		Cars:    cars,
		Specs:   specs,
		Pricing: pricing,
	}, nil
}

// Run is a convenience wrapper for New(p, logger).Run(raw).
func Run(raw []dataset.RawRecord, p Policy, logger *zap.Logger) (*Result, error) {
	pl, err := New(p, logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return pl.Run(raw)
}
