package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
)

// Options controls what the report includes.
type Options struct {
	// SampleRows is how many head rows to include.
	SampleRows int
	// TopGroups limits each group-by table; 0 keeps all groups.
	TopGroups int
	// TopValues limits categorical top-value lists.
	TopValues int
	// Correlations adds Pearson r across numeric columns.
	Correlations bool
	// MaxPairs limits the correlation list.
	MaxPairs int
	// HistogramWidth is the price bucket width; 0 disables the histogram.
	HistogramWidth float64
	// OutlierThreshold flags values with robust |z| above it; 0 disables.
	OutlierThreshold float64
}

// DefaultOptions returns the options used by the report command.
func DefaultOptions() Options {
	return Options{
		SampleRows:       5,
		TopGroups:        10,
		TopValues:        5,
		Correlations:     true,
		MaxPairs:         10,
		HistogramWidth:   5000,
		OutlierThreshold: 3.5,
	}
}

// Report is a markdown-friendly summary of a pipeline run.
type Report struct {
	Name      string
	Rows      int
	Cols      []ColumnSummary
	Groups    []GroupTable
	Histogram []Bucket
	Corr      []PairCorr
	Samples   [][]string
	Warnings  []string
}

// ColumnSummary captures statistics for one Cars column.
type ColumnSummary struct {
	Name    string
	Kind    string // numeric|categorical
	NonNull int
	Unique  int
	Min     float64
	Max     float64
	Mean    float64
	Std     float64

	OutliersCount    int
	OutliersMaxAbsZ  float64
	OutlierThreshold float64

	TopValues []CategoryCount
}

// GroupTable is a titled group-by aggregate.
type GroupTable struct {
	Title  string
	Metric string
	Rows   []GroupRow
}

var categorical = []Dimension{ByModel, ByTransmission, ByFuelType}

// Build summarizes a pipeline result. It never modifies res.
func Build(name string, res *pipeline.Result, opt Options) *Report {
	r := &Report{Name: name}
	if res == nil {
		return r
	}
	cars := res.Cars
	r.Rows = len(cars)

	for _, d := range categorical {
		counts := map[string]int{}
		for _, c := range cars {
			counts[d.Key(c)]++
		}
		r.Cols = append(r.Cols, ColumnSummary{
			Name:      d.Name,
			Kind:      "categorical",
			NonNull:   len(cars),
			Unique:    len(counts),
			TopValues: topCounts(counts, opt.TopValues),
		})
	}
	for _, m := range NumericMetrics {
		r.Cols = append(r.Cols, numericSummary(cars, m, opt.OutlierThreshold))
	}

	lim := opt.TopGroups
	r.Groups = []GroupTable{
		{Title: "Average price by model", Metric: "price", Rows: GroupBy(cars, ByModel, Price, OrderMeanDesc, lim)},
		{Title: "Cars by fuel type", Metric: "count", Rows: Count(cars, ByFuelType)},
		{Title: "Cars by transmission", Metric: "count", Rows: Count(cars, ByTransmission)},
		{Title: "Average price by year", Metric: "price", Rows: GroupBy(cars, ByYear, Price, OrderKey, 0)},
		{Title: "Average mpg by fuel type", Metric: "mpg", Rows: GroupBy(cars, ByFuelType, MPG, OrderMeanDesc, lim)},
	}
	if opt.HistogramWidth > 0 {
		r.Histogram = Histogram(cars, Price, opt.HistogramWidth)
	}
	if opt.Correlations && len(cars) >= 2 {
		r.Corr = Correlations(cars, NumericMetrics)
		if opt.MaxPairs > 0 && len(r.Corr) > opt.MaxPairs {
			r.Corr = r.Corr[:opt.MaxPairs]
		}
	}
	for i := 0; i < len(cars) && i < opt.SampleRows; i++ {
		r.Samples = append(r.Samples, cars[i].Record())
	}

	cs, fs := res.Clean, res.Filter
	r.Warnings = append(r.Warnings,
		fmt.Sprintf("Loaded %d rows; %d kept after filtering", res.RawRows, fs.Out),
		fmt.Sprintf("Cleaning: %d cells trimmed, %d engine sizes floored, %d mpg capped, %d mpg replaced",
			cs.TrimmedCells, cs.EngineSizeFloored, cs.MPGCapped, cs.MPGReplaced),
		fmt.Sprintf("Filtering: %d outside price bounds, %d outside mileage bounds, %d excluded",
			fs.PriceDropped, fs.MileageDropped, fs.Excluded),
	)
	return r
}

func numericSummary(cars []pipeline.Car, m Metric, threshold float64) ColumnSummary {
	acc := newNumAcc()
	uniq := map[float64]struct{}{}
	vals := make([]float64, 0, len(cars))
	for _, c := range cars {
		v := m.Value(c)
		acc.add(v)
		uniq[v] = struct{}{}
		vals = append(vals, v)
	}
	cs := ColumnSummary{Name: m.Name, Kind: "numeric", NonNull: acc.n, Unique: len(uniq)}
	if acc.n == 0 {
		return cs
	}
	cs.Min, cs.Max, cs.Mean, cs.Std = acc.min, acc.max, acc.mean, acc.std()
	if threshold > 0 {
		cs.OutlierThreshold = threshold
		med, mad := medianMAD(vals)
		if mad > 0 {
			for _, v := range vals {
				// 0.6745 scales MAD to a standard-normal z
				z := 0.6745 * (v - med) / mad
				if math.Abs(z) > threshold {
					cs.OutliersCount++
				}
				if math.Abs(z) > cs.OutliersMaxAbsZ {
					cs.OutliersMaxAbsZ = math.Abs(z)
				}
			}
		}
	}
	return cs
}

// medianMAD computes the median and median absolute deviation.
func medianMAD(vals []float64) (median, mad float64) {
	if len(vals) == 0 {
		return 0, 0
	}
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	median = quantile(cp, 0.5)
	dev := make([]float64, len(cp))
	for i, v := range cp {
		dev[i] = math.Abs(v - median)
	}
	sort.Float64s(dev)
	mad = quantile(dev, 0.5)
	return
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (sorted[hi]-sorted[lo])*(pos-float64(lo))
}

// Markdown renders the report as plain sections for docs or terminals.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("[DATASET SUMMARY]\n")
	if r.Name != "" {
		b.WriteString(fmt.Sprintf("Source: %s\n", r.Name))
	}
	b.WriteString(fmt.Sprintf("Rows: %d\n", r.Rows))
	b.WriteString(fmt.Sprintf("Columns: %d\n\n", len(pipeline.ExportColumns)))

	b.WriteString("[SCHEMA]\n")
	for _, c := range r.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, unique %d)", safeName(c.Name), c.Kind, c.NonNull, c.Unique))
		switch c.Kind {
		case "numeric":
			if c.NonNull > 0 {
				b.WriteString(fmt.Sprintf("; min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			}
			if c.OutlierThreshold > 0 && c.OutliersCount > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d above |z|>%.1f (max |z|≈%.2f)", c.OutliersCount, c.OutlierThreshold, c.OutliersMaxAbsZ))
			}
		case "categorical":
			if len(c.TopValues) > 0 {
				b.WriteString("; top: ")
				for i, kv := range c.TopValues {
					if i > 0 {
						b.WriteString(", ")
					}
					b.WriteString(fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count))
				}
			}
		}
		b.WriteString("\n")
	}

	if len(r.Groups) > 0 {
		b.WriteString("\n[GROUP-BY SUMMARY]\n")
		for _, g := range r.Groups {
			if len(g.Rows) == 0 {
				continue
			}
			b.WriteString(fmt.Sprintf("- %s\n", g.Title))
			for _, row := range g.Rows {
				if g.Metric == "count" {
					b.WriteString(fmt.Sprintf("  • %s: %d\n", safeVal(row.Key), row.Count))
					continue
				}
				b.WriteString(fmt.Sprintf("  • %s (n=%d): mean %.4g (min %.4g, max %.4g)\n", safeVal(row.Key), row.Count, row.Mean, row.Min, row.Max))
			}
		}
	}

	if len(r.Histogram) > 0 {
		b.WriteString("\n[PRICE DISTRIBUTION]\n")
		peak := 0
		for _, h := range r.Histogram {
			if h.Count > peak {
				peak = h.Count
			}
		}
		for _, h := range r.Histogram {
			bar := 0
			if peak > 0 {
				bar = int(math.Round(float64(h.Count) * 30 / float64(peak)))
			}
			b.WriteString(fmt.Sprintf("- %s: %d %s\n", h.Label(), h.Count, strings.Repeat("#", bar)))
		}
	}

	if len(r.Corr) > 0 {
		b.WriteString("\n[CORRELATIONS]\n")
		for _, p := range r.Corr {
			b.WriteString(fmt.Sprintf("- %s ~ %s: r=%.3f\n", p.A, p.B, p.R))
		}
	}

	if len(r.Samples) > 0 {
		b.WriteString("\n[HEAD AND SAMPLE ROWS]\n")
		b.WriteString("| " + strings.Join(pipeline.ExportColumns, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(pipeline.ExportColumns)) + "\n")
		for _, row := range r.Samples {
			vals := make([]string, len(row))
			for i, v := range row {
				vals[i] = safeVal(v)
			}
			b.WriteString("| " + strings.Join(vals, " | ") + " |\n")
		}
	}

	if len(r.Warnings) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, w := range r.Warnings {
			b.WriteString("- ")
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
