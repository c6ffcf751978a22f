package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
)

// Dimension extracts a grouping key from a car.
type Dimension struct {
	Name string
	Key  func(pipeline.Car) string
}

// Metric extracts a numeric value from a car.
type Metric struct {
	Name  string
	Value func(pipeline.Car) float64
}

var (
	ByModel        = Dimension{"model", func(c pipeline.Car) string { return c.Model }}
	ByFuelType     = Dimension{"fuelType", func(c pipeline.Car) string { return c.FuelType }}
	ByTransmission = Dimension{"transmission", func(c pipeline.Car) string { return c.Transmission }}
	ByYear         = Dimension{"year", func(c pipeline.Car) string { return strconv.Itoa(c.Year) }}
	ByDoors        = Dimension{"Doors", func(c pipeline.Car) string { return strconv.Itoa(c.Doors) }}
	ByAutomatic    = Dimension{"Automatic", func(c pipeline.Car) string { return strconv.Itoa(c.Automatic) }}
	ByEngineSize   = Dimension{"engineSize", func(c pipeline.Car) string { return pipeline.FormatFloat(c.EngineSize) }}
)

var (
	Price      = Metric{"price", func(c pipeline.Car) float64 { return c.Price }}
	Mileage    = Metric{"mileage", func(c pipeline.Car) float64 { return c.Mileage }}
	KM         = Metric{"KM", func(c pipeline.Car) float64 { return c.KM }}
	Tax        = Metric{"tax", func(c pipeline.Car) float64 { return c.Tax }}
	MPG        = Metric{"mpg", func(c pipeline.Car) float64 { return c.MPG }}
	EngineSize = Metric{"engineSize", func(c pipeline.Car) float64 { return c.EngineSize }}
	Age        = Metric{"Age", func(c pipeline.Car) float64 { return float64(c.Age) }}
	Automatic  = Metric{"Automatic", func(c pipeline.Car) float64 { return float64(c.Automatic) }}
)

// NumericMetrics lists every numeric column of the Cars table in export order.
var NumericMetrics = []Metric{
	{"year", func(c pipeline.Car) float64 { return float64(c.Year) }},
	Price, Mileage, Tax, MPG, EngineSize, Age, Automatic,
	{"Doors", func(c pipeline.Car) float64 { return float64(c.Doors) }},
	KM,
}

// GroupRow is one group of a group-by aggregate.
type GroupRow struct {
	Key   string
	Count int
	Sum   float64
	Mean  float64
	Min   float64
	Max   float64
}

// Order selects how group rows are sorted.
type Order int

const (
	OrderKey Order = iota
	OrderMeanDesc
	OrderMeanAsc
	OrderCountDesc
	OrderSumDesc
)

// GroupBy aggregates m over the groups of d. Rows are ordered by o; limit <= 0 keeps all.
// The input is never modified.
func GroupBy(cars []pipeline.Car, d Dimension, m Metric, o Order, limit int) []GroupRow {
	accs := map[string]*numAcc{}
	for _, c := range cars {
		k := d.Key(c)
		a := accs[k]
		if a == nil {
			a = newNumAcc()
			accs[k] = a
		}
		a.add(m.Value(c))
	}
	out := make([]GroupRow, 0, len(accs))
	for k, a := range accs {
		out = append(out, GroupRow{Key: k, Count: a.n, Sum: a.sum, Mean: a.mean, Min: a.min, Max: a.max})
	}
	sortGroups(out, o)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func sortGroups(rows []GroupRow, o Order) {
	less := func(i, j int) bool { return keyLess(rows[i].Key, rows[j].Key) }
	sort.SliceStable(rows, less)
	var primary func(a, b GroupRow) bool
	switch o {
	case OrderMeanDesc:
		primary = func(a, b GroupRow) bool { return a.Mean > b.Mean }
	case OrderMeanAsc:
		primary = func(a, b GroupRow) bool { return a.Mean < b.Mean }
	case OrderCountDesc:
		primary = func(a, b GroupRow) bool { return a.Count > b.Count }
	case OrderSumDesc:
		primary = func(a, b GroupRow) bool { return a.Sum > b.Sum }
	default:
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return primary(rows[i], rows[j]) })
}

// keyLess orders numeric keys numerically and everything else lexically.
func keyLess(a, b string) bool {
	fa, ea := strconv.ParseFloat(a, 64)
	fb, eb := strconv.ParseFloat(b, 64)
	if ea == nil && eb == nil {
		return fa < fb
	}
	return a < b
}

// Count returns the number of cars per group, most frequent first.
func Count(cars []pipeline.Car, d Dimension) []GroupRow {
	return GroupBy(cars, d, Metric{"count", func(pipeline.Car) float64 { return 1 }}, OrderCountDesc, 0)
}

// TopBy returns the n cars with the highest m, ties broken by CarID.
func TopBy(cars []pipeline.Car, m Metric, n int) []pipeline.Car {
	out := make([]pipeline.Car, len(cars))
	copy(out, cars)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := m.Value(out[i]), m.Value(out[j])
		if a == b {
			return out[i].CarID < out[j].CarID
		}
		return a > b
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Bucket is one histogram bin [Lo, Hi).
type Bucket struct {
	Lo, Hi float64
	Count  int
}

// Label renders the bucket bounds.
func (b Bucket) Label() string {
	return fmt.Sprintf("%s-%s", pipeline.FormatFloat(b.Lo), pipeline.FormatFloat(b.Hi))
}

// Histogram bins m into fixed-width buckets starting at a multiple of width.
// Empty buckets between the first and last non-empty bucket are kept.
func Histogram(cars []pipeline.Car, m Metric, width float64) []Bucket {
	if len(cars) == 0 || width <= 0 {
		return nil
	}
	counts := map[int]int{}
	lo, hi := math.MaxInt, math.MinInt
	for _, c := range cars {
		i := int(math.Floor(m.Value(c) / width))
		counts[i]++
		if i < lo {
			lo = i
		}
		if i > hi {
			hi = i
		}
	}
	out := make([]Bucket, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		out = append(out, Bucket{Lo: float64(i) * width, Hi: float64(i+1) * width, Count: counts[i]})
	}
	return out
}

// PairCorr is a correlation between two metrics.
type PairCorr struct {
	A, B string
	R    float64
}

// Correlations returns Pearson r for every pair of metrics, strongest first.
func Correlations(cars []pipeline.Car, metrics []Metric) []PairCorr {
	var out []PairCorr
	for i := 0; i < len(metrics); i++ {
		for j := i + 1; j < len(metrics); j++ {
			var pa pairAcc
			for _, c := range cars {
				pa.add(metrics[i].Value(c), metrics[j].Value(c))
			}
			out = append(out, PairCorr{A: metrics[i].Name, B: metrics[j].Name, R: pa.r()})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].R), math.Abs(out[j].R)
		if ai == aj {
			return out[i].A+out[i].B < out[j].A+out[j].B
		}
		return ai > aj
	})
	return out
}
