package pipeline

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// AutomaticPolicy selects how transmission text maps to the Automatic flag.
type AutomaticPolicy string

const (
	// AutomaticAllowlist: exactly "Automatic" or "Semi-Auto" is 1, everything else 0.
	AutomaticAllowlist AutomaticPolicy = "allowlist"
	// AutomaticSubstring: any text containing "auto" (case-insensitive) is 1.
	AutomaticSubstring AutomaticPolicy = "substring"
)

// Door table presets.
const (
	DoorsTwoFour   = "two-four"
	DoorsThreeFive = "three-five"
)

// KMPerMile converts mileage to kilometres.
const KMPerMile = 1.60934

// DoorTable maps exact model names to a door count. Models not listed get Default.
type DoorTable struct {
	Values  map[string]int `json:"values" yaml:"values"`
	Default int            `json:"default" yaml:"default"`
}

// Lookup returns the door count for model. It is total.
// Exact names win; a case-insensitive match is the fallback because
// config loaders lowercase map keys.
func (t DoorTable) Lookup(model string) int {
	model = strings.TrimSpace(model)
	if n, ok := t.Values[model]; ok {
		return n
	}
	for k, n := range t.Values {
		if strings.EqualFold(k, model) {
			return n
		}
	}
	return t.Default
}

// Counts returns the distinct door counts the table can produce, ascending.
func (t DoorTable) Counts() []int {
	seen := map[int]struct{}{t.Default: {}}
	for _, n := range t.Values {
		seen[n] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// DoorPreset returns a named door table.
func DoorPreset(name string) (DoorTable, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", DoorsTwoFour:
		return DoorTable{Values: map[string]int{"Supra": 2, "GT86": 2}, Default: 4}, nil
	case DoorsThreeFive:
		return DoorTable{Values: map[string]int{
			"Aygo": 3, "Yaris": 5, "Auris": 5, "Corolla": 5, "C-HR": 5, "RAV4": 5, "Prius": 5,
		}, Default: 5}, nil
	default:
		return DoorTable{}, fmt.Errorf("unknown door policy %q (use %s or %s)", name, DoorsTwoFour, DoorsThreeFive)
	}
}

// Exclusion is a literal (year, price) pair known to be a data-entry error.
type Exclusion struct {
	Year  int     `json:"year" yaml:"year" mapstructure:"year"`
	Price float64 `json:"price" yaml:"price" mapstructure:"price"`
}

// Policy holds every constant the pipeline depends on.
type Policy struct {
	// ReferenceYear anchors Age; it is configuration, never the wall clock.
	ReferenceYear int `json:"reference_year"`

	// Rows are kept when PriceMin < price < PriceMax.
	PriceMin float64 `json:"price_min"`
	PriceMax float64 `json:"price_max"`
	// Rows are kept when MileageMin <= mileage < MileageMax.
	MileageMin float64 `json:"mileage_min"`
	MileageMax float64 `json:"mileage_max"`

	EngineSizeFloor float64 `json:"engine_size_floor"`

	// TrackMPG enables the two mpg corrections: above MPGMax is capped,
	// below MPGMin is replaced by MPGFallback.
	TrackMPG    bool    `json:"track_mpg"`
	MPGMin      float64 `json:"mpg_min"`
	MPGMax      float64 `json:"mpg_max"`
	MPGFallback float64 `json:"mpg_fallback"`

	Automatic  AutomaticPolicy `json:"automatic_policy"`
	Doors      DoorTable       `json:"doors"`
	Exclusions []Exclusion     `json:"exclusions"`
}

// DefaultPolicy returns the constants used by the reference analysis.
func DefaultPolicy() Policy {
	doors, _ := DoorPreset(DoorsTwoFour)
	return Policy{
		ReferenceYear:   2025,
		PriceMin:        2000,
		PriceMax:        60000,
		MileageMin:      0,
		MileageMax:      200000,
		EngineSizeFloor: 1.0,
		TrackMPG:        true,
		MPGMin:          7,
		MPGMax:          60,
		MPGFallback:     28,
		Automatic:       AutomaticAllowlist,
		Doors:           doors,
		Exclusions:      []Exclusion{{Year: 1998, Price: 19990}},
	}
}

// Validate rejects policies that cannot produce a meaningful result.
func (p Policy) Validate() error {
	var errs []error
	if p.ReferenceYear <= 0 {
		errs = append(errs, fmt.Errorf("reference_year must be positive, got %d", p.ReferenceYear))
	}
	if p.PriceMin >= p.PriceMax {
		errs = append(errs, fmt.Errorf("price bounds inverted: min %g >= max %g", p.PriceMin, p.PriceMax))
	}
	if p.MileageMin >= p.MileageMax {
		errs = append(errs, fmt.Errorf("mileage bounds inverted: min %g >= max %g", p.MileageMin, p.MileageMax))
	}
	if p.EngineSizeFloor < 0 {
		errs = append(errs, fmt.Errorf("engine_size_floor must not be negative, got %g", p.EngineSizeFloor))
	}
	if p.TrackMPG {
		if p.MPGMin >= p.MPGMax {
			errs = append(errs, fmt.Errorf("mpg band inverted: min %g >= max %g", p.MPGMin, p.MPGMax))
		}
		if p.MPGFallback < p.MPGMin || p.MPGFallback > p.MPGMax {
			errs = append(errs, fmt.Errorf("mpg_fallback %g outside band [%g, %g]", p.MPGFallback, p.MPGMin, p.MPGMax))
		}
	}
	switch p.Automatic {
	case AutomaticAllowlist, AutomaticSubstring:
	default:
		errs = append(errs, fmt.Errorf("unknown automatic policy %q (use %s or %s)", p.Automatic, AutomaticAllowlist, AutomaticSubstring))
	}
	if p.Doors.Default <= 0 {
		errs = append(errs, fmt.Errorf("door default must be positive, got %d", p.Doors.Default))
	}
	for m, n := range p.Doors.Values {
		if n <= 0 {
			errs = append(errs, fmt.Errorf("door count for %q must be positive, got %d", m, n))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid policy: %w", errors.Join(errs...))
	}
	return nil
}

// ParseAutomaticPolicy normalizes a policy name.
func ParseAutomaticPolicy(s string) (AutomaticPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(AutomaticAllowlist), "exact":
		return AutomaticAllowlist, nil
	case string(AutomaticSubstring), "contains":
		return AutomaticSubstring, nil
	default:
		return "", fmt.Errorf("unknown automatic policy %q (use %s or %s)", s, AutomaticAllowlist, AutomaticSubstring)
	}
}
