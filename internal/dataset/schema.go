package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Column names as they appear in the source header.
const (
	ColModel        = "model"
	ColYear         = "year"
	ColPrice        = "price"
	ColTransmission = "transmission"
	ColMileage      = "mileage"
	ColFuelType     = "fuelType"
	ColTax          = "tax"
	ColMPG          = "mpg"
	ColEngineSize   = "engineSize"
)

// Columns lists every column the pipeline requires, in source order.
var Columns = []string{
	ColModel, ColYear, ColPrice, ColTransmission, ColMileage,
	ColFuelType, ColTax, ColMPG, ColEngineSize,
}

// RawRecord is one vehicle listing as ingested.
type RawRecord struct {
	Model        string
	Year         int
	Price        float64
	Transmission string
	Mileage      float64
	FuelType     string
	Tax          float64
	MPG          float64
	EngineSize   float64
}

// headerIndex maps each required column to its position in the header.
// Column names are trimmed and matched case-insensitively; extra columns are ignored.
type headerIndex map[string]int

func indexHeader(header []string) (headerIndex, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\uFEFF")))
		if name == "" {
			continue
		}
		if _, dup := pos[name]; !dup {
			pos[name] = i
		}
	}
	idx := make(headerIndex, len(Columns))
	var missing []string
	for _, c := range Columns {
		i, ok := pos[strings.ToLower(c)]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx[c] = i
	}
	if len(missing) > 0 {
		return nil, &SchemaMismatchError{Missing: missing}
	}
	return idx, nil
}

// record converts one data row. rowNum is 1-based, counting data rows only.
func (h headerIndex) record(row []string, rowNum int) (RawRecord, error) {
	cell := func(col string) string {
		i := h[col]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}
	var (
		r   RawRecord
		err error
	)
	r.Model = cell(ColModel)
	r.Transmission = cell(ColTransmission)
	r.FuelType = cell(ColFuelType)
	if r.Year, err = parseInt(cell(ColYear)); err != nil {
		return r, cellError(rowNum, ColYear, cell(ColYear), err)
	}
	nums := []struct {
		col string
		dst *float64
	}{
		{ColPrice, &r.Price},
		{ColMileage, &r.Mileage},
		{ColTax, &r.Tax},
		{ColMPG, &r.MPG},
		{ColEngineSize, &r.EngineSize},
	}
	for _, n := range nums {
		v, perr := parseNumber(cell(n.col))
		if perr != nil {
			return r, cellError(rowNum, n.col, cell(n.col), perr)
		}
		*n.dst = v
	}
	return r, nil
}

func cellError(row int, col, val string, err error) error {
	return &SchemaMismatchError{Row: row, Column: col, Value: val, Err: err}
}

// parseNumber accepts plain decimals with optional thousands commas and
// surrounding whitespace ("12,500", " 1.4 ").
func parseNumber(s string) (float64, error) {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return 0, fmt.Errorf("empty value")
	}
	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.ReplaceAll(raw, " ", "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a finite number")
	}
	return f, nil
}

// parseInt accepts integers and integral decimals ("2017", "2017.0").
func parseInt(s string) (int, error) {
	raw := strings.TrimSpace(s)
	if i, err := strconv.Atoi(raw); err == nil {
		return i, nil
	}
	f, err := parseNumber(raw)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer")
	}
	return int(f), nil
}
