package pipeline

import (
	"strings"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
)

// CleanStats counts the cells each cleaning rule changed.
// A zero count means the rule was a no-op for this input, which is not an error.
type CleanStats struct {
	Rows              int `json:"rows"`
	TrimmedCells      int `json:"trimmed_cells"`
	EngineSizeFloored int `json:"engine_size_floored"`
	MPGCapped         int `json:"mpg_capped"`
	MPGReplaced       int `json:"mpg_replaced"`
}

// Clean trims text fields and pulls implausible numerics back into range.
// The input is not modified. Clean is idempotent.
func Clean(rows []dataset.RawRecord, p Policy) ([]dataset.RawRecord, CleanStats) {
	out := make([]dataset.RawRecord, len(rows))
	st := CleanStats{Rows: len(rows)}
	for i, r := range rows {
		for _, f := range []*string{&r.Model, &r.Transmission, &r.FuelType} {
			if t := strings.TrimSpace(*f); t != *f {
				*f = t
				st.TrimmedCells++
			}
		}
		if r.EngineSize < p.EngineSizeFloor {
			r.EngineSize = p.EngineSizeFloor
			st.EngineSizeFloored++
		}
		if p.TrackMPG {
			// two independent one-sided corrections
			if r.MPG > p.MPGMax {
				r.MPG = p.MPGMax
				st.MPGCapped++
			}
			if r.MPG < p.MPGMin {
				r.MPG = p.MPGFallback
				st.MPGReplaced++
			}
		}
		out[i] = r
	}
	return out, st
}
