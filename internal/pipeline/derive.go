package pipeline

import (
	"strings"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
)

var automaticAllowlist = map[string]struct{}{
	"Automatic": {},
	"Semi-Auto": {},
}

// ClassifyTransmission returns 1 for automatic transmissions and 0 otherwise.
// It is total: unseen spellings map to 0 unless the policy says otherwise.
func ClassifyTransmission(policy AutomaticPolicy, transmission string) int {
	t := strings.TrimSpace(transmission)
	switch policy {
	case AutomaticSubstring:
		if strings.Contains(strings.ToLower(t), "auto") {
			return 1
		}
		return 0
	default:
		if _, ok := automaticAllowlist[t]; ok {
			return 1
		}
		return 0
	}
}

// Derive adds Age, Automatic, Doors and KM to every cleaned record.
func Derive(rows []dataset.RawRecord, p Policy) []Enriched {
	out := make([]Enriched, len(rows))
	for i, r := range rows {
		out[i] = Enriched{
			RawRecord: r,
			Age:       p.ReferenceYear - r.Year,
			Automatic: ClassifyTransmission(p.Automatic, r.Transmission),
			Doors:     p.Doors.Lookup(r.Model),
			KM:        r.Mileage * KMPerMile,
		}
	}
	return out
}
