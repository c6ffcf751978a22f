package pipeline

// FilterStats reports how many rows each rule removed. A row failing several
// rules is counted once, under the first of price, mileage, exclusion.
type FilterStats struct {
	In             int `json:"in"`
	Out            int `json:"out"`
	PriceDropped   int `json:"price_dropped"`
	MileageDropped int `json:"mileage_dropped"`
	Excluded       int `json:"excluded"`
}

// Filter keeps rows inside the price and mileage bounds that match no literal exclusion.
// It never adds rows. An empty result is an EmptyResultError.
func Filter(rows []Enriched, p Policy) ([]Enriched, FilterStats, error) {
	st := FilterStats{In: len(rows)}
	out := make([]Enriched, 0, len(rows))
	for _, r := range rows {
		switch {
		case !(r.Price > p.PriceMin && r.Price < p.PriceMax):
			st.PriceDropped++
		case !(r.Mileage >= p.MileageMin && r.Mileage < p.MileageMax):
			st.MileageDropped++
		case p.excluded(r.Year, r.Price):
			st.Excluded++
		default:
			out = append(out, r)
		}
	}
	st.Out = len(out)
	if len(out) == 0 {
		return nil, st, &EmptyResultError{Stats: st}
	}
	return out, st, nil
}

func (p Policy) excluded(year int, price float64) bool {
	for _, x := range p.Exclusions {
		if x.Year == year && x.Price == price {
			return true
		}
	}
	return false
}
