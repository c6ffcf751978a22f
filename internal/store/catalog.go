package store

import (
	"context"
	"fmt"
	"sort"
)

// NamedQuery is a canned question over the pipeline tables.
type NamedQuery struct {
	Name        string
	Description string
	SQL         string
}

// Catalog lists the named queries in display order.
var Catalog = []NamedQuery{
	{"avg-price-by-model", "Average price per model",
		`SELECT model, ROUND(AVG(price), 2) AS avg_price, COUNT(*) AS cars FROM cars GROUP BY model ORDER BY avg_price DESC, model`},
	{"count-by-fuel", "Number of cars per fuel type",
		`SELECT fuelType, COUNT(*) AS cars FROM cars GROUP BY fuelType ORDER BY cars DESC, fuelType`},
	{"top-expensive", "Ten most expensive cars",
		`SELECT CarID, model, year, price FROM cars ORDER BY price DESC, CarID LIMIT 10`},
	{"avg-mpg-by-fuel", "Average mpg per fuel type",
		`SELECT fuelType, ROUND(AVG(mpg), 2) AS avg_mpg FROM car_specs GROUP BY fuelType ORDER BY avg_mpg DESC, fuelType`},
	{"avg-price-by-transmission", "Average price per transmission",
		`SELECT s.transmission, ROUND(AVG(p.price), 2) AS avg_price, COUNT(*) AS cars
		   FROM car_specs s JOIN pricing p ON p.CarID = s.CarID
		  GROUP BY s.transmission ORDER BY avg_price DESC, s.transmission`},
	{"tax-by-year", "Total road tax per model year",
		`SELECT s.year, ROUND(SUM(p.tax), 2) AS total_tax
		   FROM car_specs s JOIN pricing p ON p.CarID = s.CarID
		  GROUP BY s.year ORDER BY s.year`},
	{"avg-mileage-by-model", "Average mileage per model",
		`SELECT model, ROUND(AVG(mileage), 0) AS avg_mileage FROM car_specs GROUP BY model ORDER BY avg_mileage DESC, model`},
	{"count-by-doors", "Number of cars per door count",
		`SELECT Doors, COUNT(*) AS cars FROM car_specs GROUP BY Doors ORDER BY Doors`},
	{"avg-price-by-engine", "Average price per engine size",
		`SELECT engineSize, ROUND(AVG(price), 2) AS avg_price, COUNT(*) AS cars FROM cars GROUP BY engineSize ORDER BY engineSize`},
	{"newest-cars", "Ten newest cars, lowest mileage first",
		`SELECT CarID, model, year, mileage, price FROM cars ORDER BY year DESC, mileage, CarID LIMIT 10`},
	{"common-models", "Ten most common models",
		`SELECT model, COUNT(*) AS cars FROM cars GROUP BY model ORDER BY cars DESC, model LIMIT 10`},
	{"avg-price-by-automatic", "Average price for manual (0) and automatic (1)",
		`SELECT s.Automatic, ROUND(AVG(p.price), 2) AS avg_price, COUNT(*) AS cars
		   FROM car_specs s JOIN pricing p ON p.CarID = s.CarID
		  GROUP BY s.Automatic ORDER BY s.Automatic`},
}

// Lookup finds a named query.
func Lookup(name string) (NamedQuery, bool) {
	for _, q := range Catalog {
		if q.Name == name {
			return q, true
		}
	}
	return NamedQuery{}, false
}

// Names returns the catalog names sorted alphabetically.
func Names() []string {
	out := make([]string, len(Catalog))
	for i, q := range Catalog {
		out[i] = q.Name
	}
	sort.Strings(out)
	return out
}

// Named runs a catalog query by name.
func (s *Store) Named(ctx context.Context, name string) (*Rows, error) {
	q, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown query %q", name)
	}
	return s.Query(ctx, q.SQL)
}
