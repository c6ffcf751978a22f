package pipeline

import (
	"fmt"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Frame column names shared by CarSpecs, Pricing and the exported Cars table.
const (
	FieldCarID        = "CarID"
	FieldModel        = "model"
	FieldYear         = "year"
	FieldPrice        = "price"
	FieldTransmission = "transmission"
	FieldMileage      = "mileage"
	FieldFuelType     = "fuelType"
	FieldTax          = "tax"
	FieldMPG          = "mpg"
	FieldEngineSize   = "engineSize"
	FieldAge          = "Age"
	FieldAutomatic    = "Automatic"
	FieldDoors        = "Doors"
	FieldKM           = "KM"
)

// AssignKeys stable-sorts rows by (model, year, price) and numbers them 1..N.
// Rows tied on all three keep their input order.
func AssignKeys(rows []Enriched) []Car {
	sorted := make([]Enriched, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Model != b.Model {
			return a.Model < b.Model
		}
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		return a.Price < b.Price
	})
	cars := make([]Car, len(sorted))
	for i, r := range sorted {
		cars[i] = Car{CarID: i + 1, Enriched: r}
	}
	return cars
}

// Split projects keyed cars into the specs and pricing tables.
func Split(cars []Car) ([]CarSpecs, []Pricing) {
	specs := make([]CarSpecs, len(cars))
	pricing := make([]Pricing, len(cars))
	for i, c := range cars {
		specs[i] = CarSpecs{
			CarID:        c.CarID,
			Model:        c.Model,
			Year:         c.Year,
			Transmission: c.Transmission,
			Mileage:      c.Mileage,
			FuelType:     c.FuelType,
			MPG:          c.MPG,
			EngineSize:   c.EngineSize,
			Age:          c.Age,
			Automatic:    c.Automatic,
			Doors:        c.Doors,
			KM:           c.KM,
		}
		pricing[i] = Pricing{CarID: c.CarID, Price: c.Price, Tax: c.Tax}
	}
	return specs, pricing
}

// SpecsFrame builds a dataframe over the specs table.
func SpecsFrame(specs []CarSpecs) dataframe.DataFrame {
	n := len(specs)
	var (
		ids, years, ages, autos, doors = make([]int, n), make([]int, n), make([]int, n), make([]int, n), make([]int, n)
		models, trans, fuels           = make([]string, n), make([]string, n), make([]string, n)
		miles, mpgs, engines, kms      = make([]float64, n), make([]float64, n), make([]float64, n), make([]float64, n)
	)
	for i, s := range specs {
		ids[i], years[i], ages[i], autos[i], doors[i] = s.CarID, s.Year, s.Age, s.Automatic, s.Doors
		models[i], trans[i], fuels[i] = s.Model, s.Transmission, s.FuelType
		miles[i], mpgs[i], engines[i], kms[i] = s.Mileage, s.MPG, s.EngineSize, s.KM
	}
	return dataframe.New(
		series.New(ids, series.Int, FieldCarID),
		series.New(models, series.String, FieldModel),
		series.New(years, series.Int, FieldYear),
		series.New(trans, series.String, FieldTransmission),
		series.New(miles, series.Float, FieldMileage),
		series.New(fuels, series.String, FieldFuelType),
		series.New(mpgs, series.Float, FieldMPG),
		series.New(engines, series.Float, FieldEngineSize),
		series.New(ages, series.Int, FieldAge),
		series.New(autos, series.Int, FieldAutomatic),
		series.New(doors, series.Int, FieldDoors),
		series.New(kms, series.Float, FieldKM),
	)
}

// PricingFrame builds a dataframe over the pricing table.
func PricingFrame(pricing []Pricing) dataframe.DataFrame {
	n := len(pricing)
	ids, prices, taxes := make([]int, n), make([]float64, n), make([]float64, n)
	for i, p := range pricing {
		ids[i], prices[i], taxes[i] = p.CarID, p.Price, p.Tax
	}
	return dataframe.New(
		series.New(ids, series.Int, FieldCarID),
		series.New(prices, series.Float, FieldPrice),
		series.New(taxes, series.Float, FieldTax),
	)
}

// Join inner-joins specs and pricing on CarID and returns the Cars view ordered by CarID.
func Join(specs []CarSpecs, pricing []Pricing) ([]Car, error) {
	joined := SpecsFrame(specs).InnerJoin(PricingFrame(pricing), FieldCarID)
	if joined.Err != nil {
		return nil, fmt.Errorf("inner join: %w", joined.Err)
	}
	if joined.Nrow() == 0 {
		return nil, nil
	}
	joined = joined.Arrange(dataframe.Sort(FieldCarID))
	if joined.Err != nil {
		return nil, fmt.Errorf("arrange joined: %w", joined.Err)
	}
	return carsFromFrame(joined)
}

func carsFromFrame(df dataframe.DataFrame) ([]Car, error) {
	ints := map[string][]int{}
	for _, name := range []string{FieldCarID, FieldYear, FieldAge, FieldAutomatic, FieldDoors} {
		v, err := df.Col(name).Int()
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		ints[name] = v
	}
	floats := map[string][]float64{}
	for _, name := range []string{FieldPrice, FieldMileage, FieldTax, FieldMPG, FieldEngineSize, FieldKM} {
		floats[name] = df.Col(name).Float()
	}
	strs := map[string][]string{}
	for _, name := range []string{FieldModel, FieldTransmission, FieldFuelType} {
		strs[name] = df.Col(name).Records()
	}
	cars := make([]Car, df.Nrow())
	for i := range cars {
		c := &cars[i]
		c.CarID = ints[FieldCarID][i]
		c.Model = strs[FieldModel][i]
		c.Year = ints[FieldYear][i]
		c.Price = floats[FieldPrice][i]
		c.Transmission = strs[FieldTransmission][i]
		c.Mileage = floats[FieldMileage][i]
		c.FuelType = strs[FieldFuelType][i]
		c.Tax = floats[FieldTax][i]
		c.MPG = floats[FieldMPG][i]
		c.EngineSize = floats[FieldEngineSize][i]
		c.Age = ints[FieldAge][i]
		c.Automatic = ints[FieldAutomatic][i]
		c.Doors = ints[FieldDoors][i]
		c.KM = floats[FieldKM][i]
	}
	return cars, nil
}

// VerifyRoundTrip checks that joined reproduces keyed exactly.
func VerifyRoundTrip(keyed, joined []Car) error {
	if len(keyed) != len(joined) {
		return &JoinIntegrityError{Reason: fmt.Sprintf("%d keyed rows, %d joined rows", len(keyed), len(joined))}
	}
	for i := range keyed {
		if keyed[i] != joined[i] {
			return &JoinIntegrityError{Reason: fmt.Sprintf("CarID %d differs after join", keyed[i].CarID)}
		}
	}
	return nil
}
