package pipeline

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
)

func exampleRows() []dataset.RawRecord {
	return []dataset.RawRecord{
		{Model: "Yaris", Year: 2015, Price: 9000, Mileage: 30000, Transmission: "Manual", FuelType: "Petrol", EngineSize: 0.5, Tax: 20, MPG: 65},
		{Model: "Yaris", Year: 2018, Price: 1500, Mileage: 10000, Transmission: "Automatic", FuelType: "Petrol", EngineSize: 1.3, Tax: 20, MPG: 55},
		{Model: "Supra", Year: 1998, Price: 19990, Mileage: 50000, Transmission: "Manual", FuelType: "Petrol", EngineSize: 3.0, Tax: 150, MPG: 25},
	}
}

func TestRun_EndToEndExample(t *testing.T) {
	res, err := Run(exampleRows(), DefaultPolicy(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.Len(t, res.Cars, 1)

	miles := 30000.0
	want := Car{CarID: 1, Enriched: Enriched{
		RawRecord: dataset.RawRecord{
			Model: "Yaris", Year: 2015, Price: 9000, Transmission: "Manual", Mileage: 30000,
			FuelType: "Petrol", Tax: 20, MPG: 60, EngineSize: 1.0,
		},
		Age: 10, Automatic: 0, Doors: 4, KM: miles * KMPerMile,
	}}
	assert.Equal(t, want, res.Cars[0])
	assert.Equal(t, 3, res.RawRows)
	assert.Equal(t, FilterStats{In: 3, Out: 1, PriceDropped: 1, Excluded: 1}, res.Filter)
	assert.Equal(t, 1, res.Clean.EngineSizeFloored)
	assert.Equal(t, 1, res.Clean.MPGCapped)
}

func TestRun_InvalidPolicy(t *testing.T) {
	p := DefaultPolicy()
	p.PriceMin = 70000
	_, err := Run(exampleRows(), p, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price bounds inverted")
}

func TestRun_EmptyResultIsFatal(t *testing.T) {
	p := DefaultPolicy()
	p.PriceMax = 2500
	_, err := Run(exampleRows(), p, nil)
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Contains(t, err.Error(), "removed all 3 rows")
}

func TestRun_SplitJoinRoundTrip(t *testing.T) {
	raw := sampleFleet()
	res, err := Run(raw, DefaultPolicy(), nil)
	require.NoError(t, err)

	require.Len(t, res.Specs, len(res.Cars))
	require.Len(t, res.Pricing, len(res.Cars))
	joined, err := Join(res.Specs, res.Pricing)
	require.NoError(t, err)
	assert.Equal(t, res.Cars, joined)

	for i, c := range res.Cars {
		assert.Equal(t, i+1, c.CarID, "CarID must be 1..N in order")
		assert.Equal(t, c.CarID, res.Specs[i].CarID)
		assert.Equal(t, c.Price, res.Pricing[i].Price)
	}
}

func TestVerifyRoundTrip_DetectsLossAndDrift(t *testing.T) {
	keyed := AssignKeys(Derive(sampleFleet(), DefaultPolicy()))
	assert.ErrorIs(t, VerifyRoundTrip(keyed, keyed[1:]), ErrJoinIntegrity)

	drift := append([]Car(nil), keyed...)
	drift[2].Price++
	assert.ErrorIs(t, VerifyRoundTrip(keyed, drift), ErrJoinIntegrity)
	assert.NoError(t, VerifyRoundTrip(keyed, append([]Car(nil), keyed...)))
}

func TestJoin_DropsUnmatchedKeys(t *testing.T) {
	keyed := AssignKeys(Derive(sampleFleet(), DefaultPolicy()))
	specs, pricing := Split(keyed)
	cars, err := Join(specs, pricing[:2])
	require.NoError(t, err)
	require.Len(t, cars, 2)
	assert.Equal(t, []int{1, 2}, []int{cars[0].CarID, cars[1].CarID})
}

func TestExportCSV(t *testing.T) {
	res, err := Run(exampleRows(), DefaultPolicy(), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "out", "cars.csv")
	require.NoError(t, ExportCSV(path, res.Cars))
	// overwrite, not append
	require.NoError(t, ExportCSV(path, res.Cars))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ExportColumns, rows[0])
	assert.Equal(t, []string{"1", "Yaris", "2015", "9000", "Manual", "30000", "Petrol", "20", "60", "1", "10", "0", "4", FormatFloat(res.Cars[0].KM)}, rows[1])
}

func TestWriteCSV_QuotesTextFields(t *testing.T) {
	var buf bytes.Buffer
	cars := []Car{{CarID: 1, Enriched: Enriched{RawRecord: dataset.RawRecord{Model: "Land Cruiser, LWB", Year: 2019, Price: 45000}}}}
	require.NoError(t, WriteCSV(&buf, cars))
	assert.True(t, strings.Contains(buf.String(), `"Land Cruiser, LWB"`))
}

func sampleFleet() []dataset.RawRecord {
	return []dataset.RawRecord{
		{Model: " Yaris", Year: 2017, Price: 8495, Transmission: "Manual", Mileage: 29946, FuelType: "Petrol", Tax: 150, MPG: 57.7, EngineSize: 1.5},
		{Model: "Auris", Year: 2016, Price: 11000, Transmission: "Automatic", Mileage: 40000, FuelType: "Hybrid", Tax: 0, MPG: 70.6, EngineSize: 1.8},
		{Model: "Yaris", Year: 2017, Price: 7995, Transmission: "Semi-Auto ", Mileage: 12000, FuelType: "Petrol", Tax: 145, MPG: 55.4, EngineSize: 1.0},
		{Model: "GT86", Year: 2016, Price: 16000, Transmission: "Manual", Mileage: 24089, FuelType: "Petrol", Tax: 265, MPG: 36.2, EngineSize: 2.0},
		{Model: "Auris", Year: 2016, Price: 11000, Transmission: "Manual", Mileage: 52000, FuelType: "Petrol", Tax: 125, MPG: 55.4, EngineSize: 1.2},
		{Model: "Land Cruiser", Year: 2019, Price: 52000, Transmission: "Automatic", Mileage: 8000, FuelType: "Diesel", Tax: 145, MPG: 32.8, EngineSize: 2.8},
		{Model: "Prius", Year: 2018, Price: 17500, Transmission: "Automatic", Mileage: 210000, FuelType: "Hybrid", Tax: 135, MPG: 85.6, EngineSize: 1.8},
	}
}
