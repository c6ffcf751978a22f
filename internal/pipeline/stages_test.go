package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/carloom-cli/internal/dataset"
)

func TestClean_TrimsAndImputes(t *testing.T) {
	in := []dataset.RawRecord{
		{Model: "  Aygo ", Transmission: "\tManual", FuelType: "Petrol\n", EngineSize: 0, MPG: 3},
		{Model: "Yaris", Transmission: "Manual", FuelType: "Petrol", EngineSize: 1.5, MPG: 61},
		{Model: "Yaris", Transmission: "Manual", FuelType: "Petrol", EngineSize: 1.0, MPG: 60},
		{Model: "Yaris", Transmission: "Manual", FuelType: "Petrol", EngineSize: 1.3, MPG: 7},
	}
	out, st := Clean(in, DefaultPolicy())

	require.Len(t, out, len(in))
	assert.Equal(t, "Aygo", out[0].Model)
	assert.Equal(t, "Manual", out[0].Transmission)
	assert.Equal(t, "Petrol", out[0].FuelType)
	assert.Equal(t, 1.0, out[0].EngineSize)
	assert.Equal(t, 28.0, out[0].MPG, "below the band is replaced by the fallback, not the floor")
	assert.Equal(t, 60.0, out[1].MPG)
	assert.Equal(t, 60.0, out[2].MPG, "boundary values are already valid")
	assert.Equal(t, 7.0, out[3].MPG)
	assert.Equal(t, CleanStats{Rows: 4, TrimmedCells: 3, EngineSizeFloored: 1, MPGCapped: 1, MPGReplaced: 1}, st)

	assert.Equal(t, "  Aygo ", in[0].Model, "input must not be modified")
}

func TestClean_Idempotent(t *testing.T) {
	once, _ := Clean(sampleFleet(), DefaultPolicy())
	twice, st := Clean(once, DefaultPolicy())
	assert.Equal(t, once, twice)
	assert.Equal(t, CleanStats{Rows: len(once)}, st, "second pass is a no-op")
}

func TestClean_MPGUntrackedLeavesValues(t *testing.T) {
	p := DefaultPolicy()
	p.TrackMPG = false
	out, st := Clean([]dataset.RawRecord{{MPG: 95, EngineSize: 1.2}, {MPG: 2, EngineSize: 1.2}}, p)
	assert.Equal(t, 95.0, out[0].MPG)
	assert.Equal(t, 2.0, out[1].MPG)
	assert.Zero(t, st.MPGCapped+st.MPGReplaced)
}

func TestClassifyTransmission(t *testing.T) {
	cases := []struct {
		in        string
		allowlist int
		substring int
	}{
		{"Automatic", 1, 1},
		{"Semi-Auto", 1, 1},
		{"Manual", 0, 0},
		{"Other", 0, 0},
		{"automatic", 0, 1},
		{"AUTO", 0, 1},
		{"CVT Auto-Shift", 0, 1},
		{"", 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowlist, ClassifyTransmission(AutomaticAllowlist, tc.in), "allowlist %q", tc.in)
		assert.Equal(t, tc.substring, ClassifyTransmission(AutomaticSubstring, tc.in), "substring %q", tc.in)
	}
}

func TestDerive(t *testing.T) {
	p := DefaultPolicy()
	p.ReferenceYear = 2020
	rows, _ := Clean(sampleFleet(), p)
	out := Derive(rows, p)

	require.Len(t, out, len(rows))
	counts := p.Doors.Counts()
	for i, e := range out {
		assert.Equal(t, 2020-rows[i].Year, e.Age)
		assert.Contains(t, []int{0, 1}, e.Automatic)
		assert.Contains(t, counts, e.Doors)
		assert.Equal(t, rows[i].Mileage*1.60934, e.KM)
	}
	assert.Equal(t, 2, out[3].Doors, "GT86 is a two-door")
	assert.Equal(t, 4, out[0].Doors)
	assert.Equal(t, 1, out[2].Automatic, "trimmed Semi-Auto")
}

func TestDoorPresets(t *testing.T) {
	twoFour, err := DoorPreset(DoorsTwoFour)
	require.NoError(t, err)
	assert.Equal(t, 2, twoFour.Lookup("Supra"))
	assert.Equal(t, 4, twoFour.Lookup("Hilux"))
	assert.Equal(t, []int{2, 4}, twoFour.Counts())

	threeFive, err := DoorPreset("THREE-FIVE")
	require.NoError(t, err)
	assert.Equal(t, 3, threeFive.Lookup("Aygo"))
	assert.Equal(t, 5, threeFive.Lookup("Yaris"))
	assert.Equal(t, 5, threeFive.Lookup("Verso-S"))
	assert.Equal(t, []int{3, 5}, threeFive.Counts())

	_, err = DoorPreset("coupe")
	assert.Error(t, err)
}

func TestFilter_BoundsAndExclusions(t *testing.T) {
	p := DefaultPolicy()
	p.Exclusions = append(p.Exclusions, Exclusion{Year: 2019, Price: 52000})
	mk := func(year int, price, mileage float64) Enriched {
		return Enriched{RawRecord: dataset.RawRecord{Model: "Yaris", Year: year, Price: price, Mileage: mileage}}
	}
	in := []Enriched{
		mk(2017, 2000, 10),     // price == min
		mk(2017, 2000.01, 10),  // kept
		mk(2017, 60000, 10),    // price == max
		mk(2017, 59999, 0),     // kept, mileage == min
		mk(2017, 9000, -1),     // negative mileage
		mk(2017, 9000, 200000), // mileage == max
		mk(1998, 19990, 50000), // literal exclusion
		mk(1998, 19990, 60000), // same pair again
		mk(2019, 52000, 8000),  // extra exclusion
		mk(1998, 19991, 50000), // near miss kept
	}
	out, st, err := Filter(in, p)
	require.NoError(t, err)
	assert.Equal(t, FilterStats{In: 10, Out: 3, PriceDropped: 2, MileageDropped: 2, Excluded: 3}, st)
	for _, r := range out {
		assert.Greater(t, r.Price, p.PriceMin)
		assert.Less(t, r.Price, p.PriceMax)
		assert.GreaterOrEqual(t, r.Mileage, p.MileageMin)
		assert.Less(t, r.Mileage, p.MileageMax)
		assert.False(t, r.Year == 1998 && r.Price == 19990)
	}
}

func TestFilter_OrderIndependent(t *testing.T) {
	rows := Derive(sampleFleet(), DefaultPolicy())
	fwd, _, err := Filter(rows, DefaultPolicy())
	require.NoError(t, err)

	rev := make([]Enriched, len(rows))
	for i := range rows {
		rev[len(rows)-1-i] = rows[i]
	}
	back, _, err := Filter(rev, DefaultPolicy())
	require.NoError(t, err)
	assert.ElementsMatch(t, fwd, back)
}

func TestFilter_EmptyInput(t *testing.T) {
	_, st, err := Filter(nil, DefaultPolicy())
	assert.ErrorIs(t, err, ErrEmptyResult)
	assert.Zero(t, st.In)
}

func TestAssignKeys_StableSortAndContiguousIDs(t *testing.T) {
	rows := Derive(sampleFleet(), DefaultPolicy())
	for i := range rows {
		rows[i].Model = strings.TrimSpace(rows[i].Model)
	}
	cars := AssignKeys(rows)
	require.Len(t, cars, len(rows))

	for i, c := range cars {
		assert.Equal(t, i+1, c.CarID)
		if i == 0 {
			continue
		}
		prev := cars[i-1]
		ordered := prev.Model < c.Model ||
			(prev.Model == c.Model && (prev.Year < c.Year || (prev.Year == c.Year && prev.Price <= c.Price)))
		assert.True(t, ordered, "cars %d and %d out of order", prev.CarID, c.CarID)
	}
	// The two Auris 2016 rows tie on (model, year, price); input order is kept.
	assert.Equal(t, "Auris", cars[0].Model)
	assert.Equal(t, "Automatic", cars[0].Transmission)
	assert.Equal(t, "Manual", cars[1].Transmission)

	assert.Equal(t, "Yaris", rows[0].Model, "input order untouched")
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.Automatic = "fuzzy"
	p.MPGFallback = 80
	p.Doors.Default = 0
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown automatic policy")
	assert.Contains(t, err.Error(), "mpg_fallback 80 outside band")
	assert.Contains(t, err.Error(), "door default must be positive")

	p = DefaultPolicy()
	p.TrackMPG = false
	p.MPGFallback = 80
	assert.NoError(t, p.Validate(), "mpg band is ignored when mpg is not tracked")
}

func TestParseAutomaticPolicy(t *testing.T) {
	got, err := ParseAutomaticPolicy(" Substring ")
	require.NoError(t, err)
	assert.Equal(t, AutomaticSubstring, got)
	got, err = ParseAutomaticPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AutomaticAllowlist, got)
	_, err = ParseAutomaticPolicy("regex")
	assert.Error(t, err)
}

func TestDoorTable_LookupFallsBackToCaseInsensitive(t *testing.T) {
	tbl := DoorTable{Values: map[string]int{"supra": 2, "Aygo": 3}, Default: 4}
	assert.Equal(t, 2, tbl.Lookup("Supra"))
	assert.Equal(t, 3, tbl.Lookup(" Aygo "))
	assert.Equal(t, 4, tbl.Lookup("Hilux"))
}
