package cmd

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
	"github.com/KaramelBytes/carloom-cli/internal/runlog"
)

const fleetCSV = `model,year,price,transmission,mileage,fuelType,tax,mpg,engineSize
 Yaris,2017,8495,Manual,29946,Petrol,150,57.7,1.5
Auris,2016,11000,Automatic,40000,Hybrid,0,70.6,1.8
Yaris,2017,7995,Semi-Auto ,12000,Petrol,145,55.4,1.0
GT86,2016,16000,Manual,24089,Petrol,265,36.2,2.0
Auris,2015,9250,Manual,52000,Petrol,125,55.4,1.2
Land Cruiser,2019,52000,Automatic,8000,Diesel,145,32.8,2.8
Prius,2018,17500,Automatic,21000,Hybrid,135,85.6,1.8
C-HR,2019,19850,Automatic,9500,Hybrid,135,74.3,1.8
Aygo,2018,6250,Manual,18000,Petrol,145,69.0,1.0
RAV4,2017,18400,Manual,33000,Diesel,145,60.1,2.0
Supra,1998,19990,Manual,50000,Petrol,150,25.0,3.0
Yaris,2014,1500,Manual,90000,Petrol,30,60.0,1.0
Corolla,2012,4995,Manual,240000,Diesel,125,65.7,1.4
`

// resetFlags restores every flag to its default so state does not leak between invocations.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// env isolates HOME, the working directory and output_dir, and writes the fixture.
func env(t *testing.T) (outDir, src string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())
	outDir = t.TempDir()
	t.Setenv("CARLOOM_OUTPUT_DIR", outDir)
	src = filepath.Join(t.TempDir(), "toyota.csv")
	require.NoError(t, os.WriteFile(src, []byte(fleetCSV), 0o644))
	return outDir, src
}

// execRoot executes the root command with args and returns its stdout.
func execRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execRoot(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return recs
}

func TestCLI_RunWritesAllOutputs(t *testing.T) {
	outDir, src := env(t)

	out := mustRun(t, "run", src, "--report", "report.md", "--fit")
	assert.Contains(t, out, "✓ Wrote 10 cars (10 of 13 rows kept)")
	assert.Contains(t, out, "✓ Fitted price model on 10 cars")

	cars := readCSV(t, filepath.Join(outDir, "cars.csv"))
	require.Len(t, cars, 11)
	assert.Equal(t, []string{"CarID", "model", "year", "price"}, cars[0][:4])
	assert.Equal(t, []string{"1", "Auris", "2015", "9250"}, cars[1][:4])
	for i, rec := range cars[1:] {
		assert.Equal(t, strings.TrimSpace(rec[1]), rec[1])
		assert.Equal(t, strconv.Itoa(i+1), rec[0])
	}

	scored := readCSV(t, filepath.Join(outDir, "scored.csv"))
	require.Len(t, scored, 11)
	assert.Equal(t, "residual", scored[0][len(scored[0])-1])

	report, err := os.ReadFile(filepath.Join(outDir, "report.md"))
	require.NoError(t, err)
	assert.Contains(t, string(report), "[DATASET SUMMARY]")

	ms, err := runlog.List(outDir)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.Equal(t, 10, ms[0].Cars)
	assert.NotNil(t, ms[0].Fit)
	assert.Len(t, ms[0].Outputs, 3)
}

func TestCLI_RunPolicyFlags(t *testing.T) {
	outDir, src := env(t)

	mustRun(t, "run", src, "-q", "-o", "doors.csv", "--door-policy", "three-five", "--reference-year", "2020")
	cars := readCSV(t, filepath.Join(outDir, "doors.csv"))
	header := cars[0]
	col := func(name string) int {
		for i, h := range header {
			if h == name {
				return i
			}
		}
		t.Fatalf("missing column %s", name)
		return -1
	}
	for _, rec := range cars[1:] {
		if rec[col("model")] == "Aygo" {
			assert.Equal(t, "3", rec[col("Doors")])
			assert.Equal(t, "2", rec[col("Age")])
		}
	}
}

func TestCLI_RunFailsOnEmptyResultAndRecordsIt(t *testing.T) {
	outDir, src := env(t)
	t.Setenv("CARLOOM_PRICE_MAX", "2100")
	t.Setenv("CARLOOM_PRICE_MIN", "2000")

	_, err := execRoot(t, "run", src)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrEmptyResult)

	ms, err := runlog.List(outDir)
	require.NoError(t, err)
	require.Len(t, ms, 1)
	assert.NotEmpty(t, ms[0].Error)

	out := mustRun(t, "runs")
	assert.Contains(t, out, "failed:")
}

func TestCLI_RunMissingSource(t *testing.T) {
	env(t)
	_, err := execRoot(t, "run", filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")

	_, err = execRoot(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source given")
}

func TestCLI_Query(t *testing.T) {
	_, src := env(t)

	out := mustRun(t, "query", "--list")
	assert.Contains(t, out, "avg-price-by-model")

	out = mustRun(t, "query", src, "count-by-doors")
	assert.Contains(t, out, "| Doors | cars |")
	assert.Contains(t, out, "| 2 | 1 |")
	assert.Contains(t, out, "(2 rows)")

	out = mustRun(t, "query", src, "SELECT COUNT(*) AS n FROM cars c JOIN pricing p ON p.CarID = c.CarID")
	assert.Contains(t, out, "| 10 |")

	_, err := execRoot(t, "query", src, "DROP TABLE cars")
	assert.Error(t, err)
}

func TestCLI_ReportToStdout(t *testing.T) {
	_, src := env(t)
	out := mustRun(t, "report", src, "--no-corr", "--sample-rows", "2")
	assert.Contains(t, out, "[SCHEMA]")
	assert.NotContains(t, out, "[CORRELATIONS]")
	assert.Contains(t, out, "Loaded 13 rows; 10 kept after filtering")
}

func TestCLI_Fit(t *testing.T) {
	outDir, src := env(t)
	out := mustRun(t, "fit", src, "--use-km", "--scored", "fit.csv")
	assert.Contains(t, out, "price ~ intercept + Age + KM + engineSize + Automatic")
	assert.FileExists(t, filepath.Join(outDir, "fit.csv"))
}

func TestCLI_ConfigSetAndShow(t *testing.T) {
	env(t)
	mustRun(t, "config", "set", "reference_year", "2030")
	out := mustRun(t, "config", "show")
	assert.Contains(t, out, "reference_year: 2030")
	assert.Contains(t, out, "year 1998, price 19990")

	_, err := execRoot(t, "config", "set", "price_min", "90000")
	assert.Error(t, err)
	_, err = execRoot(t, "config", "set", "bogus", "1")
	assert.Error(t, err)
}

// chdir changes the working directory to dir and restores it when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
