package pipeline

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

// ExportColumns is the header of the keyed CSV export.
var ExportColumns = []string{
	FieldCarID, FieldModel, FieldYear, FieldPrice, FieldTransmission, FieldMileage,
	FieldFuelType, FieldTax, FieldMPG, FieldEngineSize, FieldAge, FieldAutomatic, FieldDoors, FieldKM,
}

// Record renders a car in ExportColumns order. Floats keep full precision.
func (c Car) Record() []string {
	return []string{
		strconv.Itoa(c.CarID),
		c.Model,
		strconv.Itoa(c.Year),
		FormatFloat(c.Price),
		c.Transmission,
		FormatFloat(c.Mileage),
		c.FuelType,
		FormatFloat(c.Tax),
		FormatFloat(c.MPG),
		FormatFloat(c.EngineSize),
		strconv.Itoa(c.Age),
		strconv.Itoa(c.Automatic),
		strconv.Itoa(c.Doors),
		FormatFloat(c.KM),
	}
}

// FormatFloat renders the shortest representation that round-trips.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// WriteCSV writes header plus one row per car.
func WriteCSV(w io.Writer, cars []Car) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, c := range cars {
		if err := cw.Write(c.Record()); err != nil {
			return fmt.Errorf("write record %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV overwrites path with the keyed cars table.
func ExportCSV(path string, cars []Car) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, cars); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}
