package model

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
	"github.com/KaramelBytes/carloom-cli/internal/utils"
)

// Prediction is a fitted price and its residual (actual - predicted).
type Prediction struct {
	PredPrice float64
	Residual  float64
}

// Score predicts every car, keyed by CarID.
func (f *Fit) Score(cars []pipeline.Car) map[int]Prediction {
	out := make(map[int]Prediction, len(cars))
	for _, c := range cars {
		p := f.Predict(c)
		out[c.CarID] = Prediction{PredPrice: p, Residual: c.Price - p}
	}
	return out
}

// ScoredCar is a car with its prediction attached.
type ScoredCar struct {
	pipeline.Car
	Prediction
}

// ScoredColumns is the header of the scored CSV.
var ScoredColumns = append(append([]string(nil), pipeline.ExportColumns...), "pred_price", "residual")

// Attach joins predictions to cars by CarID. Every car must have a prediction.
func Attach(cars []pipeline.Car, preds map[int]Prediction) ([]ScoredCar, error) {
	out := make([]ScoredCar, len(cars))
	for i, c := range cars {
		p, ok := preds[c.CarID]
		if !ok {
			return nil, fmt.Errorf("no prediction for CarID %d", c.CarID)
		}
		out[i] = ScoredCar{Car: c, Prediction: p}
	}
	return out, nil
}

// Record renders a scored car in ScoredColumns order.
func (s ScoredCar) Record() []string {
	return append(s.Car.Record(), pipeline.FormatFloat(s.PredPrice), pipeline.FormatFloat(s.Residual))
}

// WriteCSV writes scored cars with a header.
func WriteCSV(w io.Writer, scored []ScoredCar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ScoredColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range scored {
		if err := cw.Write(s.Record()); err != nil {
			return fmt.Errorf("write CarID %d: %w", s.CarID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes the scored table to path, replacing it atomically.
func ExportCSV(path string, scored []ScoredCar) error {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, scored); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("export scored csv: %w", err)
	}
	return nil
}
