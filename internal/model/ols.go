// Package model fits an ordinary least squares price model over keyed cars.
package model

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/KaramelBytes/carloom-cli/internal/pipeline"
)

// maxCondition rejects design matrices too close to rank deficient.
const maxCondition = 1e12

// Feature is one regressor.
type Feature struct {
	Name  string
	Value func(pipeline.Car) float64
}

// Features returns the regressors: Age, mileage (or KM), engineSize, Automatic.
func Features(useKM bool) []Feature {
	distance := Feature{pipeline.FieldMileage, func(c pipeline.Car) float64 { return c.Mileage }}
	if useKM {
		distance = Feature{pipeline.FieldKM, func(c pipeline.Car) float64 { return c.KM }}
	}
	return []Feature{
		{pipeline.FieldAge, func(c pipeline.Car) float64 { return float64(c.Age) }},
		distance,
		{pipeline.FieldEngineSize, func(c pipeline.Car) float64 { return c.EngineSize }},
		{pipeline.FieldAutomatic, func(c pipeline.Car) float64 { return float64(c.Automatic) }},
	}
}

// Fit is a fitted linear model of price.
type Fit struct {
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	R2           float64   `json:"r2"`
	N            int       `json:"n"`

	features []Feature
}

// FitPrice regresses price on Features(useKM) with an intercept.
func FitPrice(cars []pipeline.Car, useKM bool) (*Fit, error) {
	feats := Features(useKM)
	n, k := len(cars), len(feats)+1
	if n <= k {
		return nil, &ModelFitError{Reason: fmt.Sprintf("need more than %d rows, got %d", k, n)}
	}

	x := mat.NewDense(n, k, nil)
	y := mat.NewVecDense(n, nil)
	for i, c := range cars {
		x.Set(i, 0, 1)
		for j, f := range feats {
			x.Set(i, j+1, f.Value(c))
		}
		y.SetVec(i, c.Price)
	}
	for j, f := range feats {
		if constant(x.ColView(j + 1)) {
			return nil, &ModelFitError{Reason: fmt.Sprintf("feature %s has no variance", f.Name)}
		}
	}
	if constant(y) {
		return nil, &ModelFitError{Reason: "price has no variance"}
	}

	var qr mat.QR
	qr.Factorize(x)
	if c := qr.Cond(); c > maxCondition {
		return nil, &ModelFitError{Reason: "singular design matrix", Err: mat.Condition(c)}
	}
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, y); err != nil {
		var cond mat.Condition
		if errors.As(err, &cond) {
			return nil, &ModelFitError{Reason: "singular design matrix", Err: err}
		}
		return nil, &ModelFitError{Reason: "solve", Err: err}
	}

	fit := &Fit{
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, len(feats)),
		N:            n,
		features:     feats,
	}
	for j, f := range feats {
		fit.Features = append(fit.Features, f.Name)
		fit.Coefficients[j] = beta.AtVec(j + 1)
	}

	mean := mat.Sum(y) / float64(n)
	var ssRes, ssTot float64
	for _, c := range cars {
		r := c.Price - fit.Predict(c)
		ssRes += r * r
		d := c.Price - mean
		ssTot += d * d
	}
	fit.R2 = 1 - ssRes/ssTot
	return fit, nil
}

func constant(v mat.Vector) bool {
	for i := 1; i < v.Len(); i++ {
		if v.AtVec(i) != v.AtVec(0) {
			return false
		}
	}
	return true
}

// Coefficient returns the coefficient for a feature name.
func (f *Fit) Coefficient(name string) (float64, bool) {
	for i, n := range f.Features {
		if n == name {
			return f.Coefficients[i], true
		}
	}
	return 0, false
}

// Predict returns the fitted price for c.
func (f *Fit) Predict(c pipeline.Car) float64 {
	p := f.Intercept
	for j, feat := range f.features {
		p += f.Coefficients[j] * feat.Value(c)
	}
	return p
}
