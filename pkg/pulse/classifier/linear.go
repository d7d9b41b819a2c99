package classifier

import (
	"context"
	"errors"
	"fmt"
)

// ErrSparseUnsupported is returned by a dense-only model given sparse input.
var ErrSparseUnsupported = errors.New("model does not accept sparse features")

// Linear is a one-vs-rest linear model: each row is labeled with the class
// whose decision value coef·x + intercept is highest. A single coefficient
// row is a binary model choosing Classes[1] on a positive decision value.
type Linear struct {
	classes   []string
	coef      [][]float64
	intercept []float64
	denseOnly bool
}

// LinearParams is the serialized model state.
type LinearParams struct {
	Classes   []string    `yaml:"classes" json:"classes"`
	Coef      [][]float64 `yaml:"coef" json:"coef"`
	Intercept []float64   `yaml:"intercept" json:"intercept"`
	DenseOnly bool        `yaml:"dense_only" json:"dense_only"`
}

// NewLinear validates params and builds the model.
func NewLinear(p LinearParams) (*Linear, error) {
	if len(p.Classes) < 2 {
		return nil, fmt.Errorf("linear: need at least 2 classes, got %d", len(p.Classes))
	}
	wantRows := len(p.Classes)
	if len(p.Classes) == 2 {
		wantRows = 1
	}
	if len(p.Coef) != wantRows {
		return nil, fmt.Errorf("linear: %d coefficient rows for %d classes", len(p.Coef), len(p.Classes))
	}
	if len(p.Intercept) != wantRows {
		return nil, fmt.Errorf("linear: %d intercepts for %d coefficient rows", len(p.Intercept), wantRows)
	}
	width := len(p.Coef[0])
	for i, row := range p.Coef {
		if len(row) != width {
			return nil, fmt.Errorf("linear: coefficient row %d has %d columns, want %d", i, len(row), width)
		}
	}
	return &Linear{
		classes:   p.Classes,
		coef:      p.Coef,
		intercept: p.Intercept,
		denseOnly: p.DenseOnly,
	}, nil
}

// Classes returns the label vocabulary in model order.
func (m *Linear) Classes() []string { return m.classes }

// Width returns the number of input features.
func (m *Linear) Width() int { return len(m.coef[0]) }

// PredictFeatures implements Model.
func (m *Linear) PredictFeatures(ctx context.Context, x Features) ([]string, error) {
	if x.Cols() != m.Width() {
		return nil, fmt.Errorf("linear: %d input features, model expects %d", x.Cols(), m.Width())
	}

	out := make([]string, x.Rows())
	switch x := x.(type) {
	case *Sparse:
		if m.denseOnly {
			return nil, ErrSparseUnsupported
		}
		for i := 0; i < x.Rows(); i++ {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			idx, vals := x.Row(i)
			out[i] = m.decide(func(k int) float64 {
				var s float64
				for n, j := range idx {
					s += m.coef[k][j] * vals[n]
				}
				return s
			})
		}
	case *Dense:
		for i, row := range x.Data {
			if i%256 == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			out[i] = m.decide(func(k int) float64 {
				var s float64
				for j, v := range row {
					s += m.coef[k][j] * v
				}
				return s
			})
		}
	default:
		return nil, fmt.Errorf("linear: unsupported feature type %T", x)
	}
	return out, nil
}

// decide picks the class for one row given its per-row dot products.
func (m *Linear) decide(dot func(k int) float64) string {
	if len(m.coef) == 1 {
		if dot(0)+m.intercept[0] > 0 {
			return m.classes[1]
		}
		return m.classes[0]
	}
	best, bestScore := 0, dot(0)+m.intercept[0]
	for k := 1; k < len(m.coef); k++ {
		if s := dot(k) + m.intercept[k]; s > bestScore {
			best, bestScore = k, s
		}
	}
	return m.classes[best]
}
