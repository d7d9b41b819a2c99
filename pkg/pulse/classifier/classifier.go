package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

// Classifier labels a batch of normalized texts. The result has the same
// length and order as the input; labels are raw and canonicalized later.
type Classifier interface {
	Predict(ctx context.Context, texts []string) ([]string, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, texts []string) ([]string, error)

func (f Func) Predict(ctx context.Context, texts []string) ([]string, error) {
	return f(ctx, texts)
}

// Vectorizer turns texts into a sparse feature matrix.
type Vectorizer interface {
	Transform(texts []string) (*Sparse, error)
}

// Model maps a feature matrix to one label per row.
type Model interface {
	PredictFeatures(ctx context.Context, x Features) ([]string, error)
}

// Adapter runs a Vectorizer and a Model as one Classifier. A failed
// prediction on sparse features is retried once on the dense form.
type Adapter struct {
	vec    Vectorizer
	model  Model
	logger zerolog.Logger
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the adapter logger.
func WithLogger(l zerolog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = l }
}

// NewAdapter wires a vectorizer and a model.
func NewAdapter(vec Vectorizer, model Model, opts ...AdapterOption) *Adapter {
	a := &Adapter{vec: vec, model: model, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Predict implements Classifier.
func (a *Adapter) Predict(ctx context.Context, texts []string) ([]string, error) {
	if len(texts) == 0 {
		return []string{}, nil
	}
	start := time.Now()

	x, err := a.vec.Transform(texts)
	if err != nil {
		return nil, &internalerr.ClassifierError{Op: "vectorize", Err: err}
	}

	labels, err := a.model.PredictFeatures(ctx, x)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &internalerr.ClassifierError{Op: "predict", Err: ctxErr}
		}
		a.logger.Debug().Err(err).Int("rows", x.Rows()).Msg("sparse predict failed, retrying dense")
		labels, err = a.model.PredictFeatures(ctx, x.Dense())
		if err != nil {
			return nil, &internalerr.ClassifierError{Op: "predict dense", Err: err}
		}
	}

	if len(labels) != len(texts) {
		return nil, &internalerr.ClassifierError{
			Op:  "predict",
			Err: fmt.Errorf("got %d labels for %d texts", len(labels), len(texts)),
		}
	}

	a.logger.Debug().Int("texts", len(texts)).Dur("took", time.Since(start)).Msg("classified batch")
	return labels, nil
}
