package pulse

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
	"github.com/cognicore/commentpulse/pkg/pulse/classifier"
	"github.com/cognicore/commentpulse/pkg/pulse/events"
	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/sentiment"
	"github.com/cognicore/commentpulse/pkg/pulse/store"
	"github.com/cognicore/commentpulse/pkg/pulse/textnorm"
)

// Service runs the comment analytics pipeline:
// normalize → classify → canonicalize → aggregate.
// Its dependencies are read-only, so one Service serves concurrent requests.
type Service struct {
	normalizer  *textnorm.Normalizer
	classifier  classifier.Classifier
	engine      *analytics.Engine
	store       store.ReportStore
	publisher   events.Publisher
	logger      zerolog.Logger
	workers     int
	maxComments int
	now         func() time.Time

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// Options configures a Service. Classifier is required; Store and Publisher
// are optional side channels.
type Options struct {
	Normalizer  *textnorm.Normalizer
	Classifier  classifier.Classifier
	Engine      *analytics.Engine
	Store       store.ReportStore
	Publisher   events.Publisher
	Logger      zerolog.Logger
	Workers     int // normalization workers per request, default GOMAXPROCS
	MaxComments int // 0 means no limit
	Now         func() time.Time
}

// New creates a Service with the given dependencies
func New(opts Options) (*Service, error) {
	if opts.Classifier == nil {
		return nil, fmt.Errorf("pulse: classifier required: %w", internalerr.ErrInvalidConfig)
	}
	if opts.Normalizer == nil {
		opts.Normalizer = textnorm.New(nil, nil)
	}
	if opts.Engine == nil {
		opts.Engine = analytics.NewEngine(opts.Normalizer.Stoplist(), analytics.DefaultLimits)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		normalizer:  opts.Normalizer,
		classifier:  opts.Classifier,
		engine:      opts.Engine,
		store:       opts.Store,
		publisher:   opts.Publisher,
		logger:      opts.Logger,
		workers:     opts.Workers,
		maxComments: opts.MaxComments,
		now:         opts.Now,
		entropy:     ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close releases the report store, if any.
func (s *Service) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Report is one completed analytics run.
type Report struct {
	ID     string
	Result *analytics.Result
}

// Analyze produces the full analytics result for a batch, or an error and no
// result. Archiving and event publication happen after the result is final
// and never fail the call.
func (s *Service) Analyze(ctx context.Context, comments []analytics.Comment) (*Report, error) {
	if err := s.validate(len(comments)); err != nil {
		return nil, err
	}
	start := s.now()

	normalized, fallbacks := s.normalizeAll(comments)
	scores, err := s.label(ctx, normalized)
	if err != nil {
		return nil, err
	}

	batch := make([]analytics.LabeledComment, len(normalized))
	for i, nc := range normalized {
		batch[i] = analytics.LabeledComment{NormalizedComment: nc, Sentiment: scores[i]}
	}
	result := s.engine.Compute(batch)

	report := &Report{ID: s.newID(), Result: result}
	s.logger.Debug().
		Str("report", report.ID).
		Int("comments", len(comments)).
		Int("fallbacks", fallbacks).
		Dur("took", s.now().Sub(start)).
		Msg("analyzed batch")

	s.archive(ctx, report)
	return report, nil
}

// Prediction is one labeled comment.
type Prediction struct {
	Comment   string `json:"comment"`
	Sentiment string `json:"sentiment"`
}

// Predict labels raw texts, returning canonical codes "-1", "0" or "1".
func (s *Service) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	comments := make([]analytics.Comment, len(texts))
	for i, t := range texts {
		comments[i] = analytics.Comment{Text: t}
	}
	if err := s.validate(len(comments)); err != nil {
		return nil, err
	}

	normalized, _ := s.normalizeAll(comments)
	scores, err := s.label(ctx, normalized)
	if err != nil {
		return nil, err
	}
	out := make([]Prediction, len(texts))
	for i, t := range texts {
		out[i] = Prediction{Comment: t, Sentiment: scores[i].String()}
	}
	return out, nil
}

// TimedPrediction echoes the input timestamp verbatim; nil when absent.
type TimedPrediction struct {
	Comment   string  `json:"comment"`
	Sentiment string  `json:"sentiment"`
	Timestamp *string `json:"timestamp"`
}

// PredictWithTimestamps labels comments and carries their timestamps through.
func (s *Service) PredictWithTimestamps(ctx context.Context, comments []analytics.Comment) ([]TimedPrediction, error) {
	if err := s.validate(len(comments)); err != nil {
		return nil, err
	}

	normalized, _ := s.normalizeAll(comments)
	scores, err := s.label(ctx, normalized)
	if err != nil {
		return nil, err
	}
	out := make([]TimedPrediction, len(comments))
	for i, c := range comments {
		out[i] = TimedPrediction{Comment: c.Text, Sentiment: scores[i].String()}
		if c.Timestamp != "" {
			ts := c.Timestamp
			out[i].Timestamp = &ts
		}
	}
	return out, nil
}

// WordCloud returns keyword weights over the normalized texts.
func (s *Service) WordCloud(ctx context.Context, texts []string, limit int) ([]analytics.WordWeight, error) {
	if len(texts) == 0 {
		return nil, internalerr.Validation("no comments provided")
	}
	comments := make([]analytics.Comment, len(texts))
	for i, t := range texts {
		comments[i] = analytics.Comment{Text: t}
	}
	normalized, _ := s.normalizeAll(comments)
	out := make([]string, len(normalized))
	for i, nc := range normalized {
		out[i] = nc.NormalizedText
	}
	return s.engine.WordFrequencies(out, limit), nil
}

// GetReport loads an archived result.
func (s *Service) GetReport(ctx context.Context, id string) (*analytics.Result, error) {
	if s.store == nil {
		return nil, internalerr.ErrStoreUnavailable
	}
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, err
	}
	var res analytics.Result
	if err := json.Unmarshal(r.ResultJSON, &res); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", id, err)
	}
	return &res, nil
}

// ListReports returns archived report summaries, newest first.
func (s *Service) ListReports(ctx context.Context, limit int) ([]store.ReportSummary, error) {
	if s.store == nil {
		return nil, internalerr.ErrStoreUnavailable
	}
	return s.store.ListReports(ctx, limit)
}

func (s *Service) validate(n int) error {
	if n == 0 {
		return internalerr.Validation("no comments provided")
	}
	if s.maxComments > 0 && n > s.maxComments {
		return internalerr.Validation(fmt.Sprintf("batch of %d comments exceeds limit %d", n, s.maxComments))
	}
	return nil
}

// label classifies normalized texts in one batch and canonicalizes the labels.
func (s *Service) label(ctx context.Context, normalized []analytics.NormalizedComment) ([]sentiment.Score, error) {
	texts := make([]string, len(normalized))
	for i, nc := range normalized {
		texts[i] = nc.NormalizedText
	}

	labels, err := s.classifier.Predict(ctx, texts)
	if err != nil {
		if errors.Is(err, internalerr.ErrClassifier) {
			return nil, err
		}
		return nil, &internalerr.ClassifierError{Op: "predict", Err: err}
	}
	if len(labels) != len(texts) {
		return nil, &internalerr.ClassifierError{
			Op:  "predict",
			Err: fmt.Errorf("got %d labels for %d texts", len(labels), len(texts)),
		}
	}
	return sentiment.CanonicalizeAll(labels)
}

func (s *Service) newID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// archive stores and announces a finished report. Failures are logged only.
func (s *Service) archive(ctx context.Context, r *Report) {
	if s.store != nil {
		payload, err := json.Marshal(r.Result)
		if err == nil {
			err = s.store.SaveReport(ctx, store.Report{
				ID:         r.ID,
				CreatedAt:  s.now(),
				Total:      r.Result.Summary.Total,
				ResultJSON: payload,
			})
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("report", r.ID).Msg("archive report failed")
		}
	}
	if s.publisher != nil {
		ev := events.Completed(r.ID, r.Result, s.now())
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn().Err(err).Str("report", r.ID).Msg("publish report event failed")
		}
	}
}
