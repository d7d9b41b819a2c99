// Package llm labels comments with a hosted language model instead of a
// fitted linear model. It implements classifier.Classifier.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

// Request is one structured-output exchange with the model.
type Request struct {
	Instructions string
	Input        string
	SchemaName   string
	Schema       map[string]interface{}
}

// Completer sends a request and returns the model's raw output text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

const instructions = `You label the sentiment of user comments on a video.
Each input line is "<index>: <comment>". The comments are already normalized:
lowercased, stopwords removed, words reduced to their base form.
Return one entry per input index with sentiment "positive", "neutral" or "negative".
Negations such as "not" and contrast words such as "but" matter.
Respond with JSON only.`

type labelsResponse struct {
	Labels []itemLabel `json:"labels" jsonschema:"required"`
}

type itemLabel struct {
	Index     int    `json:"index" jsonschema:"required"`
	Sentiment string `json:"sentiment" jsonschema:"required,enum=positive,enum=neutral,enum=negative"`
}

var labelsSchema = GenerateSchema[labelsResponse]()

// DefaultBatchSize bounds how many comments go into one model call.
const DefaultBatchSize = 50

// Classifier sends normalized comments to a Completer in batches.
type Classifier struct {
	completer Completer
	batchSize int
	logger    zerolog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithBatchSize sets the number of comments per model call.
func WithBatchSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithLogger sets the classifier logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Classifier) { c.logger = l }
}

// New creates a classifier backed by completer.
func New(completer Completer, opts ...Option) *Classifier {
	c := &Classifier{completer: completer, batchSize: DefaultBatchSize, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Predict implements classifier.Classifier. Labels are the words
// positive/neutral/negative, in input order.
func (c *Classifier) Predict(ctx context.Context, texts []string) ([]string, error) {
	out := make([]string, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		labels, err := c.predictBatch(ctx, texts[start:end])
		if err != nil {
			return nil, &internalerr.ClassifierError{Op: "llm predict", Err: err}
		}
		out = append(out, labels...)
	}
	return out, nil
}

func (c *Classifier) predictBatch(ctx context.Context, texts []string) ([]string, error) {
	raw, err := c.completer.Complete(ctx, Request{
		Instructions: instructions,
		Input:        formatInput(texts),
		SchemaName:   "CommentSentiments",
		Schema:       labelsSchema,
	})
	if err != nil {
		return nil, err
	}

	var resp labelsResponse
	if err := DecodeModelJSON(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode labels: %w", err)
	}

	labels := make([]string, len(texts))
	for _, item := range resp.Labels {
		if item.Index < 0 || item.Index >= len(texts) {
			c.logger.Debug().Int("index", item.Index).Msg("model returned out-of-range index")
			continue
		}
		labels[item.Index] = item.Sentiment
	}
	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("model returned no label for index %d", i)
		}
	}
	return labels, nil
}

func formatInput(texts []string) string {
	var buf bytes.Buffer
	for i, t := range texts {
		fmt.Fprintf(&buf, "%d: %s\n", i, strings.ReplaceAll(t, "\n", " "))
	}
	return buf.String()
}

// DecodeModelJSON unmarshals model output, tolerating prose around a single
// JSON object. An opening brace without a closing one is io.ErrUnexpectedEOF.
func DecodeModelJSON(outputText string, v interface{}) error {
	s := strings.TrimSpace(outputText)
	if s == "" {
		return io.ErrUnexpectedEOF
	}
	if err := json.Unmarshal([]byte(s), v); err == nil {
		return nil
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start != -1 && end == -1 {
		return io.ErrUnexpectedEOF
	}
	if start == -1 || end <= start {
		return fmt.Errorf("no JSON object found in model output (len=%d)", len(s))
	}
	sub := s[start : end+1]
	if err := json.Unmarshal([]byte(sub), v); err != nil {
		return fmt.Errorf("unmarshal extracted JSON (len=%d): %w", len(sub), err)
	}
	return nil
}
