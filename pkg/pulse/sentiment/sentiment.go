package sentiment

import (
	"strconv"
	"strings"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
)

// Score is a value on the canonical tri-state sentiment scale.
type Score int8

const (
	Negative Score = -1
	Neutral  Score = 0
	Positive Score = 1
)

// Scores lists the canonical scale in ascending order.
var Scores = []Score{Negative, Neutral, Positive}

// String returns the numeric code ("-1", "0", "1").
func (s Score) String() string {
	return strconv.Itoa(int(s))
}

// Name returns the human-readable label.
func (s Score) Name() string {
	switch s {
	case Negative:
		return "negative"
	case Positive:
		return "positive"
	default:
		return "neutral"
	}
}

// Valid reports whether s is on the canonical scale.
func (s Score) Valid() bool {
	return s >= Negative && s <= Positive
}

var words = map[string]Score{
	"positive": Positive,
	"neutral":  Neutral,
	"negative": Negative,
}

// Canonicalize maps a classifier label onto the canonical scale. Labels are
// either the words positive/neutral/negative (any case) or the integer codes
// -1, 0, 1. Anything else is a *internalerr.LabelError.
func Canonicalize(label string) (Score, error) {
	trimmed := strings.TrimSpace(label)
	if s, ok := words[strings.ToLower(trimmed)]; ok {
		return s, nil
	}

	n, err := strconv.Atoi(trimmed)
	if err != nil || n < int(Negative) || n > int(Positive) {
		return 0, &internalerr.LabelError{Label: label, Index: -1}
	}
	return Score(n), nil
}

// CanonicalizeAll maps a batch of labels, failing on the first unmappable one.
func CanonicalizeAll(labels []string) ([]Score, error) {
	out := make([]Score, len(labels))
	for i, l := range labels {
		s, err := Canonicalize(l)
		if err != nil {
			return nil, &internalerr.LabelError{Label: l, Index: i}
		}
		out[i] = s
	}
	return out, nil
}
