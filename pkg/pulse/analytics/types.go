package analytics

import (
	"time"

	"github.com/cognicore/commentpulse/pkg/pulse/sentiment"
)

// UnknownAuthor stands in for a missing author ID in commenter rankings.
const UnknownAuthor = "Unknown"

// Comment is one raw input record. Empty Timestamp and AuthorID mean absent.
type Comment struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	AuthorID  string `json:"authorId"`
}

// NormalizedComment is a comment after text normalization and timestamp parsing.
type NormalizedComment struct {
	RawText        string
	NormalizedText string
	Timestamp      time.Time
	HasTimestamp   bool
	AuthorID       string // UnknownAuthor when absent
	Anonymous      bool   // AuthorID was absent in the input
	Fallback       bool   // NormalizedText is the raw text
}

// NewNormalizedComment parses the timestamp and fills the author sentinel.
func NewNormalizedComment(c Comment, normalized string, fallback bool) NormalizedComment {
	nc := NormalizedComment{
		RawText:        c.Text,
		NormalizedText: normalized,
		AuthorID:       c.AuthorID,
		Fallback:       fallback,
	}
	if nc.AuthorID == "" {
		nc.AuthorID = UnknownAuthor
		nc.Anonymous = true
	}
	nc.Timestamp, nc.HasTimestamp = ParseTimestamp(c.Timestamp)
	return nc
}

// LabeledComment carries exactly one canonical sentiment.
type LabeledComment struct {
	NormalizedComment
	Sentiment sentiment.Score
}

// Result is the consolidated analytics payload. Every facet is computed from
// the same labeled batch.
type Result struct {
	Summary       Summary          `json:"summary"`
	Distribution  Distribution     `json:"distribution"`
	ByHour        []HourPoint      `json:"by_hour"`
	TopPositive   []Exemplar       `json:"top_positive"`
	TopNegative   []Exemplar       `json:"top_negative"`
	TopWords      []string         `json:"top_words"`
	TopBigrams    []string         `json:"top_bigrams"`
	TopCommenters []CommenterCount `json:"top_commenters"`
}

type Summary struct {
	Total                  int     `json:"total"`
	UniqueCommenters       int     `json:"unique_commenters"`
	AvgCommentLength       float64 `json:"avg_comment_length"`
	AvgSentimentScore0To10 float64 `json:"avg_sentiment_score_0_10"`
}

// Distribution counts comments per canonical value; all keys are always present.
type Distribution struct {
	Negative int `json:"-1"`
	Neutral  int `json:"0"`
	Positive int `json:"1"`
}

// Total sums the three counts.
func (d Distribution) Total() int { return d.Negative + d.Neutral + d.Positive }

// Add counts one score.
func (d *Distribution) Add(s sentiment.Score) {
	switch s {
	case sentiment.Negative:
		d.Negative++
	case sentiment.Neutral:
		d.Neutral++
	case sentiment.Positive:
		d.Positive++
	}
}

// HourPoint is the mean sentiment for one hour of the day.
type HourPoint struct {
	Hour  int     `json:"h"`
	Value float64 `json:"y"`
}

// Exemplar is a raw comment selected for its sentiment score.
type Exemplar struct {
	Text  string `json:"text"`
	Score int    `json:"score"`
}

type CommenterCount struct {
	AuthorID string `json:"authorId"`
	Count    int    `json:"count"`
}
