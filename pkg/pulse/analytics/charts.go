package analytics

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/commentpulse/pkg/pulse/internalerr"
	"github.com/cognicore/commentpulse/pkg/pulse/sentiment"
	"github.com/cognicore/commentpulse/pkg/pulse/textnorm"
)

// SentimentValue decodes a sentiment given as a JSON number or string.
// Anything non-numeric decodes as 0.
type SentimentValue int

func (v *SentimentValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = 0
		return nil
	}
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		*v = 0
		return nil
	}
	*v = SentimentValue(int(f))
	return nil
}

// TrendPoint is one classified comment on the trend chart.
type TrendPoint struct {
	Timestamp string         `json:"timestamp"`
	Sentiment SentimentValue `json:"sentiment"`
}

// TimelinePoint is the mean sentiment of one clock hour.
type TimelinePoint struct {
	Time  time.Time `json:"t"`
	Value float64   `json:"y"`
	Count int       `json:"n"`
}

// Timeline buckets points by hour instant in UTC, ascending. Unlike the
// by_hour facet, different days stay separate. Points whose timestamps do not
// parse are dropped; hours without points are omitted.
func Timeline(points []TrendPoint) ([]TimelinePoint, error) {
	if len(points) == 0 {
		return nil, internalerr.Validation("no sentiment data provided")
	}

	type bucket struct {
		sum   float64
		count int
	}
	buckets := make(map[time.Time]*bucket)
	for _, p := range points {
		t, ok := ParseTimestamp(p.Timestamp)
		if !ok {
			continue
		}
		key := t.UTC().Truncate(time.Hour)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		b.sum += float64(p.Sentiment)
		b.count++
	}

	out := make([]TimelinePoint, 0, len(buckets))
	for t, b := range buckets {
		out = append(out, TimelinePoint{Time: t, Value: round(b.sum/float64(b.count), 3), Count: b.count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Share is one pie slice.
type Share struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

// DistributionShares turns counts keyed by "1", "0", "-1" into pie slices in
// Positive, Neutral, Negative order. Shares are fractions rounded to 3dp.
func DistributionShares(counts map[string]int) ([]Share, error) {
	if len(counts) == 0 {
		return nil, internalerr.Validation("no sentiment counts provided")
	}
	order := []sentiment.Score{sentiment.Positive, sentiment.Neutral, sentiment.Negative}
	labels := []string{"Positive", "Neutral", "Negative"}
	out := make([]Share, len(order))
	total := 0
	for i, s := range order {
		n := counts[s.String()]
		if n < 0 {
			return nil, internalerr.Validation("negative sentiment count")
		}
		out[i] = Share{Label: labels[i], Count: n}
		total += n
	}
	if total == 0 {
		return nil, internalerr.Validation("counts sum to zero")
	}
	for i := range out {
		out[i].Share = round(float64(out[i].Count)/float64(total), 3)
	}
	return out, nil
}

// WordWeight is one word-cloud entry.
type WordWeight struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordFrequencies counts keywords across normalized texts, most frequent
// first with ties in first-seen order. limit <= 0 returns every word.
func (e *Engine) WordFrequencies(normalized []string, limit int) []WordWeight {
	c := newCounter()
	for _, text := range normalized {
		for _, tok := range textnorm.Tokens(text) {
			if e.isKeyword(tok) {
				c.add(tok)
			}
		}
	}
	entries := c.top(limit)
	out := make([]WordWeight, len(entries))
	for i, en := range entries {
		out[i] = WordWeight{Word: en.Key, Count: en.Count}
	}
	return out
}
