package analytics

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cognicore/commentpulse/pkg/pulse/stoplist"
	"github.com/cognicore/commentpulse/pkg/pulse/textnorm"
)

// Limits caps the ranked facets.
type Limits struct {
	Exemplars  int
	Words      int
	Bigrams    int
	Commenters int
}

// DefaultLimits are the dashboard sizes.
var DefaultLimits = Limits{Exemplars: 10, Words: 20, Bigrams: 20, Commenters: 10}

// MinKeywordLength excludes tokens this short or shorter from top words.
const MinKeywordLength = 2

// Engine computes analytics facets. It holds only read-only configuration
// and is safe for concurrent use.
type Engine struct {
	stops  *stoplist.Manager
	limits Limits
}

// NewEngine creates an engine. A nil stoplist means the English defaults;
// zero limits fall back to DefaultLimits.
func NewEngine(stops *stoplist.Manager, limits Limits) *Engine {
	if stops == nil {
		stops = stoplist.English()
	}
	if limits.Exemplars <= 0 {
		limits.Exemplars = DefaultLimits.Exemplars
	}
	if limits.Words <= 0 {
		limits.Words = DefaultLimits.Words
	}
	if limits.Bigrams <= 0 {
		limits.Bigrams = DefaultLimits.Bigrams
	}
	if limits.Commenters <= 0 {
		limits.Commenters = DefaultLimits.Commenters
	}
	return &Engine{stops: stops, limits: limits}
}

// Compute derives every facet from batch. The batch is only read.
func (e *Engine) Compute(batch []LabeledComment) *Result {
	return &Result{
		Summary:       summarize(batch),
		Distribution:  distribution(batch),
		ByHour:        byHour(batch),
		TopPositive:   exemplars(batch, e.limits.Exemplars, true),
		TopNegative:   exemplars(batch, e.limits.Exemplars, false),
		TopWords:      e.topWords(batch),
		TopBigrams:    topBigrams(batch, e.limits.Bigrams),
		TopCommenters: topCommenters(batch, e.limits.Commenters),
	}
}

func summarize(batch []LabeledComment) Summary {
	s := Summary{Total: len(batch)}
	if len(batch) == 0 {
		return s
	}

	authors := make(map[string]struct{})
	var words, score float64
	for _, c := range batch {
		if !c.Anonymous {
			authors[c.AuthorID] = struct{}{}
		}
		words += float64(len(strings.Fields(c.RawText)))
		score += float64(c.Sentiment)
	}
	n := float64(len(batch))
	avg := score / n

	s.UniqueCommenters = len(authors)
	s.AvgCommentLength = round(words/n, 2)
	s.AvgSentimentScore0To10 = round(((avg+1)/2)*10, 2)
	return s
}

func distribution(batch []LabeledComment) Distribution {
	var d Distribution
	for _, c := range batch {
		d.Add(c.Sentiment)
	}
	return d
}

func byHour(batch []LabeledComment) []HourPoint {
	var sums [24]float64
	var counts [24]int
	for _, c := range batch {
		if !c.HasTimestamp {
			continue
		}
		h := c.Timestamp.Hour()
		sums[h] += float64(c.Sentiment)
		counts[h]++
	}

	out := make([]HourPoint, 24)
	for h := range out {
		out[h] = HourPoint{Hour: h}
		if counts[h] > 0 {
			out[h].Value = round(sums[h]/float64(counts[h]), 3)
		}
	}
	return out
}

func exemplars(batch []LabeledComment, n int, positive bool) []Exemplar {
	all := make([]Exemplar, len(batch))
	for i, c := range batch {
		all[i] = Exemplar{Text: c.RawText, Score: int(c.Sentiment)}
	}
	sort.SliceStable(all, func(i, j int) bool {
		if positive {
			return all[i].Score > all[j].Score
		}
		return all[i].Score < all[j].Score
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// topWords ranks normalized tokens, skipping every stopword (retained ones
// included) and tokens of MinKeywordLength runes or fewer.
func (e *Engine) topWords(batch []LabeledComment) []string {
	c := newCounter()
	for _, lc := range batch {
		for _, tok := range textnorm.Tokens(lc.NormalizedText) {
			if e.isKeyword(tok) {
				c.add(tok)
			}
		}
	}
	return c.topKeys(e.limits.Words)
}

func (e *Engine) isKeyword(tok string) bool {
	return utf8.RuneCountInString(tok) > MinKeywordLength && !e.stops.IsStop(tok)
}

func topBigrams(batch []LabeledComment, n int) []string {
	c := newCounter()
	for _, lc := range batch {
		toks := textnorm.Tokens(lc.NormalizedText)
		for i := 0; i+1 < len(toks); i++ {
			c.add(toks[i] + " " + toks[i+1])
		}
	}
	return c.topKeys(n)
}

func topCommenters(batch []LabeledComment, n int) []CommenterCount {
	c := newCounter()
	for _, lc := range batch {
		c.add(lc.AuthorID)
	}
	entries := c.top(n)
	out := make([]CommenterCount, len(entries))
	for i, e := range entries {
		out[i] = CommenterCount{AuthorID: e.Key, Count: e.Count}
	}
	return out
}

// round rounds half to even, so 2.125 at two places gives 2.12.
func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}
