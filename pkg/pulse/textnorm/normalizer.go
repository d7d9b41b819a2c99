package textnorm

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cognicore/commentpulse/pkg/pulse/lexicon"
	"github.com/cognicore/commentpulse/pkg/pulse/stoplist"
)

// ErrInvalidUTF8 is returned by NormalizeChecked for text that is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("textnorm: invalid utf-8")

// Lemmatizer reduces a token to its dictionary base form.
// Unknown tokens must be returned unchanged.
type Lemmatizer interface {
	Lemma(token string) string
}

// Normalizer cleans comment text for the classifier and keyword extraction:
// case folding → punctuation filtering → stopword removal (with retention) → lemmatization.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	stops  *stoplist.Manager
	lemmas Lemmatizer
}

// New creates a normalizer. A nil stoplist means the English defaults, a nil
// lemmatizer means the built-in English lexicon.
func New(stops *stoplist.Manager, lemmas Lemmatizer) *Normalizer {
	if stops == nil {
		stops = stoplist.English()
	}
	if lemmas == nil {
		lemmas = lexicon.English()
	}
	return &Normalizer{stops: stops, lemmas: lemmas}
}

// Stoplist exposes the stopword manager shared with keyword extraction.
func (n *Normalizer) Stoplist() *stoplist.Manager {
	return n.stops
}

// Result is the outcome of one normalization. Fallback is set when the
// pipeline could not run and Text holds the original input instead.
type Result struct {
	Text     string
	Fallback bool
	Err      error
}

// Normalize returns the normalized text, or the original text when
// normalization is not possible. It never fails.
func (n *Normalizer) Normalize(text string) string {
	return n.NormalizeResult(text).Text
}

// NormalizeResult is Normalize with the fallback branch made visible.
func (n *Normalizer) NormalizeResult(text string) Result {
	out, err := n.NormalizeChecked(text)
	if err != nil {
		return Result{Text: text, Fallback: true, Err: err}
	}
	return Result{Text: out}
}

// NormalizeChecked runs the pipeline and reports why it could not.
func (n *Normalizer) NormalizeChecked(text string) (string, error) {
	if text == "" {
		return "", nil
	}
	if !utf8.ValidString(text) {
		return "", ErrInvalidUTF8
	}

	// Step 1: case folding and trimming
	text = strings.TrimSpace(strings.ToLower(text))

	// Step 2: newlines become single spaces
	text = strings.ReplaceAll(text, "\n", " ")

	// Step 3: drop everything except letters, digits, whitespace and ! ? . ,
	text = strings.Map(keepRune, text)

	// Steps 4-5: stopword removal, then lemmatization
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if n.stops.Removable(tok) {
			continue
		}
		tokens = append(tokens, n.lemmatize(tok))
	}
	return strings.Join(tokens, " "), nil
}

// lemmatize reduces the token's core, with surrounding ! ? . , peeled off
// and put back afterwards ("videos!" → "video!"). It keeps the surface form
// when the base form would itself be a removable stopword ("cans" → "can"),
// so a second pass is a no-op.
func (n *Normalizer) lemmatize(tok string) string {
	core := strings.TrimLeft(tok, trimSet)
	lead := tok[:len(tok)-len(core)]
	trimmed := strings.TrimRight(core, trimSet)
	trail := core[len(trimmed):]
	if trimmed == "" {
		return tok
	}

	lemma := n.lemmas.Lemma(trimmed)
	if lemma == "" || n.stops.Removable(lemma) {
		return tok
	}
	return lead + lemma + trail
}

// trimSet is the punctuation kept by normalization.
const trimSet = "!?.,"

func keepRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
		return r
	case r == '!', r == '?', r == '.', r == ',':
		return r
	}
	return -1
}

// Tokens splits normalized text into keyword tokens: surrounding ! ? . , are
// trimmed and tokens left empty are dropped.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, trimSet)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
