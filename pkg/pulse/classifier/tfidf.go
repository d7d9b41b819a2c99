package classifier

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

// TFIDF is a fitted term-frequency/inverse-document-frequency vectorizer.
// Vocabulary and IDF weights come from a model file; the vectorizer never
// refits and is safe for concurrent use.
type TFIDF struct {
	vocab       map[string]int
	idf         []float64
	minN, maxN  int
	sublinearTF bool
	l2          bool
}

// TFIDFParams is the serialized vectorizer state.
type TFIDFParams struct {
	Vocabulary  map[string]int `yaml:"vocabulary" json:"vocabulary"`
	IDF         []float64      `yaml:"idf" json:"idf"`
	NgramRange  [2]int         `yaml:"ngram_range" json:"ngram_range"`
	SublinearTF bool           `yaml:"sublinear_tf" json:"sublinear_tf"`
	Norm        string         `yaml:"norm" json:"norm"`
}

// NewTFIDF validates params and builds the vectorizer.
func NewTFIDF(p TFIDFParams) (*TFIDF, error) {
	if len(p.Vocabulary) == 0 {
		return nil, fmt.Errorf("tfidf: empty vocabulary")
	}
	if len(p.IDF) != len(p.Vocabulary) {
		return nil, fmt.Errorf("tfidf: %d idf weights for %d terms", len(p.IDF), len(p.Vocabulary))
	}
	for term, col := range p.Vocabulary {
		if col < 0 || col >= len(p.IDF) {
			return nil, fmt.Errorf("tfidf: term %q has column %d out of range", term, col)
		}
	}

	minN, maxN := p.NgramRange[0], p.NgramRange[1]
	if minN == 0 && maxN == 0 {
		minN, maxN = 1, 1
	}
	if minN < 1 || maxN < minN {
		return nil, fmt.Errorf("tfidf: invalid ngram range [%d,%d]", minN, maxN)
	}

	var l2 bool
	switch p.Norm {
	case "", "l2":
		l2 = true
	case "none":
	default:
		return nil, fmt.Errorf("tfidf: unsupported norm %q", p.Norm)
	}

	return &TFIDF{
		vocab:       p.Vocabulary,
		idf:         p.IDF,
		minN:        minN,
		maxN:        maxN,
		sublinearTF: p.SublinearTF,
		l2:          l2,
	}, nil
}

// Features returns the number of output columns.
func (v *TFIDF) Features() int { return len(v.idf) }

// Transform implements Vectorizer. Terms outside the vocabulary are ignored,
// so a text may map to an all-zero row.
func (v *TFIDF) Transform(texts []string) (*Sparse, error) {
	x := &Sparse{
		NumRows: len(texts),
		NumCols: len(v.idf),
		Indptr:  make([]int, 1, len(texts)+1),
	}

	for _, text := range texts {
		counts := make(map[int]float64)
		for _, term := range ngrams(analyze(text), v.minN, v.maxN) {
			if col, ok := v.vocab[term]; ok {
				counts[col]++
			}
		}

		cols := make([]int, 0, len(counts))
		for col := range counts {
			cols = append(cols, col)
		}
		sort.Ints(cols)

		var norm float64
		vals := make([]float64, len(cols))
		for i, col := range cols {
			tf := counts[col]
			if v.sublinearTF {
				tf = 1 + math.Log(tf)
			}
			vals[i] = tf * v.idf[col]
			norm += vals[i] * vals[i]
		}
		if v.l2 && norm > 0 {
			norm = math.Sqrt(norm)
			for i := range vals {
				vals[i] /= norm
			}
		}

		x.Indices = append(x.Indices, cols...)
		x.Data = append(x.Data, vals...)
		x.Indptr = append(x.Indptr, len(x.Indices))
	}
	return x, nil
}

// analyze lowercases and splits on runs of word characters, keeping tokens of
// two or more runes.
func analyze(text string) []string {
	var tokens []string
	var b strings.Builder
	n := 0
	flush := func() {
		if n >= 2 {
			tokens = append(tokens, b.String())
		}
		b.Reset()
		n = 0
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			n++
			continue
		}
		flush()
	}
	flush()
	return tokens
}

func ngrams(tokens []string, minN, maxN int) []string {
	if minN == 1 && maxN == 1 {
		return tokens
	}
	var out []string
	for n := minN; n <= maxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
