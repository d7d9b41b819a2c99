package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed english_lemmas.yaml
var englishLemmas []byte

// Lexicon maps inflected forms to their dictionary base form:
// - Irregulars: children → child, knives → knife
// - Invariants: words that look plural but are already base forms (news, series)
// - Regular inflections are handled by suffix rules when no entry matches
//
// A Lexicon is read-only after loading and safe for concurrent use.
type Lexicon struct {
	// canonical -> all variants (including canonical itself)
	// Example: "child" -> ["child", "children"]
	lemmas map[string][]string

	// variant -> canonical
	// Example: "children" -> "child"
	reverseIndex map[string]string
}

// New creates an empty lexicon. An empty lexicon still applies suffix rules.
func New() *Lexicon {
	return &Lexicon{
		lemmas:       make(map[string][]string),
		reverseIndex: make(map[string]string),
	}
}

// English returns the built-in English lemma table.
func English() *Lexicon {
	lex, err := parseYAML(englishLemmas)
	if err != nil {
		panic(fmt.Sprintf("lexicon: embedded english table: %v", err))
	}
	return lex
}

// LoadFromYAML loads lemma mappings from a YAML file.
//
// Expected format:
//
//	extend_default: true
//	lemmas:
//	  - canonical: child
//	    variants: [children]
//	  - canonical: news
//
// An entry without variants marks a word as its own base form so suffix
// rules leave it alone. All tokens are lowercased.
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lex, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}
	return lex, nil
}

type lemmaFile struct {
	ExtendDefault bool `yaml:"extend_default"`
	Lemmas        []struct {
		Canonical string   `yaml:"canonical"`
		Variants  []string `yaml:"variants"`
	} `yaml:"lemmas"`
}

func parseYAML(data []byte) (*Lexicon, error) {
	var f lemmaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}

	lex := New()
	if f.ExtendDefault {
		lex = English()
	}
	for _, entry := range f.Lemmas {
		if strings.TrimSpace(entry.Canonical) == "" {
			continue
		}
		lex.AddLemmaGroup(entry.Canonical, entry.Variants)
	}
	return lex, nil
}

// AddLemmaGroup adds a base form with its inflected variants.
// The canonical form is always included as the first entry in the variants list.
// If the group already exists, old reverse index entries are cleaned up first.
func (l *Lexicon) AddLemmaGroup(canonical string, variants []string) {
	canonical = strings.ToLower(strings.TrimSpace(canonical))

	if oldVariants, exists := l.lemmas[canonical]; exists {
		for _, oldV := range oldVariants {
			delete(l.reverseIndex, oldV)
		}
	}

	normalized := make([]string, 0, len(variants)+1)
	seen := make(map[string]bool)

	normalized = append(normalized, canonical)
	seen[canonical] = true

	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" && !seen[v] {
			normalized = append(normalized, v)
			seen[v] = true
		}
	}

	l.lemmas[canonical] = normalized

	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// maxSteps bounds the lookup/rule chain. Every rule shortens the token, so
// only a cyclic lexicon can exhaust it.
const maxSteps = 8

// Lemma returns the dictionary base form of a lowercase token. Tokens that
// contain anything but ASCII letters pass through unchanged.
//
// Lemma is idempotent: the result is a fixed point of the lookup/rule step,
// so Lemma(Lemma(w)) == Lemma(w). If the chain does not settle the token is
// returned unchanged.
func (l *Lexicon) Lemma(token string) string {
	if !isASCIIWord(token) {
		return token
	}
	current := token
	for i := 0; i < maxSteps; i++ {
		next := l.step(current)
		if next == current {
			return current
		}
		current = next
	}
	return token
}

func (l *Lexicon) step(token string) string {
	if canonical, ok := l.reverseIndex[token]; ok {
		return canonical
	}
	return applySuffixRules(token)
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() LexiconStats {
	totalVariants := 0
	for _, variants := range l.lemmas {
		totalVariants += len(variants)
	}
	return LexiconStats{
		LemmaGroups:   len(l.lemmas),
		TotalVariants: totalVariants,
	}
}

// LexiconStats holds statistics about lexicon contents.
type LexiconStats struct {
	LemmaGroups   int // Number of base forms
	TotalVariants int // Total number of variants across all groups
}

func isASCIIWord(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}
