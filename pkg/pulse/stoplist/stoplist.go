package stoplist

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRetained are stopwords that carry negation or contrast and must
// survive text normalization.
var DefaultRetained = []string{"not", "but", "however", "no", "yet"}

// Manager holds a stopword list plus the retention set that overrides it
// during normalization. A Manager is read-only once it has been handed to a
// normalizer; Add is meant for setup code.
type Manager struct {
	stops    map[string]struct{}
	retained map[string]struct{}
}

// NewManager creates a manager over the given stopwords and retained words.
// Entries are lowercased and trimmed.
func NewManager(initialStops []string, retained []string) *Manager {
	m := &Manager{
		stops:    make(map[string]struct{}, len(initialStops)),
		retained: make(map[string]struct{}, len(retained)),
	}
	for _, s := range initialStops {
		m.Add(s)
	}
	for _, r := range retained {
		r = strings.ToLower(strings.TrimSpace(r))
		if r != "" {
			m.retained[r] = struct{}{}
		}
	}
	return m
}

// English returns a manager over the built-in English list with the
// default retention set.
func English() *Manager {
	return NewManager(EnglishStopwords, DefaultRetained)
}

// IsStop checks if a token is on the stopword list, regardless of retention.
func (m *Manager) IsStop(token string) bool {
	_, ok := m.stops[token]
	return ok
}

// IsRetained reports whether the token is protected from removal.
func (m *Manager) IsRetained(token string) bool {
	_, ok := m.retained[token]
	return ok
}

// Removable reports whether normalization should drop the token.
func (m *Manager) Removable(token string) bool {
	return m.IsStop(token) && !m.IsRetained(token)
}

// Add adds a token to the stoplist
func (m *Manager) Add(token string) {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		return
	}
	m.stops[token] = struct{}{}
}

// All returns all stopwords, sorted.
func (m *Manager) All() []string {
	result := make([]string, 0, len(m.stops))
	for s := range m.stops {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// Retained returns the retention set, sorted.
func (m *Manager) Retained() []string {
	result := make([]string, 0, len(m.retained))
	for s := range m.retained {
		result = append(result, s)
	}
	sort.Strings(result)
	return result
}

// File is the YAML layout of a stoplist file.
//
//	terms: [the, a, and]
//	retain: [not, but]
//	extend_default: true
type File struct {
	Terms         []string `yaml:"terms"`
	Retain        []string `yaml:"retain"`
	ExtendDefault bool     `yaml:"extend_default"`
}

// LoadYAML builds a manager from a stoplist file. When the file sets no
// retain list the default retention set is used.
func LoadYAML(path string) (*Manager, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stoplist %s: %w", path, err)
	}

	terms := f.Terms
	if f.ExtendDefault {
		terms = append(append([]string{}, EnglishStopwords...), f.Terms...)
	}
	retain := f.Retain
	if len(retain) == 0 {
		retain = DefaultRetained
	}
	return NewManager(terms, retain), nil
}
