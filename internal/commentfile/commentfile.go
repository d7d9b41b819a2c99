// Package commentfile reads comment batches from disk.
package commentfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
)

// Load reads comments from a file holding either a JSON array, an object
// with a "comments" array (the /insights request body), or JSONL.
func Load(path string, logger zerolog.Logger) ([]analytics.Comment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, fmt.Errorf("no valid comments found in %s", path)
	case trimmed[0] == '[':
		return parseArray(path, trimmed)
	case trimmed[0] == '{' && isRequestBody(trimmed):
		var body struct {
			Comments json.RawMessage `json:"comments"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		return parseArray(path, body.Comments)
	}
	return parseJSONL(path, data, logger)
}

// LoadFromJSONL loads one comment per line, skipping malformed lines.
func LoadFromJSONL(path string, logger zerolog.Logger) ([]analytics.Comment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return parseJSONL(path, data, logger)
}

func parseJSONL(path string, data []byte, logger zerolog.Logger) ([]analytics.Comment, error) {
	var comments []analytics.Comment
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var c analytics.Comment
		if err := json.Unmarshal([]byte(line), &c); err != nil {
			logger.Warn().Err(err).Str("file", path).Int("line", i+1).Msg("skipping malformed comment")
			continue
		}
		comments = append(comments, c)
	}

	if len(comments) == 0 {
		return nil, fmt.Errorf("no valid comments found in %s", path)
	}
	return comments, nil
}

// parseArray accepts comment objects or bare strings.
func parseArray(path string, raw []byte) ([]analytics.Comment, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	comments := make([]analytics.Comment, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		var c analytics.Comment
		if len(item) > 0 && item[0] == '"' {
			if err := json.Unmarshal(item, &c.Text); err != nil {
				return nil, fmt.Errorf("parse %s item %d: %w", path, i, err)
			}
		} else if err := json.Unmarshal(item, &c); err != nil {
			return nil, fmt.Errorf("parse %s item %d: %w", path, i, err)
		}
		comments = append(comments, c)
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("no valid comments found in %s", path)
	}
	return comments, nil
}

// isRequestBody reports whether a single JSON object wraps a comments array.
// A JSONL file's first line is an object too, so the check needs the whole
// document to decode as one value.
func isRequestBody(data []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	_, ok := probe["comments"]
	return ok
}
