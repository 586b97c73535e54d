// Package jsonutil extracts JSON payloads from LLM completions, which
// routinely wrap them in markdown fences or surrounding prose.
package jsonutil

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	objectRe = regexp.MustCompile(`(?s)\{.*\}`)
)

// ExtractObject finds the first JSON object in raw and unmarshals it
// into v. It tries, in order: the whole string, a ```json fenced block,
// and the outermost brace-delimited span.
func ExtractObject(raw string, v any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("empty response")
	}

	candidates := []string{raw}
	if m := fencedRe.FindStringSubmatch(raw); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := objectRe.FindString(raw); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), v); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	return fmt.Errorf("no JSON object found: %w", lastErr)
}

// StringList coerces a decoded JSON value into a list of non-empty
// strings. Models sometimes return a bare string or a list of objects
// where a string list was asked for.
func StringList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			switch e := item.(type) {
			case string:
				if s := strings.TrimSpace(e); s != "" {
					out = append(out, s)
				}
			default:
				b, err := json.Marshal(e)
				if err == nil && len(b) > 0 {
					out = append(out, string(b))
				}
			}
		}
		return out
	default:
		return nil
	}
}
