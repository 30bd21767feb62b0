package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/brensch/snekpilot/autopilot"
)

// ExtractJSON returns the first balanced {...} span in s. Braces inside
// JSON string literals do not count.
func ExtractJSON(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseBatch pulls a command batch out of provider output that may carry
// prose around the JSON payload.
func ParseBatch(content string) (autopilot.Batch, error) {
	if strings.TrimSpace(content) == "" {
		return autopilot.Batch{}, ErrEmptyResponse
	}
	span, ok := ExtractJSON(content)
	if !ok {
		return autopilot.Batch{}, fmt.Errorf("%w: no JSON object in %q", ErrDecodeContent, truncate(content, 200))
	}
	var batch autopilot.Batch
	if err := json.Unmarshal([]byte(span), &batch); err != nil {
		return autopilot.Batch{}, fmt.Errorf("%w: %v, response: %q", ErrDecodeContent, err, truncate(span, 200))
	}
	if err := batch.Validate(); err != nil {
		return autopilot.Batch{}, fmt.Errorf("%w: %v", ErrDecodeContent, err)
	}
	return batch, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
