package agent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// Model output is prose with, at best, a JSON object or a numbered list
// buried somewhere inside it. The helpers here scrape those out on a
// best-effort basis; callers always supply their own fallback value and
// never propagate a parse failure.

var (
	// ErrNoObject is returned when no JSON object can be located in the text.
	ErrNoObject = errors.New("no JSON object found in response")

	objectPattern = regexp.MustCompile(`(?s)\{.*\}`)
	stepMarker    = regexp.MustCompile(`(?m)\d+\.\s*`)
)

// DecodeFirstObject locates the first embedded JSON object in free-form
// model output and unmarshals it into v.
func DecodeFirstObject(text string, v any) error {
	match := objectPattern.FindString(text)
	if match == "" {
		return ErrNoObject
	}
	if err := json.Unmarshal([]byte(match), v); err != nil {
		// Greedy match may have swallowed trailing prose with a stray
		// brace; retry with the shortest balanced prefix.
		if trimmed := balancedPrefix(match); trimmed != match {
			if err2 := json.Unmarshal([]byte(trimmed), v); err2 == nil {
				return nil
			}
		}
		return err
	}
	return nil
}

func balancedPrefix(s string) string {
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if escaped {
			escaped = false
			continue
		}
		switch r {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[:i+1]
				}
			}
		}
	}
	return s
}

// NumberedSteps extracts the items of a numbered list ("1. do this") from
// model output, in order. Returns nil when no numbered items are present.
func NumberedSteps(text string) []string {
	markers := stepMarker.FindAllStringIndex(text, -1)
	if len(markers) == 0 {
		return nil
	}
	steps := make([]string, 0, len(markers))
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		step := strings.TrimSpace(text[m[1]:end])
		if step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}
