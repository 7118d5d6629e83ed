// Package json provides JSON extraction utilities for parsing LLM responses.
//
// Models that ignore a forced tool call tend to answer with the tool
// arguments as JSON embedded in prose or a markdown fence. This package
// recovers the object from such responses.
package json

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSON finds and returns the first JSON object in a response string.
// It handles common LLM response patterns:
// 1. Pure JSON object - returns it
// 2. JSON wrapped in markdown code blocks (```json ... ```)
// 3. JSON object embedded in text - returns the first balanced object
//    that parses
func extractJSON(response string) (string, error) {
	response = stripMarkdownCodeBlocks(response)

	if isObject(response) {
		return response, nil
	}

	for start := strings.IndexByte(response, '{'); start != -1; {
		if end := matchBrace(response, start); end != -1 {
			candidate := response[start : end+1]
			if isObject(candidate) {
				return candidate, nil
			}
		}
		next := strings.IndexByte(response[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}

	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	return "", fmt.Errorf("failed to extract valid JSON from response: %q", preview)
}

func isObject(s string) bool {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal([]byte(s), &probe) == nil
}

// matchBrace returns the index of the brace closing the one at start,
// skipping braces inside string literals. Returns -1 when unbalanced.
func matchBrace(s string, start int) int {
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
				return i
			}
		}
	}
	return -1
}

// stripMarkdownCodeBlocks removes markdown code block markers from a response.
// Handles patterns like ```json\n...\n``` or ```\n...\n```
func stripMarkdownCodeBlocks(response string) string {
	trimmed := strings.TrimSpace(response)

	if strings.HasPrefix(trimmed, "```json") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	} else if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}

	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}

	return trimmed
}

// ExtractJSONFromResponse extracts and parses the first JSON object in an
// LLM response.
func ExtractJSONFromResponse[T any](response string) (T, error) {
	var result T
	jsonStr, err := extractJSON(response)
	if err != nil {
		return result, err
	}
	if err := json.Unmarshal([]byte(jsonStr), &result); err != nil {
		return result, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	return result, nil
}

// ExtractObject returns the first JSON object in response as raw bytes.
func ExtractObject(response string) (json.RawMessage, error) {
	jsonStr, err := extractJSON(response)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(jsonStr), nil
}

// ExtractJSON extracts the JSON portion from a response string.
// Returns the raw JSON string suitable for further processing.
func ExtractJSON(response string) (string, error) {
	return extractJSON(response)
}
