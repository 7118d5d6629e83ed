package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Evidence is a search hit kept for the conversation.
type Evidence struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// QueryOutcome is the result slot for one normalized query: either the kept
// evidence or an error description.
type QueryOutcome struct {
	Query   string
	Results []Evidence
	Err     string
}

// Failed reports whether the search for this query failed.
func (o QueryOutcome) Failed() bool {
	return o.Err != ""
}

type errorRecord struct {
	Error string `json:"error"`
}

// EncodeOutcomes renders outcomes as a JSON object keyed by query, in input
// order. A repeated query keeps its first position and takes the last value.
func EncodeOutcomes(outcomes []QueryOutcome) (string, error) {
	order := make([]string, 0, len(outcomes))
	latest := make(map[string]QueryOutcome, len(outcomes))
	for _, o := range outcomes {
		if _, ok := latest[o.Query]; !ok {
			order = append(order, o.Query)
		}
		latest[o.Query] = o
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, q := range order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(q)
		if err != nil {
			return "", fmt.Errorf("failed to encode query %q: %w", q, err)
		}
		buf.Write(key)
		buf.WriteByte(':')

		o := latest[q]
		var value any
		if o.Failed() {
			value = errorRecord{Error: o.Err}
		} else {
			results := o.Results
			if results == nil {
				results = []Evidence{}
			}
			value = results
		}
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("failed to encode results for %q: %w", q, err)
		}
		buf.Write(data)
	}
	buf.WriteByte('}')
	return buf.String(), nil
}

// DecodeQueryKeys returns the distinct keys of a tool-result payload in
// document order. A repeated key keeps its first position.
func DecodeQueryKeys(payload string) ([]string, error) {
	outcomes, err := DecodeOutcomes(payload)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(outcomes))
	seen := make(map[string]bool, len(outcomes))
	for _, o := range outcomes {
		if seen[o.Query] {
			continue
		}
		seen[o.Query] = true
		keys = append(keys, o.Query)
	}
	return keys, nil
}

// DecodeOutcomes parses a tool-result payload, preserving key order. Values
// that are neither an evidence list nor an error record decode as empty.
func DecodeOutcomes(payload string) ([]QueryOutcome, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid tool result: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("invalid tool result: expected object, got %v", tok)
	}

	var outcomes []QueryOutcome
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid tool result key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("invalid tool result key: %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid tool result value for %q: %w", key, err)
		}

		o := QueryOutcome{Query: key}
		var results []Evidence
		var rec errorRecord
		switch {
		case json.Unmarshal(raw, &results) == nil:
			o.Results = results
		case json.Unmarshal(raw, &rec) == nil && rec.Error != "":
			o.Err = rec.Error
		}
		outcomes = append(outcomes, o)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid tool result: %w", err)
	}
	return outcomes, nil
}
