package search

import (
	"fmt"
	"strings"
)

// NormalizeQuery coerces raw to text, trims whitespace, then commas, then
// double quotes, then single quotes. An empty result means skip.
func NormalizeQuery(raw any) string {
	var q string
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		q = v
	case fmt.Stringer:
		q = v.String()
	default:
		q = fmt.Sprint(v)
	}
	q = strings.TrimSpace(q)
	q = strings.Trim(q, ",")
	q = strings.Trim(q, `"`)
	return strings.Trim(q, "'")
}
