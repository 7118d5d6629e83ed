package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	tests := []struct {
		raw  any
		want string
	}{
		{` "ai trends",  `, "ai trends"},
		{"plain", "plain"},
		{"'single'", "single"},
		{`"'nested'"`, "nested"},
		{"trailing,,", "trailing"},
		{"   ", ""},
		{`""`, ""},
		{",", ""},
		{nil, ""},
		{42, "42"},
		{3.5, "3.5"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeQuery(tt.raw), "raw %#v", tt.raw)
	}
}
