package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeOutcomesOrderAndErrors(t *testing.T) {
	payload, err := EncodeOutcomes([]QueryOutcome{
		{Query: "zeta", Results: []Evidence{{Title: "T", URL: "https://z", Snippet: "s"}}},
		{Query: "alpha", Err: "timeout"},
		{Query: "mid"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"zeta":[{"title":"T","url":"https://z","snippet":"s"}],"alpha":{"error":"timeout"},"mid":[]}`,
		payload)

	keys, err := DecodeQueryKeys(payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, keys)
}

func TestEncodeOutcomesRepeatedQuery(t *testing.T) {
	payload, err := EncodeOutcomes([]QueryOutcome{
		{Query: "a", Err: "first"},
		{Query: "b"},
		{Query: "a", Results: []Evidence{{URL: "https://x"}}},
	})
	require.NoError(t, err)

	outcomes, err := DecodeOutcomes(payload)
	require.NoError(t, err)
	require.Len(t, outcomes, 2)
	assert.Equal(t, "a", outcomes[0].Query)
	assert.False(t, outcomes[0].Failed())
	assert.Equal(t, "https://x", outcomes[0].Results[0].URL)
	assert.Equal(t, "b", outcomes[1].Query)
}

func TestDecodeOutcomesRejectsNonObject(t *testing.T) {
	for _, payload := range []string{"", "[]", `"x"`, "{", `{"a":[]`} {
		_, err := DecodeOutcomes(payload)
		assert.Error(t, err, "payload %q", payload)
	}
}

func TestDecodeOutcomesErrorRecord(t *testing.T) {
	outcomes, err := DecodeOutcomes(`{"q":{"error":"boom"}}`)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.True(t, outcomes[0].Failed())
	assert.Equal(t, "boom", outcomes[0].Err)
}

func TestDecodeQueryKeysRepeatedKey(t *testing.T) {
	keys, err := DecodeQueryKeys(`{"a":[],"b":{"error":"x"},"a":[]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}
