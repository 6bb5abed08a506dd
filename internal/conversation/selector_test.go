package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"casino-webhook-backend/internal/catalog"
)

func TestSelectResponsePrefersHighestScore(t *testing.T) {
	candidates := []catalog.CandidateResponse{
		{ID: 1, Text: "exact", Condition: map[string]string{"a": "1", "b": "2"}},
		{ID: 2, Text: "partial", Condition: map[string]string{"a": "1"}},
		{ID: 3, Text: "default"},
	}

	selected, ok := SelectResponse(candidates, map[string]string{"a": "1", "b": "2"})
	require.True(t, ok)
	assert.Equal(t, int64(1), selected.ID, "full match (1.0) beats partial match (0.5) and the default")
}

func TestSelectResponsePartialMatchBeatsDefault(t *testing.T) {
	candidates := []catalog.CandidateResponse{
		{ID: 1, Text: "half", Condition: map[string]string{"a": "1", "b": "2"}},
		{ID: 2, Text: "default"},
	}

	selected, ok := SelectResponse(candidates, map[string]string{"a": "1", "b": "9"})
	require.True(t, ok)
	assert.Equal(t, int64(1), selected.ID, "any score above zero wins over the default")
}

func TestSelectResponseZeroScoreFallsBackToDefault(t *testing.T) {
	candidates := []catalog.CandidateResponse{
		{ID: 1, Condition: map[string]string{"a": "1"}},
		{ID: 2, Text: "default"},
		{ID: 3, Text: "second default"},
	}

	selected, ok := SelectResponse(candidates, map[string]string{"a": "9"})
	require.True(t, ok)
	assert.Equal(t, int64(2), selected.ID, "first default encountered is kept")
}

func TestSelectResponseNoMatchNoDefault(t *testing.T) {
	candidates := []catalog.CandidateResponse{
		{ID: 1, Condition: map[string]string{"a": "1"}},
	}

	_, ok := SelectResponse(candidates, map[string]string{"a": "9"})
	assert.False(t, ok, "a zero-scoring candidate must not be returned")
}

func TestSelectResponseTieKeepsFirst(t *testing.T) {
	candidates := []catalog.CandidateResponse{
		{ID: 1, Condition: map[string]string{"a": "1"}},
		{ID: 2, Condition: map[string]string{"a": "1"}},
	}

	selected, ok := SelectResponse(candidates, map[string]string{"a": "1"})
	require.True(t, ok)
	assert.Equal(t, int64(1), selected.ID, "equal scores resolve in catalog order")
}

func TestSelectResponseEmptyCandidates(t *testing.T) {
	_, ok := SelectResponse(nil, map[string]string{"a": "1"})
	assert.False(t, ok)
}

func TestConditionScore(t *testing.T) {
	params := map[string]string{"a": "1", "b": "9"}

	assert.Equal(t, 0.5, conditionScore(map[string]string{"a": "1", "b": "2"}, params))
	assert.Equal(t, 1.0, conditionScore(map[string]string{"a": "1"}, params))
	assert.Equal(t, 0.0, conditionScore(map[string]string{"c": "3"}, params))
	assert.Equal(t, 0.0, conditionScore(nil, params))
}
