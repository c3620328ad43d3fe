package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnalysis(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		result, err := parseAnalysis(`{"facts": [{"content": "User likes tea", "category": "preferences",
			"reinforces": null, "contradicts": null}], "session_summary": "talked about tea"}`)
		require.NoError(t, err)
		require.Len(t, result.Facts, 1)
		assert.Equal(t, "User likes tea", result.Facts[0].Content)
		assert.Equal(t, "talked about tea", result.SessionSummary)
	})

	t.Run("JSON wrapped in prose and markdown", func(t *testing.T) {
		response := "Sure! Here is the analysis you asked for:\n```json\n" +
			`{"facts": [], "session_summary": "a quiet chat"}` + "\n```\nLet me know if you need more."
		result, err := parseAnalysis(response)
		require.NoError(t, err)
		assert.Equal(t, "a quiet chat", result.SessionSummary)
	})

	t.Run("braces inside string values", func(t *testing.T) {
		result, err := parseAnalysis(`{"facts": [{"content": "User likes {curly} braces and \"quotes\"",
			"category": "preferences"}], "session_summary": ""}`)
		require.NoError(t, err)
		require.Len(t, result.Facts, 1)
		assert.Contains(t, result.Facts[0].Content, "{curly}")
	})

	t.Run("no JSON at all", func(t *testing.T) {
		_, err := parseAnalysis("I could not produce any structured output, sorry.")
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("unbalanced object", func(t *testing.T) {
		_, err := parseAnalysis(`{"facts": [`)
		assert.ErrorIs(t, err, ErrNoJSON)
	})

	t.Run("balanced but invalid JSON", func(t *testing.T) {
		_, err := parseAnalysis(`{facts: nope}`)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNoJSON)
	})
}
