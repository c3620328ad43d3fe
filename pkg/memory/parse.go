package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a model response contains no JSON object.
var ErrNoJSON = errors.New("memory: no JSON object in analyzer response")

// factCandidate is one extracted fact in the analyzer's model output.
// Reinforces/Contradicts reference existing fact content by text.
type factCandidate struct {
	Content     string `json:"content"`
	Category    string `json:"category"`
	Reinforces  string `json:"reinforces"`
	Contradicts string `json:"contradicts"`
}

// analysisResult is the structured output of one analysis pass.
type analysisResult struct {
	Facts          []factCandidate `json:"facts"`
	SessionSummary string          `json:"session_summary"`
}

// parseAnalysis defensively parses a model response into an analysisResult.
// Models routinely wrap JSON in prose or markdown fences, so it extracts
// the first balanced top-level {...} substring before unmarshalling. A
// malformed response yields an error and no partial result.
func parseAnalysis(response string) (*analysisResult, error) {
	raw, err := extractJSONObject(response)
	if err != nil {
		return nil, err
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("memory: malformed analyzer JSON: %w", err)
	}
	return &result, nil
}

// extractJSONObject returns the first balanced top-level JSON object
// substring in s, tracking string literals and escapes so braces inside
// values do not miscount.
func extractJSONObject(s string) (string, error) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", ErrNoJSON
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
				return s[start : i+1], nil
			}
		}
	}
	return "", ErrNoJSON
}
