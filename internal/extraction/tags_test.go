package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTags(t *testing.T) {
	extractor := NewTagExtractor(nil)

	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{
			name:     "golang debugging",
			content:  "Fixed a bug in the go build pipeline",
			expected: []string{"debugging", "golang"},
		},
		{
			name:     "kubernetes and docker",
			content:  "Deployed via kubectl after updating the Dockerfile",
			expected: []string{"docker", "kubernetes"},
		},
		{
			name:     "no matches",
			content:  "wrote some notes",
			expected: []string{},
		},
		{
			name:     "case insensitive",
			content:  "PYTHON script with PyTest coverage",
			expected: []string{"python", "testing"},
		},
		{
			name:     "multiple activities",
			content:  "refactor the auth cache to improve latency",
			expected: []string{"performance", "refactoring", "security"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractor.ExtractTags(tt.content))
		})
	}
}

func TestExtractTagsCustomRules(t *testing.T) {
	extractor := NewTagExtractor(map[string][]string{
		"billing": {"invoice", "payment"},
	})

	assert.Equal(t, []string{"billing"}, extractor.ExtractTags("fix invoice rounding"))
	assert.Empty(t, extractor.ExtractTags("kubectl apply"))
}

func TestMatchExistingTags(t *testing.T) {
	existing := []string{"golang", "retries", "qdrant", ""}

	matched := MatchExistingTags("Golang client retries on transient errors", existing)
	assert.Equal(t, []string{"golang", "retries"}, matched)

	assert.Empty(t, MatchExistingTags("nothing relevant", []string{"billing"}))
	assert.Empty(t, MatchExistingTags("anything", nil))
}
