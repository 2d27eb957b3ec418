// Package extraction provides keyword-based tag extraction for new thoughts.
package extraction

import (
	"sort"
	"strings"
)

// DefaultTagRules maps tags to keywords that indicate them.
var DefaultTagRules = map[string][]string{
	// Languages
	"golang":     {".go", "go mod", "go build", "go test", "golang"},
	"python":     {".py", "pip", "pytest", "python", "django", "flask"},
	"typescript": {".ts", ".tsx", "npm", "yarn", "typescript"},
	"rust":       {".rs", "cargo", "rustc", "rust"},

	// Infrastructure
	"kubernetes": {"kubectl", "k8s", "helm", "kubernetes"},
	"docker":     {"dockerfile", "docker-compose", "container", "docker"},
	"aws":        {"aws", "s3", "ec2", "lambda", "cloudformation"},

	// Activities
	"debugging":   {"fix", "bug", "error", "issue", "broken", "failing", "debug"},
	"testing":     {"test", "spec", "coverage", "mock", "assert"},
	"refactoring": {"refactor", "cleanup", "rename", "extract", "simplify"},
	"security":    {"auth", "secret", "credential", "permission", "encrypt", "security"},
	"performance": {"optimize", "slow", "cache", "latency", "performance"},

	// Architecture
	"api":                 {"api", "endpoint", "rest", "grpc", "graphql"},
	"database":            {"database", "sql", "postgres", "mysql", "redis", "qdrant"},
	"distributed-systems": {"consensus", "raft", "quorum", "replication", "distributed"},
	"agents":              {"agent", "multi-agent", "orchestration", "swarm"},
}

// TagExtractor extracts tags from thought content.
type TagExtractor struct {
	rules map[string][]string
}

// NewTagExtractor creates a tag extractor with the given rules.
// Passing nil or empty rules uses DefaultTagRules.
func NewTagExtractor(rules map[string][]string) *TagExtractor {
	if len(rules) == 0 {
		rules = DefaultTagRules
	}
	return &TagExtractor{rules: rules}
}

// ExtractTags extracts tags from content based on keyword matching.
// The result is sorted for deterministic output.
func (t *TagExtractor) ExtractTags(content string) []string {
	content = strings.ToLower(content)
	tags := make(map[string]bool)

	for tag, keywords := range t.rules {
		for _, keyword := range keywords {
			if strings.Contains(content, strings.ToLower(keyword)) {
				tags[tag] = true
				break
			}
		}
	}

	result := make([]string, 0, len(tags))
	for tag := range tags {
		result = append(result, tag)
	}
	sort.Strings(result)
	return result
}

// MatchExistingTags returns the subset of existing tags mentioned in the
// content. Lets new thoughts inherit the vocabulary already in the
// collection instead of fragmenting it.
func MatchExistingTags(content string, existing []string) []string {
	lower := strings.ToLower(content)
	var matched []string
	for _, tag := range existing {
		if tag == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(tag)) {
			matched = append(matched, tag)
		}
	}
	return matched
}
