package thoughtspace

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// Quality flag names attached to thoughts by the classifier.
const (
	// FlagKeywordEcho marks a submission that largely restates one of the
	// contributor's recent queries.
	FlagKeywordEcho = "keyword_echo"

	// FlagOrphanedReference marks a short submission containing a bare
	// "see ..." reference with nothing to resolve it against.
	FlagOrphanedReference = "orphaned_reference"
)

const (
	// gateMinLength is the minimum prompt length worth storing.
	gateMinLength = 50

	// echoOverlapThreshold is the significant-word overlap ratio above which
	// a submission counts as echoing a recent query.
	echoOverlapThreshold = 0.6

	// echoQueryWindow is how many recent queries the echo check considers.
	echoQueryWindow = 5

	// orphanMaxLength bounds the orphaned-reference check to short messages.
	orphanMaxLength = 150
)

// followUpPrefixes mark a prompt as conversational follow-up rather than a
// standalone insight.
var followUpPrefixes = []string{
	"based on",
	"you said",
	"you told me",
	"regarding your",
	"about your response",
}

var (
	pureQuestionRe = regexp.MustCompile(`^[^.!]*\?\s*$`)
	orphanRefRe    = regexp.MustCompile(`(?i)\bsee\s+(above|below|that|this|my|the\s+(previous|earlier|above))\b`)
	wordSplitRe    = regexp.MustCompile(`[^a-z0-9]+`)
)

// GateResult is the outcome of the contribution-worthiness gate.
type GateResult struct {
	Store  bool
	Reason string
}

// MeetsContributionGate decides whether a plain submission is worth storing.
// Explicit derivations (refinement/consolidation) bypass the gate entirely;
// callers check IsDerived before consulting this.
func MeetsContributionGate(prompt string) GateResult {
	trimmed := strings.TrimSpace(prompt)

	if len(trimmed) <= gateMinLength {
		return GateResult{Reason: "too short to be a storable insight"}
	}
	if pureQuestionRe.MatchString(trimmed) {
		return GateResult{Reason: "purely interrogative"}
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range followUpPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return GateResult{Reason: "conversational follow-up"}
		}
	}

	return GateResult{Store: true}
}

// ClassifyQuality returns the heuristic quality flags for a submission given
// the contributor's recent query texts. Flags never block storage by
// themselves; echo suppression is applied by the contribution path.
func ClassifyQuality(prompt string, recentQueries []string) []string {
	var flags []string

	if isKeywordEcho(prompt, recentQueries) {
		flags = append(flags, FlagKeywordEcho)
	}
	if len(prompt) < orphanMaxLength && orphanRefRe.MatchString(prompt) {
		flags = append(flags, FlagOrphanedReference)
	}

	return flags
}

// isKeywordEcho reports whether the prompt shares more than the overlap
// threshold of its significant words with any single recent query.
func isKeywordEcho(prompt string, recentQueries []string) bool {
	words := significantWords(prompt)
	if len(words) == 0 {
		return false
	}

	window := recentQueries
	if len(window) > echoQueryWindow {
		window = window[:echoQueryWindow]
	}

	for _, query := range window {
		queryWords := make(map[string]bool)
		for _, w := range significantWords(query) {
			queryWords[w] = true
		}
		if len(queryWords) == 0 {
			continue
		}

		shared := 0
		for _, w := range words {
			if queryWords[w] {
				shared++
			}
		}
		if float64(shared)/float64(len(words)) > echoOverlapThreshold {
			return true
		}
	}

	return false
}

// significantWords lowercases, strips punctuation, and drops words of two
// characters or fewer. Duplicates are removed.
func significantWords(text string) []string {
	seen := make(map[string]bool)
	var words []string
	for _, w := range wordSplitRe.Split(strings.ToLower(text), -1) {
		if len(w) <= 2 || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}

// ClassifyPrompt runs the quality classifier against the contributor's
// recent query history. Log failures degrade to an empty history.
func (s *Service) ClassifyPrompt(ctx context.Context, contributorID, prompt string) []string {
	var recent []string
	if s.queries != nil {
		var err error
		recent, err = s.queries.RecentTextsByAgent(ctx, contributorID, echoQueryWindow)
		if err != nil {
			s.logger.Warn("query history lookup failed, skipping echo check",
				zap.String("contributor_id", contributorID),
				zap.Error(err))
		}
	}
	return ClassifyQuality(prompt, recent)
}
