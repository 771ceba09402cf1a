// Package classifier assigns topic categories to research documents using
// keyword heuristics. It is deterministic and makes no external calls.
package classifier

import (
	"regexp"
	"strings"
)

// Category labels for knowledge base documents.
const (
	CategoryExerciseScience = "exercise science"
	CategoryRecovery        = "recovery"
	CategoryNutrition       = "nutrition"
	CategoryOther           = "other"
)

// categoryKeywords holds the keyword sets in priority order. The first
// category with any matching keyword wins, so the order is part of the
// contract.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryExerciseScience, []string{"strength", "hypertrophy", "endurance", "training", "exercise", "muscle", "cardio"}},
	{CategoryRecovery, []string{"sleep", "recovery", "rest", "fatigue", "overtraining", "rehab"}},
	{CategoryNutrition, []string{"nutrition", "diet", "protein", "carbohydrate", "fat", "supplement", "calorie", "hydration"}},
}

// Categorize returns the topic category for a document. Matching is
// case-insensitive substring containment; documents matching no keyword are
// labeled CategoryOther.
func Categorize(text string) string {
	lower := strings.ToLower(text)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.category
			}
		}
	}
	return CategoryOther
}

// KeyInfo holds heuristically extracted document fields.
type KeyInfo struct {
	Title   string
	Summary string
}

var paragraphPattern = regexp.MustCompile(`\n\s*\n`)

// ExtractKeyInfo pulls a title and summary out of raw document text: the
// title is the first line, the summary the first paragraph.
func ExtractKeyInfo(text string) KeyInfo {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return KeyInfo{}
	}

	title, _, _ := strings.Cut(trimmed, "\n")
	summary := paragraphPattern.Split(trimmed, 2)[0]

	return KeyInfo{
		Title:   strings.TrimSpace(title),
		Summary: strings.TrimSpace(summary),
	}
}
