package services

import (
	"regexp"
	"sort"
	"strings"

	utils "heirloom/pkg/utills"
)

const (
	summarySentences = 3
	minSentenceLen   = 20
	minKeywordLen    = 4
	maxKeywords      = 10
)

var (
	sentenceSplit = regexp.MustCompile(`[.!?]+`)
	nonWord       = regexp.MustCompile(`[^\w\s]`)
)

var stopwords = toSet(
	"the", "and", "for", "are", "but", "not", "you", "all", "any", "can", "had", "her", "was", "one",
	"our", "out", "day", "get", "has", "him", "his", "how", "its", "may", "new", "now", "old", "see",
	"two", "who", "did", "she", "use", "way", "many", "then", "them", "these", "they", "this", "that",
	"with", "have", "from", "were", "been", "will", "what", "when", "where", "which", "while", "would",
	"could", "should", "there", "their", "about", "after", "before", "other", "some", "such", "than",
	"into", "only", "over", "also", "more", "most", "very", "just", "your", "each", "does", "done",
	"here", "like", "make", "made", "much", "need", "same", "being", "both", "because", "through",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

type categoryRule struct {
	name     string
	keywords []string
}

// categoryRules is evaluated in order; the first match wins.
var categoryRules = []categoryRule{
	{"development", []string{"code", "programming", "software", "api", "framework"}},
	{"infrastructure", []string{"server", "database", "cloud", "deployment", "docker"}},
	{"security", []string{"authentication", "authorization", "encryption", "security", "vulnerability"}},
	{"analytics", []string{"data", "metrics", "dashboard", "analytics", "visualization"}},
	{"mobile", []string{"mobile", "android", "ios", "react native", "flutter"}},
	{"documentation", []string{"guide", "manual", "documentation", "tutorial", "how-to"}},
	{"business", []string{"strategy", "roadmap", "requirements", "planning", "meeting"}},
	{"research", []string{"research", "analysis", "study", "report", "findings"}},
}

// Summarize joins the first three sentences longer than 20 characters.
// Text without such sentences falls back to its first 200 characters.
func Summarize(text string) string {
	var picked []string
	for _, s := range sentenceSplit.Split(text, -1) {
		s = strings.TrimSpace(s)
		if len(s) > minSentenceLen {
			picked = append(picked, s)
			if len(picked) == summarySentences {
				break
			}
		}
	}
	if len(picked) == 0 {
		return utils.Ellipsize(strings.TrimSpace(text), summaryLen)
	}
	return strings.Join(picked, ". ") + "."
}

// Keywords returns the ten most frequent non-stopword words of at least four
// characters; ties keep first-occurrence order.
func Keywords(text string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(text), " ")
	counts := map[string]int{}
	var order []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < minKeywordLen {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > maxKeywords {
		order = order[:maxKeywords]
	}
	if order == nil {
		order = []string{}
	}
	return order
}

// Categorize picks the first category whose keywords appear in the text or
// the file name.
func Categorize(text, filename string) string {
	haystack := strings.ToLower(text + " " + filename)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(haystack, kw) {
				return rule.name
			}
		}
	}
	return defaultKnowledgeCategory
}
