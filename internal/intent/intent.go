// Package intent classifies a raw query into an intent analysis that
// drives agent selection. Classification is pattern counting, not NLU:
// each category carries an ordered pattern list, a category's score is
// the number of patterns that matched, and the highest score wins with
// ties broken by declaration order.
package intent

import (
	"regexp"
	"sort"
	"strings"

	"github.com/2010nasirm-code/synapse-os-sub001/pkg/models"
)

// categoryOrder fixes tie-break order. The stable sort below keeps this
// order among equal scores, which makes Analyze deterministic.
var categoryOrder = []models.IntentCategory{
	models.IntentCreate,
	models.IntentUpdate,
	models.IntentDelete,
	models.IntentAnalyze,
	models.IntentKnowledge,
	models.IntentDebug,
	models.IntentHelp,
	models.IntentGeneral,
}

var categoryPatterns = map[models.IntentCategory][]*regexp.Regexp{
	models.IntentCreate: {
		regexp.MustCompile(`(?i)\b(create|make|add|new|start|build|set\s+up)\b`),
		regexp.MustCompile(`(?i)\b(track|log|record)\s+(my|a|an)\b`),
		regexp.MustCompile(`(?i)\bi\s+(want|need)\s+(a|an|to\s+(create|make|add))\b`),
	},
	models.IntentUpdate: {
		regexp.MustCompile(`(?i)\b(update|change|edit|modify|rename|adjust)\b`),
		regexp.MustCompile(`(?i)\b(mark|set)\s+.{0,30}\b(as|to)\b`),
	},
	models.IntentDelete: {
		regexp.MustCompile(`(?i)\b(delete|remove|clear|drop|erase)\b`),
		regexp.MustCompile(`(?i)\bget\s+rid\s+of\b`),
	},
	models.IntentAnalyze: {
		regexp.MustCompile(`(?i)\b(analy[sz]e|compare|summar[iy][sz]e|insight|trend|pattern)\b`),
		regexp.MustCompile(`(?i)\bhow\s+(am|is|are|was|were)\s+.{0,30}\b(doing|going|trending)\b`),
		regexp.MustCompile(`(?i)\b(average|total|count|stats|statistics|progress)\b`),
	},
	models.IntentKnowledge: {
		regexp.MustCompile(`(?i)\b(what|who|where|when|why)\s+(is|are|was|were|does|do|did)\b`),
		regexp.MustCompile(`(?i)\b(explain|define|tell\s+me\s+about)\b`),
		regexp.MustCompile(`(?i)\b(difference\s+between|meaning\s+of)\b`),
	},
	models.IntentDebug: {
		regexp.MustCompile(`(?i)\b(error|bug|broken|crash|fail(ed|ing)?|not\s+working)\b`),
		regexp.MustCompile(`(?i)\b(fix|debug|troubleshoot|diagnose)\b`),
		regexp.MustCompile(`(?i)\bwhy\s+(isn't|doesn't|won't|can't)\b`),
	},
	models.IntentHelp: {
		regexp.MustCompile(`(?i)\b(help|how\s+do\s+i|how\s+to\s+use|guide|tutorial)\b`),
		regexp.MustCompile(`(?i)\bwhat\s+can\s+you\s+do\b`),
		regexp.MustCompile(`(?i)\b(confused|lost|stuck)\b`),
	},
	// general has no patterns; it is the synthesized fallback.
	models.IntentGeneral: {},
}

// knowledgeCues upgrade a zero-score general primary to knowledge. They
// are looser than the knowledge category patterns on purpose.
var knowledgeCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(what|who|where|when|why|how)\b`),
	regexp.MustCompile(`(?i)\b(fact|history|science|capital\s+of)\b`),
	regexp.MustCompile(`\?\s*$`),
}

var webSearchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(latest|current|today|recent|news|right\s+now|this\s+(week|month|year))\b`),
	regexp.MustCompile(`(?i)\b(search|look\s+up|google|find\s+online)\b`),
	regexp.MustCompile(`(?i)\b(weather|price|score|stock)\b`),
	regexp.MustCompile(`(?i)\bhow\s+to\b`),
}

var memoryPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(remember|recall|last\s+time|previously|earlier|before)\b`),
	regexp.MustCompile(`(?i)\b(my\s+(preference|favorite|usual|history))\b`),
	regexp.MustCompile(`(?i)\bwhat\s+did\s+i\b`),
}

var quotedPattern = regexp.MustCompile(`"([^"]+)"|'([^']+)'`)

var domainNouns = []string{
	"tracker", "habit", "task", "goal", "reminder", "note",
	"sleep", "mood", "workout", "budget", "journal", "meal",
}

var possessivePattern = regexp.MustCompile(`(?i)\bmy\s+([a-z]+(?:\s+[a-z]+)?)\b`)

// Classifier maps a query to an intent analysis. Stateless; safe for
// concurrent use.
type Classifier struct{}

func NewClassifier() *Classifier {
	return &Classifier{}
}

type scored struct {
	category models.IntentCategory
	score    int
}

// Analyze classifies query. Primary is always set: with no matches at
// all it returns general with confidence 0.5.
func (c *Classifier) Analyze(query string) *models.IntentAnalysis {
	scores := make([]scored, 0, len(categoryOrder))
	for _, cat := range categoryOrder {
		n := 0
		for _, re := range categoryPatterns[cat] {
			if re.MatchString(query) {
				n++
			}
		}
		scores = append(scores, scored{category: cat, score: n})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	analysis := &models.IntentAnalysis{
		RequiresWebSearch: anyMatch(webSearchPatterns, query),
		RequiresMemory:    anyMatch(memoryPatterns, query),
		Entities:          extractEntities(query),
	}

	top := scores[0]
	if top.score == 0 {
		analysis.Primary = models.IntentGeneral
		analysis.Confidence = 0.5
		if anyMatch(knowledgeCues, query) && strings.TrimSpace(query) != "" {
			analysis.Primary = models.IntentKnowledge
		}
		return analysis
	}

	analysis.Primary = top.category
	analysis.Confidence = confidence(top.score)
	for _, s := range scores[1:] {
		if s.score > 0 && s.category != analysis.Primary {
			analysis.Secondary = append(analysis.Secondary, s.category)
		}
	}
	return analysis
}

func confidence(topScore int) float64 {
	c := float64(topScore) / 2
	if c > 1 {
		c = 1
	}
	return c
}

func anyMatch(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// extractEntities pulls quoted substrings, known domain nouns, and
// possessive phrases out of the query, deduplicated in first-seen order.
func extractEntities(query string) []string {
	var entities []string
	seen := make(map[string]bool)
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		entities = append(entities, e)
	}

	for _, m := range quotedPattern.FindAllStringSubmatch(query, -1) {
		if m[1] != "" {
			add(m[1])
		} else {
			add(m[2])
		}
	}

	lower := strings.ToLower(query)
	for _, noun := range domainNouns {
		if containsWord(lower, noun) {
			add(noun)
		}
	}

	for _, m := range possessivePattern.FindAllStringSubmatch(query, -1) {
		add(m[1])
	}

	return entities
}

func containsWord(text, word string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isWordByte(text[start-1])
		afterOK := end == len(text) || !isWordByte(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
