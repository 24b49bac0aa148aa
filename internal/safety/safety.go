// Package safety implements the content safety gate that guards entry to
// the assistant pipeline. It classifies raw queries against fixed pattern
// groups and decides whether to allow, block, or divert to crisis resources.
//
// Pattern groups, evaluated in order:
//   - self_harm: first match wins and marks the request as a crisis
//   - violence: all matches accumulate as issues
//   - age_inappropriate: all matches accumulate as issues
//   - personal_data: all matches accumulate as issues
//
// Crisis content is NOT treated as invalid: the caller must divert to the
// fixed crisis-resource response. Violence and age-inappropriate content
// make the request invalid.
package safety

import (
	"regexp"
	"strings"
)

// MaxQueryLength is the rune limit applied by Sanitize.
const MaxQueryLength = 10000

// CrisisKind labels the kind of crisis content that was detected.
type CrisisKind string

const (
	CrisisSelfHarm CrisisKind = "self_harm"
)

// CrisisInfo reports whether crisis content was detected.
type CrisisInfo struct {
	Detected bool       `json:"detected"`
	Kind     CrisisKind `json:"kind,omitempty"`
}

// Report is the outcome of a full safety check.
type Report struct {
	Safe   bool       `json:"safe"`
	Issues []string   `json:"issues,omitempty"`
	Crisis CrisisInfo `json:"crisis"`
}

// Validation is the gate decision for an incoming request.
type Validation struct {
	Valid  bool       `json:"valid"`
	Reason string     `json:"reason,omitempty"`
	Crisis CrisisInfo `json:"crisis"`
}

// CrisisMessage is the fixed resource response returned for crisis content.
// The hotline identifiers must survive any downstream synthesis untouched.
const CrisisMessage = "It sounds like you might be going through something really difficult right now. " +
	"You don't have to face this alone. Please reach out to someone who can help:\n\n" +
	"• 988 Suicide & Crisis Lifeline — call or text 988\n" +
	"• Crisis Text Line — text HOME to 741741\n" +
	"• International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/\n\n" +
	"If you are in immediate danger, please call your local emergency number."

// BlockedMessage is the fixed user-facing rejection for unsafe content.
const BlockedMessage = "I can't help with that request. If there's something else on your mind, I'm happy to help."

var selfHarmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(hurt|harm|kill)\s+(myself|me)\b`),
	regexp.MustCompile(`(?i)\b(end|take)\s+(my|it\s+all)\b.{0,20}\b(life|end)\b`),
	regexp.MustCompile(`(?i)\bsuicid(e|al)\b`),
	regexp.MustCompile(`(?i)\bself[\s-]?harm\b`),
	regexp.MustCompile(`(?i)\bwant\s+to\s+die\b`),
	regexp.MustCompile(`(?i)\bno\s+reason\s+to\s+live\b`),
}

var violencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(kill|hurt|attack|assault)\s+(him|her|them|someone|people)\b`),
	regexp.MustCompile(`(?i)\b(make|build)\s+(a\s+)?(bomb|weapon|explosive)\b`),
	regexp.MustCompile(`(?i)\bbomb\b`),
	regexp.MustCompile(`(?i)\bshoot(ing)?\s+(up\s+)?(a\s+)?(school|people|crowd)\b`),
	regexp.MustCompile(`(?i)\bhow\s+to\s+(poison|strangle)\b`),
}

var ageInappropriatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(explicit|porn|sexual)\s*(content|material|images?)?\b`),
	regexp.MustCompile(`(?i)\bnsfw\b`),
	regexp.MustCompile(`(?i)\b(buy|get|score)\s+(drugs|cocaine|heroin|meth)\b`),
}

var personalDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),             // SSN
	regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`),       // card number
	regexp.MustCompile(`(?i)\b(my\s+)?password\s+is\s+\S+`), // leaked credential
	regexp.MustCompile(`(?i)\bsocial\s+security\s+number\b`),
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Gate is the safety classifier. Stateless aside from the static pattern
// tables; safe for concurrent use.
type Gate struct{}

// NewGate returns the safety gate.
func NewGate() *Gate {
	return &Gate{}
}

// Check classifies text against all pattern groups. Self-harm detection
// short-circuits its own group (first match wins) and always sets
// Crisis.Detected; the remaining groups accumulate every match.
// Matching runs on the original text so tag injection cannot bypass it.
func (g *Gate) Check(text string) Report {
	report := Report{Safe: true}

	for _, re := range selfHarmPatterns {
		if re.MatchString(text) {
			report.Crisis = CrisisInfo{Detected: true, Kind: CrisisSelfHarm}
			report.Safe = false
			break
		}
	}

	for _, re := range violencePatterns {
		if re.MatchString(text) {
			report.Issues = append(report.Issues, "violence: "+re.String())
			report.Safe = false
		}
	}
	for _, re := range ageInappropriatePatterns {
		if re.MatchString(text) {
			report.Issues = append(report.Issues, "age_inappropriate: "+re.String())
			report.Safe = false
		}
	}
	for _, re := range personalDataPatterns {
		if re.MatchString(text) {
			report.Issues = append(report.Issues, "personal_data: "+re.String())
			report.Safe = false
		}
	}

	return report
}

// ValidateRequest decides whether a query may enter the pipeline.
// Crisis content is valid (the caller diverts to CrisisMessage); violence
// and age-inappropriate content are invalid. Personal data alone does not
// block the request; it is redacted downstream by the provenance recorder.
func (g *Gate) ValidateRequest(query string) Validation {
	report := g.Check(query)

	if report.Crisis.Detected {
		return Validation{Valid: true, Crisis: report.Crisis}
	}

	for _, issue := range report.Issues {
		if strings.HasPrefix(issue, "violence:") || strings.HasPrefix(issue, "age_inappropriate:") {
			return Validation{Valid: false, Reason: "Request contains content that cannot be processed"}
		}
	}

	return Validation{Valid: true}
}

// Sanitize strips HTML-like tags and truncates to MaxQueryLength runes.
// Used for persisted and logged copies; never run before Check.
func (g *Gate) Sanitize(text string) string {
	clean := htmlTagPattern.ReplaceAllString(text, "")
	clean = strings.TrimSpace(clean)

	runes := []rune(clean)
	if len(runes) > MaxQueryLength {
		clean = string(runes[:MaxQueryLength])
	}
	return clean
}
