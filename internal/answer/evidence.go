package answer

import (
	"regexp"
	"strings"

	"github.com/ahrav/go-mentor/internal/domain"
)

// quoteSpan matches a non-empty span delimited by straight or curly double
// quotes.
var quoteSpan = regexp.MustCompile(`"[^"\n]+"|“[^”\n]+”`)

// HasQuote reports whether text contains at least one quotation span.
func HasQuote(text string) bool {
	return quoteSpan.MatchString(text)
}

// Section is a heading every structured answer must carry.
type Section string

// Required sections of a structured answer, in the order they are requested.
const (
	SectionIntroduction Section = "Introduction"
	SectionTimeline     Section = "Timeline"
	SectionVisualAid    Section = "Mindmap"
	SectionKeywords     Section = "Keywords"
	SectionPYQ          Section = "PYQ Link"
	SectionConclusion   Section = "Conclusion"
)

var sectionPatterns = map[Section]*regexp.Regexp{
	SectionIntroduction: regexp.MustCompile(`(?i)\bintroduction\b`),
	SectionTimeline:     regexp.MustCompile(`(?i)\btime\s*-?\s*line\b`),
	SectionVisualAid:    regexp.MustCompile(`(?i)\b(mind\s*-?\s*map|visual\s+aid|flow\s*-?\s*chart)\b`),
	SectionKeywords:     regexp.MustCompile(`(?i)\bkey\s*-?\s*words?\b`),
	SectionPYQ:          regexp.MustCompile(`(?i)\b(pyqs?|previous\s+years?|frequency)\b`),
	SectionConclusion:   regexp.MustCompile(`(?i)\bconclusion\b`),
}

// RequiredSections returns the structured-answer sections in order.
func RequiredSections() []Section {
	return []Section{
		SectionIntroduction, SectionTimeline, SectionVisualAid,
		SectionKeywords, SectionPYQ, SectionConclusion,
	}
}

// MissingSections lists the required sections absent from text.
func MissingSections(text string) []Section {
	var missing []Section
	for _, s := range RequiredSections() {
		if !sectionPatterns[s].MatchString(text) {
			missing = append(missing, s)
		}
	}
	return missing
}

// gate applies the evidence rules to generated text. It returns the failing
// reason, or ReasonGrounded.
func gate(text string) domain.EvidenceReason {
	switch {
	case strings.TrimSpace(text) == "":
		return domain.ReasonEmpty
	case strings.Contains(text, domain.RefusalSentinel):
		return domain.ReasonRefusalEcho
	case !HasQuote(text):
		return domain.ReasonMissingQuote
	default:
		return domain.ReasonGrounded
	}
}
