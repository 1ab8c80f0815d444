// Package detect classifies inbound text with a fixed set of named keyword
// detectors. Each detector is a plain predicate so its behavior can be pinned
// by literal fixtures, independent of any generated output.
package detect

import (
	"regexp"
	"strconv"

	"github.com/ahrav/go-mentor/internal/domain"
)

// Name identifies a detector.
type Name string

// Registered detectors.
const (
	Structured        Name = "structured"
	MCQ               Name = "mcq"
	EvaluationRequest Name = "evaluation_request"
	MarkerHint        Name = "marker_hint"
)

// Detector reports whether text carries a particular signal.
type Detector interface {
	Name() Name
	Match(text string) bool
}

// patternDetector matches when any of its patterns is found.
type patternDetector struct {
	name     Name
	patterns []*regexp.Regexp
}

func (d patternDetector) Name() Name { return d.name }

func (d patternDetector) Match(text string) bool {
	for _, p := range d.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

var (
	structuredPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(150|250)\s*-?\s*words?\b`),
		regexp.MustCompile(`(?i)\b(discuss|analy[sz]e|critically|examine|comment|elucidate|explain)\b`),
		regexp.MustCompile(`(?i)\bmains\b`),
	}
	mcqPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bmcqs?\b`),
		regexp.MustCompile(`(?i)\bprelims\b`),
		regexp.MustCompile(`(?i)\bobjective\b`),
		regexp.MustCompile(`(?i)\bmultiple[\s-]+choice\b`),
		regexp.MustCompile(`(?i)\bchoose\s+the\s+correct\b`),
	}
	evaluationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*/evaluate\b`),
		regexp.MustCompile(`(?i)\b(evaluate|check|score|review|grade|assess)\s+(my|this)\s+answer\b`),
	}
	markerHintPattern = regexp.MustCompile(`(?i)\b(10|15|20)\s*-?\s*markers?\b`)
)

// NewStructured detects long-form answer requests.
func NewStructured() Detector {
	return patternDetector{name: Structured, patterns: structuredPatterns}
}

// NewMCQ detects multiple-choice requests.
func NewMCQ() Detector { return patternDetector{name: MCQ, patterns: mcqPatterns} }

// NewEvaluationRequest detects a request to score a written answer.
func NewEvaluationRequest() Detector {
	return patternDetector{name: EvaluationRequest, patterns: evaluationPatterns}
}

// NewMarkerHint detects an explicit marker level such as "20 marker".
func NewMarkerHint() Detector {
	return patternDetector{name: MarkerHint, patterns: []*regexp.Regexp{markerHintPattern}}
}

// Set is an ordered collection of detectors.
type Set struct {
	detectors []Detector
}

// NewSet returns a set over the given detectors, or the default four when
// none are supplied.
func NewSet(detectors ...Detector) *Set {
	if len(detectors) == 0 {
		detectors = []Detector{NewStructured(), NewMCQ(), NewEvaluationRequest(), NewMarkerHint()}
	}
	return &Set{detectors: detectors}
}

// Classify returns the names of every detector that matches, in set order.
func (s *Set) Classify(text string) []Name {
	var out []Name
	for _, d := range s.detectors {
		if d.Match(text) {
			out = append(out, d.Name())
		}
	}
	return out
}

// Has reports whether the named detector matches text.
func (s *Set) Has(name Name, text string) bool {
	for _, d := range s.detectors {
		if d.Name() == name {
			return d.Match(text)
		}
	}
	return false
}

// IsStructuredRequest reports whether the question asks for a long-form
// answer and is not a multiple-choice request.
func (s *Set) IsStructuredRequest(question string) bool {
	return s.Has(Structured, question) && !s.Has(MCQ, question)
}

// IsEvaluationRequest reports whether text asks for an answer to be scored.
func (s *Set) IsEvaluationRequest(text string) bool {
	return s.Has(EvaluationRequest, text)
}

// ExtractMarkerHint returns the marker level named in text, if any. When
// several are named the first one wins.
func ExtractMarkerHint(text string) (domain.MarkerLevel, bool) {
	m := markerHintPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	level := domain.MarkerLevel(n)
	return level, level.Valid()
}
