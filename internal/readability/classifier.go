// Package readability implements the heuristic quality gate that decides whether
// extracted text is usable for scoring. OCR noise shows up either as too few
// recognizable word shapes or as an excess of stray symbols; either signal on
// its own is enough to reject the text.
package readability

import (
	"regexp"
	"strings"
	"unicode"
)

// Default thresholds.
const (
	DefaultMinWords         = 10
	DefaultMinReadableRatio = 0.45
	DefaultMaxNonAlnumRatio = 0.25
)

// Reason names the rule that rejected a text.
type Reason string

// Rejection reasons.
const (
	ReasonNone        Reason = ""
	ReasonTooFewWords Reason = "too_few_words"
	ReasonLowReadable Reason = "low_readable_ratio"
	ReasonSymbolHeavy Reason = "high_non_alnum_ratio"
)

// wordShape matches two letters that are adjacent or separated by a single
// non-letter, non-space character ("it", "don't", "co-op").
var wordShape = regexp.MustCompile(`\p{L}[^\p{L}\s]?\p{L}`)

// Config holds the classifier thresholds.
type Config struct {
	MinWords         int     `json:"min_words"           yaml:"min_words"`
	MinReadableRatio float64 `json:"min_readable_ratio"  yaml:"min_readable_ratio"`
	MaxNonAlnumRatio float64 `json:"max_non_alnum_ratio" yaml:"max_non_alnum_ratio"`
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MinWords:         DefaultMinWords,
		MinReadableRatio: DefaultMinReadableRatio,
		MaxNonAlnumRatio: DefaultMaxNonAlnumRatio,
	}
}

// Verdict is the full outcome of an assessment.
type Verdict struct {
	Unreliable    bool    `json:"unreliable"`
	Reason        Reason  `json:"reason,omitempty"`
	Words         int     `json:"words"`
	ReadableRatio float64 `json:"readable_ratio"`
	NonAlnumRatio float64 `json:"non_alnum_ratio"`
}

// Classifier is deterministic and performs no I/O.
type Classifier struct {
	cfg Config
}

// New creates a classifier. Zero-valued thresholds fall back to the defaults.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if cfg.MinWords <= 0 {
		cfg.MinWords = def.MinWords
	}
	if cfg.MinReadableRatio <= 0 {
		cfg.MinReadableRatio = def.MinReadableRatio
	}
	if cfg.MaxNonAlnumRatio <= 0 {
		cfg.MaxNonAlnumRatio = def.MaxNonAlnumRatio
	}
	return &Classifier{cfg: cfg}
}

// LooksUnreliable reports whether text should be treated as gibberish.
func (c *Classifier) LooksUnreliable(text string) bool {
	return c.Assess(text).Unreliable
}

// Assess applies the rules in order: word count, readable ratio, symbol ratio.
func (c *Classifier) Assess(text string) Verdict {
	tokens := strings.Fields(text)
	v := Verdict{
		Words:         len(tokens),
		ReadableRatio: ReadableRatio(tokens),
		NonAlnumRatio: NonAlnumRatio(text),
	}

	switch {
	case v.Words < c.cfg.MinWords:
		v.Unreliable, v.Reason = true, ReasonTooFewWords
	case v.ReadableRatio < c.cfg.MinReadableRatio:
		v.Unreliable, v.Reason = true, ReasonLowReadable
	case v.NonAlnumRatio > c.cfg.MaxNonAlnumRatio:
		v.Unreliable, v.Reason = true, ReasonSymbolHeavy
	}
	return v
}

// ReadableRatio is the fraction of tokens that contain a recognizable word shape.
func ReadableRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	readable := 0
	for _, tok := range tokens {
		if wordShape.MatchString(tok) {
			readable++
		}
	}
	return float64(readable) / float64(len(tokens))
}

// NonAlnumRatio is the fraction of all characters in text that are neither
// letters, digits nor whitespace.
func NonAlnumRatio(text string) float64 {
	total, symbols := 0, 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			continue
		}
		symbols++
	}
	if total == 0 {
		return 0
	}
	return float64(symbols) / float64(total)
}
