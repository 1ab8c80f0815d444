package scoring

import (
	"math"
	"strings"

	"github.com/ahrav/go-mentor/internal/domain"
)

// DefaultGenuineAttemptWords is the shortest readable, in-scope submission
// that is guaranteed nonzero credit.
const DefaultGenuineAttemptWords = 30

// Config tunes the scoring policy.
type Config struct {
	// Subject is the supported subject named in the scoring instructions.
	Subject string `json:"subject" yaml:"subject"`
	// MinimumBands overrides the guaranteed credit band per level.
	MinimumBands map[domain.MarkerLevel]domain.Band `json:"minimum_bands" yaml:"minimum_bands"`
	// GenuineAttemptWords is the word count at which the band floor applies.
	GenuineAttemptWords int `json:"genuine_attempt_words" yaml:"genuine_attempt_words"`
}

// DefaultConfig returns the production scoring policy.
func DefaultConfig() Config {
	bands := make(map[domain.MarkerLevel]domain.Band, len(domain.MarkerLevels()))
	for _, level := range domain.MarkerLevels() {
		bands[level] = level.MinimumBand()
	}
	return Config{
		Subject:             "History",
		MinimumBands:        bands,
		GenuineAttemptWords: DefaultGenuineAttemptWords,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Subject == "" {
		c.Subject = def.Subject
	}
	if c.GenuineAttemptWords <= 0 {
		c.GenuineAttemptWords = def.GenuineAttemptWords
	}
	bands := make(map[domain.MarkerLevel]domain.Band, len(def.MinimumBands))
	for level, band := range def.MinimumBands {
		if override, ok := c.MinimumBands[level]; ok && override.Low > 0 && override.High >= override.Low {
			band = override
		}
		bands[level] = band
	}
	c.MinimumBands = bands
	return c
}

// MinimumBand returns the guaranteed band for level.
func (c Config) MinimumBand(level domain.MarkerLevel) domain.Band {
	if band, ok := c.MinimumBands[level]; ok {
		return band
	}
	return level.MinimumBand()
}

// buildScore turns an in-scope verdict into a rubric score: every dimension
// is clamped into [0, max] and the total is recomputed from the dimensions.
func buildScore(v Verdict, level domain.MarkerLevel) domain.RubricScore {
	score := domain.NewRubricScore(level)
	for i := range score.Dimensions {
		d := &score.Dimensions[i]
		earned, _ := v.Earned(d.Dimension)
		d.Earned = clamp(int(math.Round(earned)), 0, d.Max)
	}
	score.Recompute()

	score.Rationale = strings.TrimSpace(v.Rationale)
	score.Strengths = nonEmpty(v.Strengths)
	score.Gaps = nonEmpty(v.Gaps)
	score.CriticalFaults = nonEmpty(v.CriticalFaults)
	score.ImprovedAnswer = TruncateWords(strings.TrimSpace(v.ImprovedAnswer), level.TargetWords())
	return score
}

// applyFloor raises a genuine attempt's total to the band floor. Credit is
// added to Relevance first, then Structure, then the remaining dimensions,
// never beyond a dimension's maximum. It reports whether credit was added.
func applyFloor(score *domain.RubricScore, band domain.Band) bool {
	if score.Total >= band.Low {
		return false
	}
	need := band.Low - score.Total
	order := []domain.Dimension{domain.DimRelevance, domain.DimStructure}
	for _, d := range domain.Dimensions() {
		if d != domain.DimRelevance && d != domain.DimStructure {
			order = append(order, d)
		}
	}
	for _, name := range order {
		if need == 0 {
			break
		}
		d := score.Dimension(name)
		add := min(need, d.Max-d.Earned)
		d.Earned += add
		need -= add
	}
	score.Recompute()
	return true
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

func nonEmpty(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TruncateWords keeps at most n whitespace-delimited words of text. Line
// breaks within the kept prefix are preserved.
func TruncateWords(text string, n int) string {
	if n <= 0 || domain.CountWords(text) <= n {
		return text
	}
	words, inWord := 0, false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		switch {
		case !space && !inWord:
			if words == n {
				return strings.TrimRight(text[:i], " \t\r\n") + " ..."
			}
			words++
			inWord = true
		case space:
			inWord = false
		}
	}
	return text
}
