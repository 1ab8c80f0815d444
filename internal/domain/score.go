package domain

import (
	"fmt"
	"slices"
)

// Dimension is one of the fixed rubric aspects.
type Dimension string

// Rubric dimensions in display order.
const (
	DimStructure    Dimension = "Structure"
	DimRelevance    Dimension = "Relevance"
	DimContent      Dimension = "Content"
	DimAnalysis     Dimension = "Analysis"
	DimPresentation Dimension = "Presentation"
)

// Dimensions returns the rubric dimensions in display order.
// Returns a fresh slice to prevent mutation.
func Dimensions() []Dimension {
	return []Dimension{DimStructure, DimRelevance, DimContent, DimAnalysis, DimPresentation}
}

// DimensionScore holds the credit earned on one rubric aspect.
type DimensionScore struct {
	Dimension Dimension `json:"dimension"`
	Earned    int       `json:"earned"`
	Max       int       `json:"max"`
}

// RubricScore is the result of one evaluation pass. Total always equals the
// sum of Earned across Dimensions; call Recompute after mutating dimensions.
type RubricScore struct {
	Level          MarkerLevel      `json:"level"`
	Dimensions     []DimensionScore `json:"dimensions"`
	Total          int              `json:"total"`
	Rationale      string           `json:"rationale"`
	Strengths      []string         `json:"strengths,omitempty"`
	Gaps           []string         `json:"gaps,omitempty"`
	CriticalFaults []string         `json:"critical_faults,omitempty"`
	ImprovedAnswer string           `json:"improved_answer,omitempty"`
}

// NewRubricScore returns a zero-credit score with every dimension present and
// maxima taken from the level.
func NewRubricScore(level MarkerLevel) RubricScore {
	maxima := level.DimensionMaxima()
	dims := make([]DimensionScore, 0, len(maxima))
	for _, d := range Dimensions() {
		dims = append(dims, DimensionScore{Dimension: d, Max: maxima[d]})
	}
	return RubricScore{Level: level, Dimensions: dims}
}

// Recompute sets Total to the sum of earned credit.
func (r *RubricScore) Recompute() {
	total := 0
	for _, d := range r.Dimensions {
		total += d.Earned
	}
	r.Total = total
}

// Dimension returns a pointer to the named dimension score, or nil.
func (r *RubricScore) Dimension(name Dimension) *DimensionScore {
	for i := range r.Dimensions {
		if r.Dimensions[i].Dimension == name {
			return &r.Dimensions[i]
		}
	}
	return nil
}

// Validate enforces the structural invariants of a rubric score.
func (r RubricScore) Validate() error {
	if !r.Level.Valid() {
		return fmt.Errorf("%w: %w", ErrInvalidRubric, ErrInvalidMarkerLevel)
	}
	if len(r.Dimensions) != len(Dimensions()) {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrInvalidRubric, len(Dimensions()), len(r.Dimensions))
	}

	seen := make(map[Dimension]bool, len(r.Dimensions))
	sumMax, sumEarned := 0, 0
	for _, d := range r.Dimensions {
		if !slices.Contains(Dimensions(), d.Dimension) {
			return fmt.Errorf("%w: unknown dimension %q", ErrInvalidRubric, d.Dimension)
		}
		if seen[d.Dimension] {
			return fmt.Errorf("%w: duplicate dimension %q", ErrInvalidRubric, d.Dimension)
		}
		seen[d.Dimension] = true
		if d.Earned < 0 || d.Earned > d.Max {
			return fmt.Errorf("%w: %s earned %d outside [0,%d]", ErrInvalidRubric, d.Dimension, d.Earned, d.Max)
		}
		sumMax += d.Max
		sumEarned += d.Earned
	}

	if sumMax != int(r.Level) {
		return fmt.Errorf("%w: dimension maxima sum to %d, want %d", ErrInvalidRubric, sumMax, r.Level)
	}
	if sumEarned != r.Total {
		return fmt.Errorf("%w: total %d does not equal dimension sum %d", ErrInvalidRubric, r.Total, sumEarned)
	}
	return nil
}
