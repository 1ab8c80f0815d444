package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MarkerLevel is the point scale a submitted answer is scored against.
// Only 10, 15 and 20 are ever produced.
type MarkerLevel int

// Supported marker levels.
const (
	Marker10 MarkerLevel = 10
	Marker15 MarkerLevel = 15
	Marker20 MarkerLevel = 20
)

// Band is an inclusive range of credit.
type Band struct {
	Low  int `json:"low"  yaml:"low"`
	High int `json:"high" yaml:"high"`
}

// Contains reports whether v lies inside the band.
func (b Band) Contains(v int) bool { return v >= b.Low && v <= b.High }

// MarkerLevels returns the closed set of levels in ascending order.
func MarkerLevels() []MarkerLevel { return []MarkerLevel{Marker10, Marker15, Marker20} }

// ParseMarkerLevel converts "10", "15" or "20" into a MarkerLevel.
func ParseMarkerLevel(s string) (MarkerLevel, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMarkerLevel, s)
	}
	level := MarkerLevel(n)
	if !level.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidMarkerLevel, n)
	}
	return level, nil
}

// Valid reports whether m is in the closed set.
func (m MarkerLevel) Valid() bool {
	switch m {
	case Marker10, Marker15, Marker20:
		return true
	default:
		return false
	}
}

// TargetWords is the word budget of a model answer at this level.
func (m MarkerLevel) TargetWords() int {
	switch m {
	case Marker15:
		return 250
	case Marker20:
		return 350
	default:
		return 150
	}
}

// MinimumBand is the nonzero credit range guaranteed to a genuine attempt.
func (m MarkerLevel) MinimumBand() Band {
	switch m {
	case Marker15:
		return Band{Low: 1, High: 3}
	case Marker20:
		return Band{Low: 2, High: 4}
	default:
		return Band{Low: 1, High: 2}
	}
}

// DimensionMaxima returns the per-dimension maximum credit. The maxima sum to
// the level itself.
func (m MarkerLevel) DimensionMaxima() map[Dimension]int {
	switch m {
	case Marker15:
		return map[Dimension]int{
			DimStructure: 3, DimRelevance: 3, DimContent: 4, DimAnalysis: 3, DimPresentation: 2,
		}
	case Marker20:
		return map[Dimension]int{
			DimStructure: 4, DimRelevance: 4, DimContent: 6, DimAnalysis: 4, DimPresentation: 2,
		}
	default:
		return map[Dimension]int{
			DimStructure: 2, DimRelevance: 2, DimContent: 3, DimAnalysis: 2, DimPresentation: 1,
		}
	}
}

func (m MarkerLevel) String() string { return fmt.Sprintf("%d marker", int(m)) }
