package scoring

import (
	"github.com/ahrav/go-mentor/internal/detect"
	"github.com/ahrav/go-mentor/internal/domain"
)

// Word-count thresholds for inferring a marker level without a hint.
const (
	Marker20MinWords = 330
	Marker15MinWords = 200
)

// InferMarker picks the marker level for a submission. An explicit hint such
// as "20 marker" wins; otherwise the word count decides.
func InferMarker(hint string, wordCount int) domain.MarkerLevel {
	if level, ok := detect.ExtractMarkerHint(hint); ok {
		return level
	}
	switch {
	case wordCount >= Marker20MinWords:
		return domain.Marker20
	case wordCount >= Marker15MinWords:
		return domain.Marker15
	default:
		return domain.Marker10
	}
}
