package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMarkerLevel_DimensionMaximaSumToLevel verifies that every level's rubric
// distributes exactly the level's points across the five dimensions.
func TestMarkerLevel_DimensionMaximaSumToLevel(t *testing.T) {
	for _, level := range MarkerLevels() {
		t.Run(level.String(), func(t *testing.T) {
			maxima := level.DimensionMaxima()
			require.Len(t, maxima, len(Dimensions()))

			sum := 0
			for _, d := range Dimensions() {
				v, ok := maxima[d]
				require.True(t, ok, "missing dimension %s", d)
				assert.Positive(t, v)
				sum += v
			}
			assert.Equal(t, int(level), sum)
		})
	}
}

func TestMarkerLevel_MinimumBand(t *testing.T) {
	tests := []struct {
		level MarkerLevel
		want  Band
	}{
		{Marker10, Band{Low: 1, High: 2}},
		{Marker15, Band{Low: 1, High: 3}},
		{Marker20, Band{Low: 2, High: 4}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.level.MinimumBand(), "level %d", tt.level)
		assert.Positive(t, tt.level.MinimumBand().Low)
	}
}

func TestParseMarkerLevel(t *testing.T) {
	level, err := ParseMarkerLevel(" 15 ")
	require.NoError(t, err)
	assert.Equal(t, Marker15, level)

	for _, bad := range []string{"12", "0", "twenty", ""} {
		_, err := ParseMarkerLevel(bad)
		assert.ErrorIs(t, err, ErrInvalidMarkerLevel, "input %q", bad)
	}
}

// TestRubricScore_Validate checks the total/sum invariant and the per-dimension
// bounds enforced on every rendered score.
func TestRubricScore_Validate(t *testing.T) {
	t.Run("fresh score is valid", func(t *testing.T) {
		score := NewRubricScore(Marker10)
		require.NoError(t, score.Validate())
		assert.Zero(t, score.Total)
	})

	t.Run("recompute keeps total equal to sum", func(t *testing.T) {
		score := NewRubricScore(Marker20)
		score.Dimension(DimContent).Earned = 4
		score.Dimension(DimStructure).Earned = 2
		score.Recompute()

		require.NoError(t, score.Validate())
		assert.Equal(t, 6, score.Total)
	})

	t.Run("stale total is rejected", func(t *testing.T) {
		score := NewRubricScore(Marker15)
		score.Dimension(DimAnalysis).Earned = 2
		score.Total = 5

		assert.ErrorIs(t, score.Validate(), ErrInvalidRubric)
	})

	t.Run("earned above max is rejected", func(t *testing.T) {
		score := NewRubricScore(Marker10)
		score.Dimension(DimPresentation).Earned = 3
		score.Recompute()

		assert.ErrorIs(t, score.Validate(), ErrInvalidRubric)
	})

	t.Run("missing dimension is rejected", func(t *testing.T) {
		score := NewRubricScore(Marker10)
		score.Dimensions = score.Dimensions[:4]

		assert.ErrorIs(t, score.Validate(), ErrInvalidRubric)
	})

	t.Run("duplicate dimension is rejected", func(t *testing.T) {
		score := NewRubricScore(Marker10)
		score.Dimensions[1].Dimension = DimStructure

		assert.ErrorIs(t, score.Validate(), ErrInvalidRubric)
	})
}

func TestExtractedDocument_WordCount(t *testing.T) {
	doc := NewExtractedDocument("  The Revolt of 1857\n\nwas  a turning point ", ModeTyped)
	assert.Equal(t, 8, doc.WordCount)
	assert.False(t, doc.Empty())

	empty := NewExtractedDocument(" \n\t ", ModeOCR)
	assert.True(t, empty.Empty())
	assert.Zero(t, empty.WordCount)
}

func TestRawSubmission_Validate(t *testing.T) {
	valid := RawSubmission{Kind: KindPDF, Bytes: []byte("%PDF-1.4")}
	require.NoError(t, valid.Validate())

	assert.ErrorIs(t, RawSubmission{Kind: KindPDF}.Validate(), ErrInvalidSubmission)
	assert.ErrorIs(t, RawSubmission{Kind: "docx", Bytes: []byte("x")}.Validate(), ErrInvalidSubmission)
}

func TestKindFromFileName(t *testing.T) {
	assert.Equal(t, KindPDF, KindFromFileName("notes.PDF", ""))
	assert.Equal(t, KindImage, KindFromFileName("scan", "image/jpeg"))
	assert.Equal(t, KindHTML, KindFromFileName("article.htm", ""))
	assert.Equal(t, KindText, KindFromFileName("answer.txt", "text/plain"))
}
