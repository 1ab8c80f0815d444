package readability_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-mentor/internal/readability"
)

const cleanParagraph = `The Revolt of 1857 began as a mutiny of sepoys at Meerut but soon spread
across the Gangetic plain. Peasants, artisans and dispossessed rulers joined the
uprising for different reasons, including heavy land revenue, the annexation of
Awadh and resentment against new cartridges. Although it failed, the revolt ended
Company rule and reshaped British policy in India.`

// TestClassifier_Assess covers each rejection rule and the clean-text path.
func TestClassifier_Assess(t *testing.T) {
	c := readability.New(readability.DefaultConfig())

	tests := []struct {
		name       string
		text       string
		unreliable bool
		reason     readability.Reason
	}{
		{
			name:       "clean typed paragraph is reliable",
			text:       cleanParagraph,
			unreliable: false,
		},
		{
			name:       "empty text",
			text:       "",
			unreliable: true,
			reason:     readability.ReasonTooFewWords,
		},
		{
			name:       "symbol-only short scan",
			text:       "@#$% ^^^ ~~ || ##",
			unreliable: true,
			reason:     readability.ReasonTooFewWords,
		},
		{
			name:       "nine clean words is still too few",
			text:       "the mughal empire declined after the death of aurangzeb",
			unreliable: true,
			reason:     readability.ReasonTooFewWords,
		},
		{
			name:       "ocr fragments without word shapes",
			text:       "a1 b2 c3 d4 e5 f6 g7 h8 i9 j0 k1 l2 mughal",
			unreliable: true,
			reason:     readability.ReasonLowReadable,
		},
		{
			name:       "words buried in stray symbols",
			text:       strings.Repeat("ab#$%&* ", 12),
			unreliable: true,
			reason:     readability.ReasonSymbolHeavy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := c.Assess(tt.text)
			assert.Equal(t, tt.unreliable, v.Unreliable)
			assert.Equal(t, tt.reason, v.Reason)
			assert.Equal(t, tt.unreliable, c.LooksUnreliable(tt.text))
		})
	}
}

// TestClassifier_FewerThanTenWordsAlwaysUnreliable pins the word-count rule
// for every short length, regardless of how clean the words are.
func TestClassifier_FewerThanTenWordsAlwaysUnreliable(t *testing.T) {
	c := readability.New(readability.Config{})
	for n := 0; n < 10; n++ {
		text := strings.TrimSpace(strings.Repeat("history ", n))
		assert.True(t, c.LooksUnreliable(text), "n=%d", n)
	}
	assert.False(t, c.LooksUnreliable(strings.Repeat("history ", 10)))
}

func TestRatios(t *testing.T) {
	assert.InDelta(t, 0.5, readability.ReadableRatio([]string{"don't", "42"}), 1e-9)
	assert.InDelta(t, 1.0, readability.ReadableRatio([]string{"co-op", "it"}), 1e-9)
	assert.Zero(t, readability.ReadableRatio(nil))

	assert.InDelta(t, 0.5, readability.NonAlnumRatio("a#b$"), 1e-9)
	assert.Zero(t, readability.NonAlnumRatio("plain words only"))

	v := readability.New(readability.DefaultConfig()).Assess(cleanParagraph)
	require.GreaterOrEqual(t, v.Words, 50)
	assert.GreaterOrEqual(t, v.ReadableRatio, readability.DefaultMinReadableRatio)
	assert.LessOrEqual(t, v.NonAlnumRatio, readability.DefaultMaxNonAlnumRatio)
}
