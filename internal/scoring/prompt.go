package scoring

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-mentor/internal/domain"
)

// instructions returns the scoring contract for one submission.
func instructions(cfg Config, level domain.MarkerLevel) string {
	band := cfg.MinimumBand(level)
	maxima := level.DimensionMaxima()

	var rubric strings.Builder
	for _, d := range domain.Dimensions() {
		fmt.Fprintf(&rubric, "- %s: 0-%d\n", d, maxima[d])
	}

	return fmt.Sprintf(`You are a strict but fair %[1]s examiner grading a %[2]d-marker answer.

Rubric (credit per dimension):
%[3]s
Rules:
1) If the answer is plainly not about %[1]s, set "in_scope" to false and leave "scores" empty.
2) Never award 0 in total to a genuine attempt. A weak, shallow or partly off-topic attempt still earns %[4]d-%[5]d marks in total.
3) Dimension scores must be whole numbers within the rubric limits.
4) "improved_answer" is a model answer of at most %[6]d words.

Reply with one JSON object and nothing else:
{"in_scope": true, "scores": {"Structure": 0, "Relevance": 0, "Content": 0, "Analysis": 0, "Presentation": 0},
 "rationale": "...", "strengths": ["..."], "gaps": ["..."], "critical_faults": ["..."], "improved_answer": "..."}`,
		cfg.Subject, int(level), rubric.String(), band.Low, band.High, level.TargetWords())
}

// content frames the submission for the scorer.
func content(sub Submission, level domain.MarkerLevel, words int) string {
	return fmt.Sprintf("MARKER: %d\nWORDS: %d\nSOURCE: %s\n\nANSWER:\n%s", int(level), words, sub.Mode, sub.Text)
}
