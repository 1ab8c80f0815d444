package scoring

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-mentor/internal/domain"
)

// Render formats a score for display: dimension lines, total, qualitative
// sections and the improved answer.
func Render(score domain.RubricScore) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Evaluation (%d marker)\n\n", int(score.Level))
	for _, d := range score.Dimensions {
		fmt.Fprintf(&b, "%s: %d/%d\n", d.Dimension, d.Earned, d.Max)
	}
	fmt.Fprintf(&b, "Total: %d/%d\n", score.Total, int(score.Level))

	if score.Rationale != "" {
		fmt.Fprintf(&b, "\n%s\n", score.Rationale)
	}
	writeList(&b, "Strengths", score.Strengths)
	writeList(&b, "Gaps", score.Gaps)
	writeList(&b, "Critical faults", score.CriticalFaults)

	if score.ImprovedAnswer != "" {
		fmt.Fprintf(&b, "\nImproved answer (max %d words):\n%s\n", score.Level.TargetWords(), score.ImprovedAnswer)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeList(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "\n%s:\n", title)
	if len(items) == 0 {
		b.WriteString("- None noted\n")
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
