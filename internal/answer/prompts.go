package answer

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-mentor/internal/domain"
)

const baseRules = `You are a History mentor for competitive exam aspirants.
Write in a topper-notes style: crisp, structured, factual and exam-focused.

Rules:
1) Answer only from the attached study material. Search it before answering.
2) Support every factual claim with a short verbatim quotation from the material in double quotes.
3) If the material does not cover the question, reply with exactly this line and nothing else:
` + domain.RefusalSentinel + `
4) Prefer bullet points and short lines.
5) Do not invent dates, names or inscription numbers. If unsure, say "approx.".
6) If the user asks for "10 lines", give exactly 10 numbered lines.`

const conciseFormat = `Use these headings:
- Context
- Core Points
- Keywords (5-8)
- PYQ Link (1-2 lines)
- Quick Revision (2-3 lines)`

const reformatRules = `You restructure an existing History answer into a required set of sections.
Use only the facts and quotations already present in the answer. Do not add new facts.
Keep every double-quoted quotation verbatim.
If the answer cannot be restructured without new facts, reply with exactly:
` + domain.RefusalSentinel

// structuredFormat lists the headings of a long-form answer.
func structuredFormat() string {
	var b strings.Builder
	b.WriteString("This is a long-form answer. Use exactly these headings, in order:\n")
	for _, s := range RequiredSections() {
		fmt.Fprintf(&b, "- %s\n", sectionHint(s))
	}
	return strings.TrimRight(b.String(), "\n")
}

func sectionHint(s Section) string {
	switch s {
	case SectionTimeline:
		return "Timeline (key dates in order)"
	case SectionVisualAid:
		return "Mindmap (a short text visual aid)"
	case SectionKeywords:
		return "Keywords (5-8)"
	case SectionPYQ:
		return "PYQ Link (how often the theme appears in previous years)"
	default:
		return string(s)
	}
}

// systemPrompt returns the operating rules for one question.
func systemPrompt(structured bool) string {
	if structured {
		return baseRules + "\n\n" + structuredFormat()
	}
	return baseRules + "\n\n" + conciseFormat
}

// reformatContent asks for the listed sections to be added to text.
func reformatContent(text string, missing []Section) string {
	names := make([]string, len(missing))
	for i, s := range missing {
		names[i] = string(s)
	}
	return fmt.Sprintf("%s\n\nThe answer below is missing these sections: %s.\n\nANSWER:\n%s",
		structuredFormat(), strings.Join(names, ", "), text)
}
