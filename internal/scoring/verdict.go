package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-mentor/internal/domain"
)

// ErrInvalidVerdict is returned when the scorer's output cannot be parsed or
// validated, even after repair.
var ErrInvalidVerdict = errors.New("invalid scoring verdict")

var validate = validator.New(validator.WithRequiredStructEnabled())

// Verdict is the JSON contract the delegated scorer must return.
type Verdict struct {
	// InScope is false when the submission is outside the supported subject.
	InScope *bool `json:"in_scope" validate:"required"`
	// Scores maps dimension names onto earned credit.
	Scores         map[string]float64 `json:"scores"`
	Rationale      string             `json:"rationale"`
	Strengths      []string           `json:"strengths"`
	Gaps           []string           `json:"gaps"`
	CriticalFaults []string           `json:"critical_faults"`
	ImprovedAnswer string             `json:"improved_answer"`
}

// Earned returns the credit for d, matching dimension names case-insensitively.
func (v Verdict) Earned(d domain.Dimension) (float64, bool) {
	for name, earned := range v.Scores {
		if strings.EqualFold(strings.TrimSpace(name), string(d)) {
			return earned, true
		}
	}
	return 0, false
}

func (v Verdict) check() error {
	if err := validate.Struct(v); err != nil {
		return err
	}
	if !*v.InScope {
		return nil
	}
	for _, d := range domain.Dimensions() {
		if _, ok := v.Earned(d); !ok {
			return fmt.Errorf("missing score for %s", d)
		}
	}
	return nil
}

// ParseVerdict validates raw scorer output. When strict parsing fails a
// single repair pass is applied: the JSON object is extracted from any
// surrounding prose or code fences and common syntax slips are fixed. The
// boolean reports whether the repair was needed.
func ParseVerdict(raw string) (Verdict, bool, error) {
	var v Verdict
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		if err := v.check(); err != nil {
			return Verdict{}, false, fmt.Errorf("%w: %w", ErrInvalidVerdict, err)
		}
		return v, false, nil
	}

	repaired := repairJSON(extractJSON(raw))
	if repaired == raw {
		return Verdict{}, false, fmt.Errorf("%w: malformed JSON", ErrInvalidVerdict)
	}

	var fixed Verdict
	if err := json.Unmarshal([]byte(repaired), &fixed); err != nil {
		return Verdict{}, false, fmt.Errorf("%w: JSON still invalid after repair: %w", ErrInvalidVerdict, err)
	}
	if err := fixed.check(); err != nil {
		return Verdict{}, false, fmt.Errorf("%w: %w", ErrInvalidVerdict, err)
	}
	return fixed, true, nil
}

var (
	fencedJSON     = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingComma  = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRgx = regexp.MustCompile(`(\{|,)\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
)

// extractJSON pulls a JSON object out of markdown or conversational text.
func extractJSON(content string) string {
	if m := fencedJSON.FindStringSubmatch(content); len(m) > 1 {
		content = m[1]
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end > start {
		return content[start : end+1]
	}
	if start != -1 {
		return content[start:]
	}
	return content
}

// repairJSON fixes the syntax errors scorers commonly make.
func repairJSON(content string) string {
	repaired := strings.TrimPrefix(strings.TrimSpace(content), "\ufeff")

	repaired = trailingComma.ReplaceAllString(repaired, "$1")
	repaired = unquotedKeyRgx.ReplaceAllString(repaired, `$1"$2":`)

	// Only safe when no double quotes are present at all.
	if !strings.Contains(repaired, `"`) && strings.Contains(repaired, `'`) {
		repaired = strings.ReplaceAll(repaired, `'`, `"`)
	}

	openBrackets := strings.Count(repaired, "[") - strings.Count(repaired, "]")
	for range max(openBrackets, 0) {
		repaired += "]"
	}
	openBraces := strings.Count(repaired, "{") - strings.Count(repaired, "}")
	for range max(openBraces, 0) {
		repaired += "}"
	}
	return repaired
}
