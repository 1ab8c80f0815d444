package retry

import (
	"fmt"

	"github.com/ahrav/go-mentor/internal/domain"
	llmerrors "github.com/ahrav/go-mentor/internal/llm/errors"
)

// UserMessage maps a terminal generation failure onto the fixed message shown
// to the user. It returns "" for a nil error.
func UserMessage(err error) string {
	switch llmerrors.Classify(err) {
	case llmerrors.ClassNone:
		return ""
	case llmerrors.ClassConnection:
		return domain.ConnectionFailureMessage
	case llmerrors.ClassRateLimit:
		return domain.RateLimitedMessage
	case llmerrors.ClassStatus:
		return fmt.Sprintf(domain.StatusFailureFormat, llmerrors.StatusCode(err))
	default:
		return domain.UnexpectedFailureMessage
	}
}
