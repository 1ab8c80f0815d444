package activity

import (
	"context"

	"github.com/ahrav/go-mentor/internal/domain"
	base "github.com/ahrav/go-mentor/pkg/activity"
)

// ExtractSubmission extracts the text of a submission. An empty document is
// a normal result, not an error. Non-empty documents become the sender's
// last submission.
func (a *Activities) ExtractSubmission(ctx context.Context, in ExtractInput) (domain.ExtractedDocument, error) {
	if err := in.Submission.Validate(); err != nil {
		return domain.ExtractedDocument{}, nonRetryable(ErrTypeValidation, err, "invalid submission")
	}

	a.base.RecordHeartbeat(ctx, "extracting")
	doc, err := a.extractor.Extract(ctx, in.Submission)
	if err != nil {
		return domain.ExtractedDocument{}, nonRetryable(ErrTypeExtraction, err, "extraction failed")
	}

	if !doc.Empty() && in.Sender != "" && a.store != nil {
		if err := a.store.Put(ctx, in.Sender, doc); err != nil {
			base.SafeLogError(ctx, "failed to store submission", "sender", in.Sender, "error", err)
		}
	}

	base.SafeLog(ctx, "submission extracted",
		"kind", in.Submission.Kind,
		"mode", doc.Mode,
		"words", doc.WordCount)
	a.emit(ctx, EventSubmissionExtracted, "extraction-activity",
		extractedPayload{Mode: doc.Mode, WordCount: doc.WordCount})
	return doc, nil
}
