package knowledge

import (
	"errors"
	"fmt"
)

// ErrNoKnowledgeSource is returned when ingestion runs without a target
// knowledge source.
var ErrNoKnowledgeSource = errors.New("knowledge source id is required")

// ErrEmptyDocument is returned for uploads without content.
var ErrEmptyDocument = errors.New("document is empty")

// UploadError reports that a document could not be stored in the index.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %q: %v", e.FileName, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AttachError reports that a stored document could not be attached to a
// knowledge source. The document itself exists in the index.
type AttachError struct {
	DocumentID        string
	KnowledgeSourceID string
	Err               error
}

func (e *AttachError) Error() string {
	return fmt.Sprintf("attach %s to %s: %v", e.DocumentID, e.KnowledgeSourceID, e.Err)
}

func (e *AttachError) Unwrap() error { return e.Err }
