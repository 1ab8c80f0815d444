// Package domain defines the core types shared by the extraction, answering and
// scoring pipelines: inbound submissions, extracted documents, marker levels,
// rubric scores and the fixed user-visible messages.
//
// Types in this package are plain values. They carry their own invariant checks
// but perform no I/O, so they can cross Temporal activity boundaries and be
// serialized into caches without adapters.
package domain

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is the package-level validator instance used for struct validation.
var validate = validator.New(validator.WithRequiredStructEnabled())

// SubmissionKind declares how the raw payload of a submission is encoded.
type SubmissionKind string

const (
	// KindText is a plain UTF-8 text payload.
	KindText SubmissionKind = "text"
	// KindPDF is a PDF document, typed or scanned.
	KindPDF SubmissionKind = "pdf"
	// KindImage is a photo or scan in a common raster format.
	KindImage SubmissionKind = "image"
	// KindHTML is a saved web page or exported note.
	KindHTML SubmissionKind = "html"
)

// Valid reports whether k is one of the supported kinds.
func (k SubmissionKind) Valid() bool {
	switch k {
	case KindText, KindPDF, KindImage, KindHTML:
		return true
	default:
		return false
	}
}

// KindFromFileName infers the submission kind from a file extension or MIME
// type. Unknown inputs default to KindText.
func KindFromFileName(name, mimeType string) SubmissionKind {
	lowerName := strings.ToLower(name)
	lowerMIME := strings.ToLower(mimeType)
	switch {
	case strings.HasSuffix(lowerName, ".pdf") || lowerMIME == "application/pdf":
		return KindPDF
	case strings.HasSuffix(lowerName, ".html") || strings.HasSuffix(lowerName, ".htm") ||
		strings.HasPrefix(lowerMIME, "text/html"):
		return KindHTML
	case strings.HasPrefix(lowerMIME, "image/"),
		strings.HasSuffix(lowerName, ".jpg"), strings.HasSuffix(lowerName, ".jpeg"),
		strings.HasSuffix(lowerName, ".png"), strings.HasSuffix(lowerName, ".webp"):
		return KindImage
	default:
		return KindText
	}
}

// RawSubmission is an inbound payload before extraction. It is created when a
// message arrives and discarded once extraction completes.
type RawSubmission struct {
	Kind     SubmissionKind `json:"kind"      validate:"required"`
	Bytes    []byte         `json:"bytes"     validate:"required"`
	FileName string         `json:"file_name,omitempty"`
	MIMEType string         `json:"mime_type,omitempty"`
	// Caption is free text sent alongside the payload, e.g. "20 marker".
	Caption string `json:"caption,omitempty"`
}

// Validate checks that the submission has a known kind and a payload.
func (s RawSubmission) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}
	if len(s.Bytes) == 0 {
		return fmt.Errorf("%w: empty payload", ErrInvalidSubmission)
	}
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unsupported kind %q", ErrInvalidSubmission, s.Kind)
	}
	return nil
}
