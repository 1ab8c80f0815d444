package domain

import "strings"

// ExtractionMode records which path produced an extracted document. OCR output
// is treated with more suspicion downstream.
type ExtractionMode string

const (
	// ModeTyped means the text came from a text layer or a typed message.
	ModeTyped ExtractionMode = "typed"
	// ModeOCR means the text came from optical character recognition.
	ModeOCR ExtractionMode = "ocr"
)

// ExtractedDocument is the immutable result of text extraction.
// Construct it with NewExtractedDocument so WordCount always matches Text.
type ExtractedDocument struct {
	Text      string         `json:"text"`
	Mode      ExtractionMode `json:"mode"`
	WordCount int            `json:"word_count"`
}

// NewExtractedDocument builds a document whose WordCount is the true
// whitespace-delimited token count of text.
func NewExtractedDocument(text string, mode ExtractionMode) ExtractedDocument {
	return ExtractedDocument{
		Text:      text,
		Mode:      mode,
		WordCount: CountWords(text),
	}
}

// Empty reports whether extraction failed to produce any text.
func (d ExtractedDocument) Empty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// CountWords returns the number of whitespace-delimited tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
