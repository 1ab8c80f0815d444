// Package extract turns inbound submissions into plain text. PDFs are read from
// their text layer first and fall back to rasterization plus OCR when the text
// layer is too thin; images go straight to OCR after grayscale conversion.
//
// Extraction failure is a normal outcome: when every path fails or yields
// nothing, Extract returns an empty document and a nil error, and callers are
// expected to ask for a clearer resubmission.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/ahrav/go-mentor/internal/domain"
)

// Default extraction limits.
const (
	DefaultMaxPages      = 25
	DefaultMinTypedWords = 40
	DefaultOCRWorkers    = 4
	DefaultDPI           = 200
	DefaultOCRLanguage   = "eng"
	DefaultTimeout       = 2 * time.Minute
)

var errNoPages = errors.New("rasterizer produced no pages")

// PDFTextReader reads the embedded text layer of a PDF, one entry per page,
// stopping after maxPages pages.
type PDFTextReader interface {
	PageTexts(ctx context.Context, data []byte, maxPages int) ([]string, error)
}

// Rasterizer renders the first maxPages pages of a PDF to PNG images.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, maxPages int) ([][]byte, error)
}

// OCREngine recognizes text in an encoded image.
type OCREngine interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// Config controls extraction limits and the external OCR tooling.
type Config struct {
	MaxPages      int           `json:"max_pages"       yaml:"max_pages"`
	MinTypedWords int           `json:"min_typed_words" yaml:"min_typed_words"`
	OCRWorkers    int           `json:"ocr_workers"     yaml:"ocr_workers"`
	OCRLanguage   string        `json:"ocr_language"    yaml:"ocr_language"`
	DPI           int           `json:"dpi"             yaml:"dpi"`
	Timeout       time.Duration `json:"timeout"         yaml:"timeout"`
	TesseractPath string        `json:"tesseract_path"  yaml:"tesseract_path"`
	PDFToPPMPath  string        `json:"pdftoppm_path"   yaml:"pdftoppm_path"`
}

// DefaultConfig returns the production extraction settings.
func DefaultConfig() Config {
	return Config{
		MaxPages:      DefaultMaxPages,
		MinTypedWords: DefaultMinTypedWords,
		OCRWorkers:    DefaultOCRWorkers,
		OCRLanguage:   DefaultOCRLanguage,
		DPI:           DefaultDPI,
		Timeout:       DefaultTimeout,
		TesseractPath: "tesseract",
		PDFToPPMPath:  "pdftoppm",
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.MaxPages <= 0 {
		c.MaxPages = def.MaxPages
	}
	if c.MinTypedWords <= 0 {
		c.MinTypedWords = def.MinTypedWords
	}
	if c.OCRWorkers <= 0 {
		c.OCRWorkers = def.OCRWorkers
	}
	if c.OCRLanguage == "" {
		c.OCRLanguage = def.OCRLanguage
	}
	if c.DPI <= 0 {
		c.DPI = def.DPI
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.TesseractPath == "" {
		c.TesseractPath = def.TesseractPath
	}
	if c.PDFToPPMPath == "" {
		c.PDFToPPMPath = def.PDFToPPMPath
	}
	return c
}

// Extractor converts raw submissions into extracted documents.
type Extractor struct {
	cfg    Config
	pdf    PDFTextReader
	raster Rasterizer
	ocr    OCREngine
	logger *slog.Logger
}

// New wires an extractor from explicit collaborators.
func New(cfg Config, pdf PDFTextReader, raster Rasterizer, ocr OCREngine) *Extractor {
	return &Extractor{
		cfg:    cfg.withDefaults(),
		pdf:    pdf,
		raster: raster,
		ocr:    ocr,
		logger: slog.Default().With("component", "extract"),
	}
}

// NewDefault wires an extractor backed by the native PDF reader, pdftoppm
// and tesseract.
func NewDefault(cfg Config) *Extractor {
	cfg = cfg.withDefaults()
	return New(cfg,
		NewPDFReader(),
		NewPopplerRasterizer(cfg.PDFToPPMPath, cfg.DPI),
		NewTesseract(cfg.TesseractPath, cfg.OCRLanguage),
	)
}

// Extract returns the text of sub. Only an invalid submission produces an
// error; every extraction failure yields an empty document instead.
func (e *Extractor) Extract(ctx context.Context, sub domain.RawSubmission) (domain.ExtractedDocument, error) {
	if err := sub.Validate(); err != nil {
		return domain.ExtractedDocument{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	var doc domain.ExtractedDocument
	switch sub.Kind {
	case domain.KindText:
		doc = domain.NewExtractedDocument(Normalize(string(sub.Bytes)), domain.ModeTyped)
	case domain.KindHTML:
		doc = domain.NewExtractedDocument(e.extractHTML(sub), domain.ModeTyped)
	case domain.KindImage:
		doc = domain.NewExtractedDocument(e.extractImage(ctx, sub.Bytes), domain.ModeOCR)
	case domain.KindPDF:
		doc = e.extractPDF(ctx, sub.Bytes)
	}

	e.logger.Debug("extraction complete",
		"kind", sub.Kind,
		"mode", doc.Mode,
		"words", doc.WordCount,
		"duration", time.Since(start))
	return doc, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) domain.ExtractedDocument {
	var typed string
	pages, err := e.pdf.PageTexts(ctx, data, e.cfg.MaxPages)
	if err != nil {
		e.logger.Warn("pdf text layer unreadable", "error", err)
	} else {
		typed = Normalize(strings.Join(pages, "\n\n"))
	}

	typedDoc := domain.NewExtractedDocument(typed, domain.ModeTyped)
	if typedDoc.WordCount >= e.cfg.MinTypedWords {
		return typedDoc
	}

	e.logger.Info("text layer below threshold, falling back to OCR",
		"words", typedDoc.WordCount, "threshold", e.cfg.MinTypedWords)

	ocrDoc := domain.NewExtractedDocument(e.ocrPDF(ctx, data), domain.ModeOCR)
	if ocrDoc.WordCount == 0 && typedDoc.WordCount > 0 {
		return typedDoc
	}
	return ocrDoc
}

// ocrPDF rasterizes the document and recognizes each page on a bounded pool.
// Page failures leave that page blank; output keeps page order.
func (e *Extractor) ocrPDF(ctx context.Context, data []byte) string {
	images, err := e.raster.Rasterize(ctx, data, e.cfg.MaxPages)
	if err == nil && len(images) == 0 {
		err = errNoPages
	}
	if err != nil {
		e.logger.Warn("pdf rasterization failed", "error", err)
		return ""
	}
	if len(images) > e.cfg.MaxPages {
		images = images[:e.cfg.MaxPages]
	}

	texts := make([]string, len(images))
	var g errgroup.Group
	g.SetLimit(e.cfg.OCRWorkers)
	for i, img := range images {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			text, err := e.ocr.Recognize(ctx, img)
			if err != nil {
				e.logger.Warn("page OCR failed", "page", i+1, "error", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Warn("pdf OCR interrupted", "error", err)
	}
	return Normalize(strings.Join(texts, "\n\n"))
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) string {
	gray, err := grayscalePNG(data)
	if err != nil {
		e.logger.Warn("image decode failed", "error", err)
		return ""
	}
	text, err := e.ocr.Recognize(ctx, gray)
	if err != nil {
		e.logger.Warn("image OCR failed", "error", err)
		return ""
	}
	return Normalize(text)
}

// grayscalePNG decodes an image in any registered format, applies EXIF
// orientation and re-encodes it as a grayscale PNG.
func grayscalePNG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, imaging.Grayscale(img)); err != nil {
		return nil, fmt.Errorf("encode grayscale: %w", err)
	}
	return buf.Bytes(), nil
}
