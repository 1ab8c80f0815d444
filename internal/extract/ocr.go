package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// PopplerRasterizer renders PDF pages with the pdftoppm CLI.
type PopplerRasterizer struct {
	binary string
	dpi    int
}

// NewPopplerRasterizer returns a rasterizer invoking binary at the given DPI.
func NewPopplerRasterizer(binary string, dpi int) *PopplerRasterizer {
	return &PopplerRasterizer{binary: binary, dpi: dpi}
}

// Rasterize writes data to a scratch directory, renders the first maxPages
// pages to PNG and returns them in page order.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, data []byte, maxPages int) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "mentor-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}

	args := []string{"-png", "-r", strconv.Itoa(p.dpi)}
	if maxPages > 0 {
		args = append(args, "-l", strconv.Itoa(maxPages))
	}
	args = append(args, input, filepath.Join(dir, "page"))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	// pdftoppm zero-pads page numbers to a common width, so lexical order is
	// page order.
	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	sort.Strings(files)

	pages := make([][]byte, 0, len(files))
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read page: %w", err)
		}
		pages = append(pages, b)
	}
	return pages, nil
}

// Tesseract recognizes text with the tesseract CLI, streaming the image over
// stdin and reading the result from stdout.
type Tesseract struct {
	binary   string
	language string
}

// NewTesseract returns an OCR engine for the given binary and language pack.
func NewTesseract(binary, language string) *Tesseract {
	return &Tesseract{binary: binary, language: language}
}

// Recognize runs tesseract over a single encoded image.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.binary, "stdin", "stdout", "-l", t.language)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
