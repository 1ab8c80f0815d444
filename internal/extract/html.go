package extract

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/ahrav/go-mentor/internal/domain"
)

const blockSelector = "p, li, h1, h2, h3, h4, h5, h6, blockquote, pre, td"

// extractHTML isolates the main article with go-readability and renders it as
// text, falling back to the whole body when no article is detected.
func (e *Extractor) extractHTML(sub domain.RawSubmission) string {
	pageURL := &url.URL{Scheme: "file", Path: "/" + sub.FileName}

	article, err := readability.FromReader(bytes.NewReader(sub.Bytes), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		if text := htmlText(strings.NewReader(article.Content)); text != "" {
			return text
		}
	}
	if err != nil {
		e.logger.Debug("readability failed, using body text", "error", err)
	}
	return htmlText(bytes.NewReader(sub.Bytes))
}

// htmlText renders block elements as separate paragraphs so adjacent blocks
// do not run together.
func htmlText(r io.Reader) string {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()

	var blocks []string
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		if s.Find(blockSelector).Length() > 0 {
			return
		}
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	if len(blocks) == 0 {
		return Normalize(doc.Find("body").Text())
	}
	return Normalize(strings.Join(blocks, "\n\n"))
}
