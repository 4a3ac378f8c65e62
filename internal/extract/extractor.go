// Package extract turns uploaded documents into page-addressed text.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/tanya/internal/models"
)

// Extractor extracts page text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// PagesFromFile reads the file at path and returns its non-empty pages, named by the file's base name.
func (e *Extractor) PagesFromFile(path string) ([]models.PageUnit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.Pages(filepath.Base(path), content)
}

// Pages extracts the pages of a document. The format is chosen by the extension of name.
// Page numbers are 1-based and refer to the position in the source document, so a blank
// page leaves a gap rather than renumbering the pages after it. Pages whose text is empty
// after trimming are dropped. A document that yields no pages is not an error here; the
// caller decides whether an empty result is acceptable.
func (e *Extractor) Pages(name string, data []byte) ([]models.PageUnit, error) {
	texts, err := e.pageTexts(data, strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", name, err)
	}
	units := make([]models.PageUnit, 0, len(texts))
	for i, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		units = append(units, models.PageUnit{
			SourceName: name,
			PageNumber: i + 1,
			Text:       text,
		})
	}
	return units, nil
}

// Text returns the whole document as one string, pages separated by blank lines.
func (e *Extractor) Text(name string, data []byte) (string, error) {
	units, err := e.Pages(name, data)
	if err != nil {
		return "", err
	}
	parts := make([]string, len(units))
	for i, u := range units {
		parts[i] = u.Text
	}
	return strings.Join(parts, "\n\n"), nil
}

// pageTexts returns the raw text of every page in document order; ext includes the leading dot.
func (e *Extractor) pageTexts(content []byte, ext string) ([]string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".docx", ".odt":
		return singlePage(extractDOCX(content))
	case ".odp":
		return singlePage(extractODP(content))
	case ".ods":
		return singlePage(extractODS(content))
	default:
		// .txt, .md, .rst and anything unknown are treated as plain text
		return extractPlain(content)
	}
}

func singlePage(text string, err error) ([]string, error) {
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}

// SupportedExtension reports whether ext has a dedicated extractor or is a known plain-text format.
func SupportedExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".pdf", ".xlsx", ".pptx", ".docx", ".odt", ".odp", ".ods", ".txt", ".md", ".rst":
		return true
	}
	return false
}
