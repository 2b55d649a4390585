package services

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

var errNoPDFText = errors.New("no extractable text in PDF")

// ExtractPDFText returns the plain text of every page.
func ExtractPDFText(content []byte) (text string, err error) {
	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("parse PDF: %v", r)
		}
	}()
	if len(content) == 0 {
		return "", fmt.Errorf("empty PDF content")
	}
	content = trimAfterEOF(content)

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("parse PDF: %w", err)
	}
	pages := reader.NumPage()
	if pages == 0 {
		return "", fmt.Errorf("PDF has no pages")
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(pageText)
		b.WriteString("\n")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", errNoPDFText
	}
	return out, nil
}

// trimAfterEOF drops bytes appended after the last %%EOF marker, which some
// download tools leave behind and which the parser rejects.
func trimAfterEOF(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}
	marker := []byte("%%EOF")
	last := bytes.LastIndex(content, marker)
	if last == -1 {
		return content
	}
	end := last + len(marker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	return content[:end]
}
