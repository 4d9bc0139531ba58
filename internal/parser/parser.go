// Package parser turns uploaded document bytes into plain text ready for
// chunking. Format support is extension based; unsupported extensions are
// rejected up front so the upload can fail before any indexing work.
package parser

import (
	"bytes"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	appErr "github.com/raglib/docqa/internal/pkg/errors"
)

var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".txt":  {},
	".md":   {},
	".docx": {},
	".xlsx": {},
}

func IsSupported(filename string) bool {
	_, ok := supportedExtensions[strings.ToLower(filepath.Ext(filename))]
	return ok
}

// ExtractText returns the plain text content of the document.
func ExtractText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".txt":
		return string(data), nil
	case ".md":
		return extractMarkdown(data)
	case ".docx":
		return extractDOCX(data)
	case ".xlsx":
		return extractXLSX(data)
	default:
		return "", fmt.Errorf("%w: %s", appErr.ErrUnsupportedFile, filepath.Ext(filename))
	}
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extract pdf page %d: %w", i, err)
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func extractMarkdown(data []byte) (string, error) {
	md := goldmark.New()
	reader := text.NewReader(data)
	doc := md.Parser().Parse(reader)

	var parts []string
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		if txt := extractNodeText(node, data); txt != "" {
			parts = append(parts, txt)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func extractNodeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := node.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.FencedCodeBlock:
			for i := 0; i < t.Lines().Len(); i++ {
				line := t.Lines().At(i)
				sb.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}

var xmlTagRegex = regexp.MustCompile(`<[^>]+>`)

func extractDOCX(data []byte) (string, error) {
	reader, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read docx: %w", err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()
	// GetContent returns raw document XML; paragraph closings become line
	// breaks before the remaining tags are stripped.
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	content = xmlTagRegex.ReplaceAllString(content, "")
	return html.UnescapeString(content), nil
}

func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("read xlsx: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
