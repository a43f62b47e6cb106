package docs

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/encoding/charmap"

	"github.com/iksnae/persona-sft/internal"
)

// Reader extracts plain text from one document format. Readers are optional
// capabilities: when no reader is registered for an extension, files of that
// format are skipped with a reported error, and ingestion of other formats
// continues unaffected.
type Reader interface {
	Extract(path string) (string, error)
}

// Registry dispatches readers by lower-cased file extension (with dot).
type Registry map[string]Reader

// DefaultRegistry returns the registry with every built-in reader.
func DefaultRegistry() Registry {
	text := textReader{}
	html := htmlReader{}
	return Registry{
		".txt":      text,
		".md":       text,
		".markdown": text,
		".html":     html,
		".htm":      html,
		".docx":     docxReader{},
		".pdf":      pdfReader{},
	}
}

// Supported reports whether ext has a registered reader.
func (r Registry) Supported(ext string) bool {
	_, ok := r[strings.ToLower(ext)]
	return ok
}

// Extract dispatches to the reader for the file's extension.
func (r Registry) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := r[ext]
	if !ok {
		return "", &internal.ReaderError{
			Path:   path,
			Format: ext,
			Err:    fmt.Errorf("no reader registered for this format"),
		}
	}
	text, err := reader.Extract(path)
	if err != nil {
		return "", &internal.ReaderError{Path: path, Format: ext, Err: err}
	}
	return text, nil
}

// textReader handles plain text and markdown. Files that are not valid
// UTF-8 are decoded as Windows-1255, the legacy encoding of older Hebrew
// text exports.
type textReader struct{}

func (textReader) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	decoded, err := charmap.Windows1255.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode legacy text: %w", err)
	}
	return string(decoded), nil
}

// htmlReader extracts visible text, dropping script/style/noscript subtrees.
type htmlReader struct{}

func (htmlReader) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return internal.StripMarkup(string(data)), nil
}

// docxReader pulls paragraph text out of the WordprocessingML body. A .docx
// file is a zip container; runs of text live in w:t elements and paragraphs
// end at w:p boundaries.
type docxReader struct{}

func (docxReader) Extract(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("failed to open docx container: %w", err)
	}
	defer zr.Close()

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("no word/document.xml in container")
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open document.xml: %w", err)
	}
	defer rc.Close()
	return extractWordParagraphs(rc)
}

func extractWordParagraphs(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				// Blank-line separators keep paragraph boundaries visible
				// to the downstream chunker.
				b.WriteString("\n\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// pdfReader extracts the plain-text content of every page.
type pdfReader struct{}

func (pdfReader) Extract(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
