// Package ingest builds the document index from PDF and text files.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Page is the extracted text of one source page. Plain text files are a
// single page numbered 1.
type Page struct {
	Source string
	Page   int
	Text   string
}

// LoadDir reads every *.pdf and *.txt directly under dir, in name order.
// Files that fail to parse are reported in skipped and do not abort the load.
func LoadDir(dir string) (pages []Page, skipped map[string]error, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read docs dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	skipped = map[string]error{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		var (
			filePages []Page
			loadErr   error
		)
		switch strings.ToLower(filepath.Ext(name)) {
		case ".pdf":
			filePages, loadErr = LoadPDF(path)
		case ".txt":
			filePages, loadErr = LoadText(path)
		default:
			continue
		}
		if loadErr != nil {
			skipped[name] = loadErr
			continue
		}
		pages = append(pages, filePages...)
	}
	return pages, skipped, nil
}

// LoadPDF extracts plain text per page. Pages without text are dropped.
func LoadPDF(path string) (pages []Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	source := filepath.Base(path)
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, Page{Source: source, Page: i, Text: text})
	}
	return pages, nil
}

// LoadText reads a UTF-8 text file as a single page.
func LoadText(path string) ([]Page, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, nil
	}
	return []Page{{Source: filepath.Base(path), Page: 1, Text: text}}, nil
}
