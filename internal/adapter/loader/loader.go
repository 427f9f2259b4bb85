// Package loader turns a directory of text and PDF files into documents.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"docsearch/internal/domain"
)

// DirectoryLoader reads .txt and .pdf files from a single directory.
type DirectoryLoader struct {
	walker *Walker
	logger *slog.Logger
}

// NewDirectoryLoader creates a loader for the given include patterns.
// A nil logger falls back to slog.Default().
func NewDirectoryLoader(includes []string, logger *slog.Logger) *DirectoryLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryLoader{
		walker: NewWalker(includes),
		logger: logger,
	}
}

// LoadDocuments reads every matching file in dir. Files that are empty after
// trimming are skipped; files that fail to read are logged and skipped.
func (l *DirectoryLoader) LoadDocuments(ctx context.Context, dir string) ([]domain.Document, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: directory %q does not exist", domain.ErrDirectoryNotFound, dir)
	}

	paths, err := l.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var docs []domain.Document
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		doc, ok, err := l.loadFile(path)
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", path, "error", err)
			continue
		}
		if !ok {
			l.logger.Debug("skipping empty file", "path", path)
			continue
		}
		docs = append(docs, doc)
	}

	l.logger.Debug("loaded documents", "dir", dir, "files", len(paths), "documents", len(docs))
	return docs, nil
}

func (l *DirectoryLoader) loadFile(path string) (domain.Document, bool, error) {
	name := filepath.Base(path)
	ext := strings.ToLower(filepath.Ext(name))
	doc := domain.Document{
		ID:       strings.TrimSuffix(name, filepath.Ext(name)),
		Metadata: map[string]any{"filename": name},
	}

	switch ext {
	case ".pdf":
		text, pages, err := readPDF(path)
		if err != nil {
			return doc, false, err
		}
		doc.Text = text
		doc.Metadata["type"] = "pdf"
		doc.Metadata["num_pages"] = pages
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return doc, false, err
		}
		doc.Text = strings.TrimSpace(string(data))
		doc.Metadata["type"] = strings.TrimPrefix(ext, ".")
	}

	return doc, doc.Text != "", nil
}

// readPDF extracts plain text page by page, joining pages with a blank line.
// The pdf parser panics on malformed object syntax; that is reported as an
// error so the file is skipped.
func readPDF(path string) (text string, numPages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, numPages = "", 0
			err = fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	numPages = r.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read page %d: %w", i, err)
		}
		pages = append(pages, pageText)
	}

	return strings.TrimSpace(strings.Join(pages, "\n\n")), numPages, nil
}
