// Package loader reads the knowledge base directory into documents.
// Markdown is the primary format; PDF and Excel files are flattened to
// plain text so the chunker can treat every document uniformly.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dosipov/geotech-qa/internal/core/domain"
)

type Loader struct {
	dir    string
	logger *slog.Logger
}

func New(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// Load reads every supported file directly under the knowledge base
// directory. A file that fails to parse is logged and skipped; a
// missing directory is fatal.
func (l *Loader) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("knowledge base directory not found: %s", l.dir)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base directory: %w", err)
	}

	var documents []domain.Document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(l.dir, entry.Name())
		content, err := l.extract(path)
		if err != nil {
			l.logger.Error("document_load_failed", "file", path, "error", err)
			continue
		}
		if strings.TrimSpace(content) == "" {
			if supportedExtension(path) {
				l.logger.Warn("document_empty", "file", path)
			}
			continue
		}

		doc := domain.Document{
			Content: content,
			Metadata: domain.DocumentMetadata{
				Source:   stem(path),
				Title:    extractTitle(content, path),
				FilePath: path,
			},
		}
		documents = append(documents, doc)
		l.logger.Info("document_loaded",
			"source", doc.Metadata.Source,
			"title", doc.Metadata.Title,
			"words", len(strings.Fields(content)),
		)
	}

	l.logger.Info("documents_loaded", "dir", l.dir, "count", len(documents))
	return documents, nil
}

func (l *Loader) extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case ".pdf":
		return extractPDF(path)
	case ".xlsx", ".xlsm":
		return extractExcel(path)
	default:
		return "", nil
	}
}

func supportedExtension(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown", ".txt", ".pdf", ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// extractTitle takes the first level-1 or level-2 markdown heading,
// falling back to a title-cased filename.
func extractTitle(content, path string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(line, "# "); ok {
			return strings.TrimSpace(after)
		}
		if after, ok := strings.CutPrefix(line, "## "); ok {
			return strings.TrimSpace(after)
		}
	}
	return titleCase(strings.ReplaceAll(stem(path), "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}
