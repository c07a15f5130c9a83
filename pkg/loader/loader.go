// Package loader turns legal source documents into ordered paragraphs.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Fetcher retrieves the paragraphs of a document published on the web.
type Fetcher interface {
	FetchParagraphs(ctx context.Context, url string) ([]string, error)
}

type Loader struct {
	fetcher Fetcher
}

// New creates a Loader. fetcher may be nil when no source is a URL.
func New(fetcher Fetcher) *Loader {
	return &Loader{fetcher: fetcher}
}

// Paragraphs returns the paragraphs of the document at path in reading order.
func (l *Loader) Paragraphs(ctx context.Context, path string) ([]string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		if l.fetcher == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", path)
		}
		return l.fetcher.FetchParagraphs(ctx, path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".docx":
		return readDocx(path)
	case ".pdf":
		return readPDF(path)
	case ".txt", ".md":
		return readText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

func readPDF(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	text, err := r.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf text %s: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return nil, fmt.Errorf("failed to read pdf buffer %s: %w", path, err)
	}

	return splitLines(&buf)
}

func readText(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return splitLines(f)
}

func splitLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
