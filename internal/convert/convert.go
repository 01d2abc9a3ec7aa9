// Package convert turns HTML into markdown or PDF documents: it cleans
// the markup, localizes embedded images, and drives the external PDF
// renderer.
package convert

import (
	"context"
	"errors"
	"fmt"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// ConversionError indicates that rendering or markdown conversion
// failed. Materialization of the affected filter is aborted; the
// message stays unread.
type ConversionError struct {
	Format  string
	Message string
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("converting to %s: %s: %v", e.Format, e.Message, e.Err)
	}
	return fmt.Sprintf("converting to %s: %s", e.Format, e.Message)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// IsConversionError reports whether err (or any error in its chain) is
// a ConversionError.
func IsConversionError(err error) bool {
	var convErr *ConversionError
	return errors.As(err, &convErr)
}

// Downloader retrieves raw page resources such as images.
// *fetch.Fetcher satisfies it.
type Downloader interface {
	Download(ctx context.Context, url string) ([]byte, error)
}

// Document is one HTML payload headed for conversion.
type Document struct {
	// HTML is the page or body markup.
	HTML string

	// BaseURL resolves relative resource references; empty for mail
	// bodies without an origin.
	BaseURL string

	// Frontmatter is prepended to markdown output when non-empty.
	Frontmatter string
}

// Converter converts HTML documents to markdown or PDF files.
type Converter struct {
	logger       *logging.Logger
	downloader   Downloader
	rendererPath string
}

// New creates a Converter. rendererPath optionally points at the
// wkhtmltopdf binary; when empty, well-known install locations and
// PATH are searched instead.
func New(logger *logging.Logger, downloader Downloader, rendererPath string) *Converter {
	return &Converter{
		logger:       logger,
		downloader:   downloader,
		rendererPath: rendererPath,
	}
}

// Convert renders doc to outPath in the given format ("pdf" or "md").
// Unknown formats fail without side effects.
func (c *Converter) Convert(ctx context.Context, doc Document, outPath, format string) error {
	switch format {
	case model.FormatPDF:
		return c.toPDF(ctx, doc, outPath)
	case model.FormatMarkdown:
		return c.toMarkdown(ctx, doc, outPath)
	}

	return &ConversionError{Format: format, Message: "unsupported output format"}
}
