// Package materialize turns a matched (message, filter) pair into
// files on disk: saved attachments, converted message bodies, or
// converted web pages linked from the body.
package materialize

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/convert"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/frontmatter"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/match"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/sanitize"
)

// urlPattern finds absolute HTTP(S) URLs in a message body.
var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Result reports what a materialization produced. The orchestrator
// marks and moves the source message only when Count > 0.
type Result struct {
	// Count is the number of artifacts written.
	Count int

	// Paths lists the written artifact paths.
	Paths []string
}

// PageFetcher downloads an HTML page, following client-side
// redirects. *fetch.Fetcher satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, url string) (finalURL, html string, err error)
}

// DocumentConverter writes an HTML document to disk as markdown or
// PDF. *convert.Converter satisfies it.
type DocumentConverter interface {
	Convert(ctx context.Context, doc convert.Document, outPath, format string) error
}

// Materializer executes filter actions against matched messages.
type Materializer struct {
	logger    *logging.Logger
	fetcher   PageFetcher
	converter DocumentConverter
}

// New creates a Materializer.
func New(logger *logging.Logger, fetcher PageFetcher, converter DocumentConverter) *Materializer {
	return &Materializer{
		logger:    logger,
		fetcher:   fetcher,
		converter: converter,
	}
}

// Run executes the filter's action on msg and reports what was
// produced. The output directory is the filter's target folder,
// falling back to the account default.
func (m *Materializer) Run(ctx context.Context, msg model.Message, account model.Account, filter model.Filter) (Result, error) {
	dir := filter.TargetFolder
	if dir == "" {
		dir = account.TargetFolder
	}

	switch filter.Action {
	case model.ActionAttachment:
		return m.saveAttachments(msg, filter, dir)
	case model.ActionBody:
		return m.convertBody(ctx, msg, filter, dir)
	case model.ActionURL:
		return m.convertLinkedPage(ctx, msg, filter, dir)
	}

	return Result{}, fmt.Errorf("unknown filter action %q", filter.Action)
}

// saveAttachments writes every attachment passing the filter's
// per-attachment criteria into dir, verbatim, under collision-free
// names.
func (m *Materializer) saveAttachments(msg model.Message, filter model.Filter, dir string) (Result, error) {
	matched := match.Attachments(msg, filter)
	if len(matched) == 0 {
		m.logger.Debugf("message %d: no attachments match the filter", msg.UID)
		return Result{}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	var result Result
	for _, att := range matched {
		path := sanitize.UniquePath(dir, sanitize.Filename(att.Filename))

		if err := os.WriteFile(path, att.Data, 0o644); err != nil {
			m.logger.Errorf("message %d: writing attachment %s: %v", msg.UID, path, err)
			continue
		}

		m.logger.Importantf("saved attachment %s", path)
		result.Count++
		result.Paths = append(result.Paths, path)
	}

	return result, nil
}

// convertBody converts the message body itself to a document named
// <date>_<sanitized subject>.<ext>.
func (m *Materializer) convertBody(ctx context.Context, msg model.Message, filter model.Filter, dir string) (Result, error) {
	body := msg.Body("text/html")
	if body == "" {
		body = msg.Body("text/plain")
	}
	if strings.TrimSpace(body) == "" {
		m.logger.Debugf("message %d: empty body, nothing to convert", msg.UID)
		return Result{}, nil
	}

	isHTML := strings.HasPrefix(strings.TrimSpace(body), "<")

	switch filter.TargetFormat {
	case model.FormatPDF:
		if !isHTML {
			m.logger.Warnf("message %d: plain-text body cannot become a PDF, use target_format md instead", msg.UID)
			return Result{}, nil
		}
	case model.FormatMarkdown:
		if !isHTML {
			body = "<html><body>" + body + "</body></html>"
		}
	}

	name := fmt.Sprintf("%s_%s.%s",
		msg.Timestamp().Format("2006-01-02"),
		sanitize.Filename(msg.Subject),
		filter.TargetFormat)

	return m.writeDocument(ctx, msg, filter, convert.Document{HTML: body}, dir, name)
}

// convertLinkedPage finds the first body URL matching the filter's
// prefix, fetches it, and converts the page to a document named
// <sanitized subject>_<timestamp>.<ext>. At most one artifact is
// produced per message; further matching URLs are ignored.
func (m *Materializer) convertLinkedPage(ctx context.Context, msg model.Message, filter model.Filter, dir string) (Result, error) {
	body := msg.Body("text/plain")
	if body == "" {
		body = msg.Body("text/html")
	}

	target := firstURL(body, filter.URLPrefix)
	if target == "" {
		m.logger.Debugf("message %d: no URL with prefix %s in body", msg.UID, filter.URLPrefix)
		return Result{}, nil
	}

	finalURL, page, err := m.fetcher.Get(ctx, target)
	if err != nil {
		return Result{}, err
	}

	name := fmt.Sprintf("%s_%s.%s",
		sanitize.Filename(msg.Subject),
		time.Now().Format("20060102_150405"),
		filter.TargetFormat)

	doc := convert.Document{HTML: page, BaseURL: finalURL}
	return m.writeDocument(ctx, msg, filter, doc, dir, name)
}

// writeDocument converts doc to the filter's target format at a
// collision-free path under dir, prepending frontmatter for markdown
// output when the filter configures it.
func (m *Materializer) writeDocument(ctx context.Context, msg model.Message, filter model.Filter, doc convert.Document, dir, name string) (Result, error) {
	if filter.TargetFormat == model.FormatMarkdown && len(filter.MarkdownConfig) > 0 {
		fm, err := frontmatter.Generate(filter.MarkdownConfig, frontmatter.Fields{
			From:    msg.From,
			To:      strings.Join(msg.To, ", "),
			Subject: msg.Subject,
			Date:    msg.Date,
		})
		if err != nil {
			return Result{}, fmt.Errorf("generating frontmatter: %w", err)
		}
		doc.Frontmatter = fm
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := sanitize.UniquePath(dir, name)
	if err := m.converter.Convert(ctx, doc, path, filter.TargetFormat); err != nil {
		return Result{}, err
	}

	m.logger.Importantf("created %s", path)
	return Result{Count: 1, Paths: []string{path}}, nil
}

// firstURL returns the first absolute HTTP(S) URL in body starting
// with prefix, or "" when none matches.
func firstURL(body, prefix string) string {
	for _, candidate := range urlPattern.FindAllString(body, -1) {
		if strings.HasPrefix(candidate, prefix) {
			return candidate
		}
	}
	return ""
}
