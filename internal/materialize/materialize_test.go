package materialize

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/convert"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

type fakeFetcher struct {
	finalURL string
	page     string
	err      error
	requests []string
}

func (f *fakeFetcher) Get(_ context.Context, url string) (string, string, error) {
	f.requests = append(f.requests, url)
	if f.err != nil {
		return "", "", f.err
	}
	return f.finalURL, f.page, nil
}

type fakeConverter struct {
	docs    []convert.Document
	paths   []string
	formats []string
	err     error
}

func (c *fakeConverter) Convert(_ context.Context, doc convert.Document, outPath, format string) error {
	c.docs = append(c.docs, doc)
	c.paths = append(c.paths, outPath)
	c.formats = append(c.formats, format)
	if c.err != nil {
		return c.err
	}
	return os.WriteFile(outPath, []byte("converted"), 0o644)
}

func newMaterializer(fetcher *fakeFetcher, converter *fakeConverter) *Materializer {
	return New(logging.Nop(), fetcher, converter)
}

func baseMessage() model.Message {
	return model.Message{
		UID:     42,
		Account: "work",
		From:    "a@b.com",
		To:      []string{"me@example.com"},
		Subject: "Monthly report",
		Date:    time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestRunAttachment(t *testing.T) {
	ctx := context.Background()

	t.Run("saves matching attachments verbatim", func(t *testing.T) {
		dir := t.TempDir()
		msg := baseMessage()
		msg.Attachments = []model.Attachment{
			{Filename: "report.PDF", Data: []byte("pdf-bytes")},
			{Filename: "notes.txt", Data: []byte("text")},
		}

		result, err := newMaterializer(nil, nil).Run(ctx, msg, model.Account{TargetFolder: dir},
			model.Filter{Action: model.ActionAttachment, AttachmentExtension: "pdf"})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Count)
		require.Len(t, result.Paths, 1)

		data, err := os.ReadFile(result.Paths[0])
		require.NoError(t, err)
		assert.Equal(t, []byte("pdf-bytes"), data)
	})

	t.Run("collision appends a numeric suffix", func(t *testing.T) {
		dir := t.TempDir()
		msg := baseMessage()
		msg.Attachments = []model.Attachment{{Filename: "a.txt", Data: []byte("one")}}
		account := model.Account{TargetFolder: dir}
		filter := model.Filter{Action: model.ActionAttachment, AttachmentExtension: "txt"}

		m := newMaterializer(nil, nil)
		_, err := m.Run(ctx, msg, account, filter)
		require.NoError(t, err)

		result, err := m.Run(ctx, msg, account, filter)
		require.NoError(t, err)

		assert.Equal(t, filepath.Join(dir, "a_1.txt"), result.Paths[0])
		assert.FileExists(t, filepath.Join(dir, "a.txt"))
	})

	t.Run("zero matching attachments yields count zero", func(t *testing.T) {
		msg := baseMessage()
		msg.Attachments = []model.Attachment{{Filename: "notes.txt"}}

		result, err := newMaterializer(nil, nil).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionAttachment, AttachmentExtension: "pdf"})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Count)
	})

	t.Run("filter target folder overrides the account default", func(t *testing.T) {
		accountDir := t.TempDir()
		filterDir := t.TempDir()
		msg := baseMessage()
		msg.Attachments = []model.Attachment{{Filename: "a.txt", Data: []byte("x")}}

		result, err := newMaterializer(nil, nil).Run(ctx, msg, model.Account{TargetFolder: accountDir},
			model.Filter{Action: model.ActionAttachment, AttachmentExtension: "txt", TargetFolder: filterDir})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(filterDir, "a.txt"), result.Paths[0])
	})
}

func TestRunBody(t *testing.T) {
	ctx := context.Background()

	t.Run("html body converts to pdf", func(t *testing.T) {
		dir := t.TempDir()
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.HTMLBody = "<html><body>hello</body></html>"

		result, err := newMaterializer(nil, converter).Run(ctx, msg, model.Account{TargetFolder: dir},
			model.Filter{Action: model.ActionBody, TargetFormat: model.FormatPDF})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Count)
		require.Len(t, converter.docs, 1)
		assert.Equal(t, msg.HTMLBody, converter.docs[0].HTML)
		assert.Equal(t, filepath.Join(dir, "2024-03-15_Monthly report.pdf"), result.Paths[0])
	})

	t.Run("plain-text body cannot become a pdf", func(t *testing.T) {
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.TextBody = "just words"

		result, err := newMaterializer(nil, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionBody, TargetFormat: model.FormatPDF})
		require.NoError(t, err)

		assert.Equal(t, 0, result.Count)
		assert.Empty(t, converter.docs)
	})

	t.Run("plain-text body is wrapped for markdown", func(t *testing.T) {
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.TextBody = "just words"

		result, err := newMaterializer(nil, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionBody, TargetFormat: model.FormatMarkdown})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Count)
		require.Len(t, converter.docs, 1)
		assert.Equal(t, "<html><body>just words</body></html>", converter.docs[0].HTML)
	})

	t.Run("html body preferred over plain text", func(t *testing.T) {
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.TextBody = "plain"
		msg.HTMLBody = "<p>rich</p>"

		_, err := newMaterializer(nil, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionBody, TargetFormat: model.FormatMarkdown})
		require.NoError(t, err)
		assert.Equal(t, "<p>rich</p>", converter.docs[0].HTML)
	})

	t.Run("empty body produces nothing", func(t *testing.T) {
		converter := &fakeConverter{}

		result, err := newMaterializer(nil, converter).Run(ctx, baseMessage(), model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionBody, TargetFormat: model.FormatMarkdown})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Count)
		assert.Empty(t, converter.docs)
	})

	t.Run("markdown config becomes frontmatter", func(t *testing.T) {
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.HTMLBody = "<p>x</p>"

		filter := model.Filter{
			Action:       model.ActionBody,
			TargetFormat: model.FormatMarkdown,
			MarkdownConfig: model.Properties{
				{Key: "source", Value: "[email_from]"},
			},
		}

		_, err := newMaterializer(nil, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()}, filter)
		require.NoError(t, err)

		require.Len(t, converter.docs, 1)
		assert.Contains(t, converter.docs[0].Frontmatter, "source: a@b.com")
	})
}

func TestRunURL(t *testing.T) {
	ctx := context.Background()

	t.Run("fetches the first url matching the prefix", func(t *testing.T) {
		fetcher := &fakeFetcher{finalURL: "https://x.example/doc-final", page: "<html>page</html>"}
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.TextBody = "see https://x.example/doc and https://other.com/y and https://x.example/second"

		result, err := newMaterializer(fetcher, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionURL, URLPrefix: "https://x.example", TargetFormat: model.FormatPDF})
		require.NoError(t, err)

		assert.Equal(t, 1, result.Count)
		assert.Equal(t, []string{"https://x.example/doc"}, fetcher.requests)
		require.Len(t, converter.docs, 1)
		assert.Equal(t, "<html>page</html>", converter.docs[0].HTML)
		assert.Equal(t, "https://x.example/doc-final", converter.docs[0].BaseURL)
	})

	t.Run("no matching url produces nothing", func(t *testing.T) {
		fetcher := &fakeFetcher{}
		msg := baseMessage()
		msg.TextBody = "see https://other.com/y"

		result, err := newMaterializer(fetcher, &fakeConverter{}).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionURL, URLPrefix: "https://x.example", TargetFormat: model.FormatPDF})
		require.NoError(t, err)

		assert.Equal(t, 0, result.Count)
		assert.Empty(t, fetcher.requests)
	})

	t.Run("fetch failure aborts without artifacts", func(t *testing.T) {
		fetcher := &fakeFetcher{err: errors.New("boom")}
		converter := &fakeConverter{}
		msg := baseMessage()
		msg.TextBody = "https://x.example/doc"

		result, err := newMaterializer(fetcher, converter).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionURL, URLPrefix: "https://x.example", TargetFormat: model.FormatPDF})
		require.Error(t, err)
		assert.Equal(t, 0, result.Count)
		assert.Empty(t, converter.docs)
	})

	t.Run("plain text preferred over html for url scan", func(t *testing.T) {
		fetcher := &fakeFetcher{finalURL: "f", page: "p"}
		msg := baseMessage()
		msg.TextBody = "https://x.example/from-text"
		msg.HTMLBody = `<a href="https://x.example/from-html">link</a>`

		_, err := newMaterializer(fetcher, &fakeConverter{}).Run(ctx, msg, model.Account{TargetFolder: t.TempDir()},
			model.Filter{Action: model.ActionURL, URLPrefix: "https://x.example", TargetFormat: model.FormatPDF})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://x.example/from-text"}, fetcher.requests)
	})
}

func TestRunUnknownAction(t *testing.T) {
	_, err := newMaterializer(nil, nil).Run(context.Background(), baseMessage(),
		model.Account{TargetFolder: t.TempDir()}, model.Filter{Action: "teleport"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown filter action")
}
