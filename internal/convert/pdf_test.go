package convert

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
)

func TestFindRenderer(t *testing.T) {
	t.Run("prefers the configured path", func(t *testing.T) {
		dir := t.TempDir()
		bin := filepath.Join(dir, "wkhtmltopdf")
		require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

		c := New(logging.Nop(), &fakeDownloader{}, bin)

		found, err := c.findRenderer()
		require.NoError(t, err)
		assert.Equal(t, bin, found)
	})

	t.Run("missing configured path is never returned", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "nope", "wkhtmltopdf")

		c := New(logging.Nop(), &fakeDownloader{}, missing)

		// The search falls through to well-known locations and PATH;
		// whether those yield a hit depends on the host, but the dead
		// configured path must not come back.
		found, err := c.findRenderer()
		if err == nil {
			assert.NotEqual(t, missing, found)
		}
	})
}

func TestInjectBase(t *testing.T) {
	t.Run("adds base into head", func(t *testing.T) {
		out := injectBase(
			"<html><head><title>t</title></head><body>x</body></html>",
			"https://example.com/dir/",
		)

		assert.Contains(t, out, `<base href="https://example.com/dir/"/>`)
		assert.Less(t, strings.Index(out, "<base"), strings.Index(out, "<title"))
	})

	t.Run("keeps an existing base", func(t *testing.T) {
		in := `<html><head><base href="https://orig.test/"/></head><body>x</body></html>`

		out := injectBase(in, "https://other.test/")
		assert.Equal(t, in, out)
	})

	t.Run("creates head when markup has none", func(t *testing.T) {
		out := injectBase("<p>bare fragment</p>", "https://example.com/")
		assert.Contains(t, out, `<base href="https://example.com/"/>`)
	})
}
