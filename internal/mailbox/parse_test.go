package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// rawMessage joins the lines with CRLF as the wire format requires.
func rawMessage(lines ...string) []byte {
	return []byte(strings.Join(lines, "\r\n"))
}

func TestParseBody(t *testing.T) {
	t.Run("multipart message with attachment", func(t *testing.T) {
		raw := rawMessage(
			"From: Alice <alice@example.com>",
			"To: bob@example.com",
			"Subject: Hello",
			"MIME-Version: 1.0",
			`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
			"",
			"--BOUNDARY",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"plain body",
			"--BOUNDARY",
			"Content-Type: text/html; charset=utf-8",
			"",
			"<p>html body</p>",
			"--BOUNDARY",
			"Content-Type: application/pdf",
			`Content-Disposition: attachment; filename="report.pdf"`,
			"Content-Transfer-Encoding: base64",
			"",
			"JVBERi0=",
			"--BOUNDARY--",
			"",
		)

		var msg model.Message
		parseBody(raw, &msg)

		assert.Equal(t, "plain body", strings.TrimSpace(msg.TextBody))
		assert.Equal(t, "<p>html body</p>", strings.TrimSpace(msg.HTMLBody))

		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "report.pdf", msg.Attachments[0].Filename)
		assert.Equal(t, "application/pdf", msg.Attachments[0].ContentType)
		assert.Equal(t, []byte("%PDF-"), msg.Attachments[0].Data)
	})

	t.Run("named part without disposition is an attachment", func(t *testing.T) {
		raw := rawMessage(
			"From: alice@example.com",
			"Subject: Inline image",
			"MIME-Version: 1.0",
			`Content-Type: multipart/mixed; boundary="BOUNDARY"`,
			"",
			"--BOUNDARY",
			`Content-Type: image/png; name="chart.png"`,
			"Content-Transfer-Encoding: base64",
			"",
			"iVBORw==",
			"--BOUNDARY--",
			"",
		)

		var msg model.Message
		parseBody(raw, &msg)

		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "chart.png", msg.Attachments[0].Filename)
		assert.Empty(t, msg.TextBody)
	})

	t.Run("plain single-part message", func(t *testing.T) {
		raw := rawMessage(
			"From: alice@example.com",
			"Subject: Plain",
			"Content-Type: text/plain; charset=utf-8",
			"",
			"only text here",
		)

		var msg model.Message
		parseBody(raw, &msg)

		assert.Equal(t, "only text here", strings.TrimSpace(msg.TextBody))
		assert.Empty(t, msg.Attachments)
	})

	t.Run("unparseable message keeps only the payload, not headers", func(t *testing.T) {
		raw := rawMessage(
			"From: alice@example.com",
			"this line is no valid header",
			"",
			"the actual body with https://x.example/doc",
		)

		var msg model.Message
		parseBody(raw, &msg)

		assert.Equal(t, "the actual body with https://x.example/doc", msg.TextBody)
		assert.NotContains(t, msg.TextBody, "alice@example.com")
	})

	t.Run("unparseable bytes without a header separator yield no body", func(t *testing.T) {
		raw := []byte("not a mime message at all")

		var msg model.Message
		parseBody(raw, &msg)

		assert.Empty(t, msg.TextBody)
	})
}
