package mailbox

import (
	"bytes"
	"io"
	"strings"

	// Registers decoders for non-UTF-8 message charsets.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// parseBody walks the raw RFC 822 message and fills msg's bodies and
// attachments. Inline text parts become the plain and HTML bodies;
// parts with a Content-Disposition of attachment, or any part carrying
// a filename even without one, become attachments. A message that
// cannot be parsed as MIME keeps only its payload after the header
// block as a plain-text body, so filters never scan header text.
func parseBody(raw []byte, msg *model.Message) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		msg.TextBody = rawPayload(raw)
		return
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, params, _ := h.ContentType()

			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			// A named inline part is an attachment in disguise.
			if name := params["name"]; name != "" {
				msg.Attachments = append(msg.Attachments, model.Attachment{
					Filename:    name,
					ContentType: contentType,
					Data:        data,
				})
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				msg.TextBody = string(data)
			case strings.HasPrefix(contentType, "text/html"):
				msg.HTMLBody = string(data)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			data, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			msg.Attachments = append(msg.Attachments, model.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Data:        data,
			})
		}
	}
}

// rawPayload returns the body of a raw message that could not be
// parsed as MIME: everything after the first blank line, or "" when
// the bytes have no header/body separator.
func rawPayload(raw []byte) string {
	for _, sep := range []string{"\r\n\r\n", "\n\n"} {
		if _, body, found := strings.Cut(string(raw), sep); found {
			return body
		}
	}
	return ""
}
