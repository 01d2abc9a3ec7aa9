package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

func newMessage() model.Message {
	return model.Message{
		UID:     7,
		Account: "work",
		From:    "Invoices <billing@vendor.example>",
		Subject: "Invoice 2024-03 for project X",
		Attachments: []model.Attachment{
			{Filename: "Invoice-March.PDF", ContentType: "application/pdf"},
			{Filename: "terms.txt", ContentType: "text/plain"},
		},
	}
}

func TestFirst(t *testing.T) {
	t.Run("first match wins", func(t *testing.T) {
		filters := []model.Filter{
			{Sender: "billing@vendor.example"},
			{Subject: "Invoice"},
		}

		idx, ok := First(newMessage(), filters)
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})

	t.Run("skips non-matching filters", func(t *testing.T) {
		filters := []model.Filter{
			{Sender: "noreply@other.example"},
			{Subject: "Invoice"},
		}

		idx, ok := First(newMessage(), filters)
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("no filter matches", func(t *testing.T) {
		filters := []model.Filter{
			{Sender: "noreply@other.example"},
			{Subject: "Newsletter"},
		}

		idx, ok := First(newMessage(), filters)
		assert.False(t, ok)
		assert.Equal(t, -1, idx)
	})

	t.Run("sender match is a case-sensitive substring", func(t *testing.T) {
		matched, ok := First(newMessage(), []model.Filter{{Sender: "vendor.example"}})
		assert.True(t, ok)
		assert.Equal(t, 0, matched)

		_, ok = First(newMessage(), []model.Filter{{Sender: "BILLING@vendor.example"}})
		assert.False(t, ok)
	})

	t.Run("subject match is a case-sensitive substring", func(t *testing.T) {
		_, ok := First(newMessage(), []model.Filter{{Subject: "project X"}})
		assert.True(t, ok)

		_, ok = First(newMessage(), []model.Filter{{Subject: "PROJECT x"}})
		assert.False(t, ok)
	})

	t.Run("sender and subject must both pass", func(t *testing.T) {
		_, ok := First(newMessage(), []model.Filter{
			{Sender: "billing@vendor.example", Subject: "Newsletter"},
		})
		assert.False(t, ok)
	})

	t.Run("account-scoped filter never matches other accounts", func(t *testing.T) {
		msg := newMessage()
		msg.Account = "home"

		_, ok := First(msg, []model.Filter{{Account: "work", Subject: "Invoice"}})
		assert.False(t, ok)
	})

	t.Run("account restriction skips rather than terminates", func(t *testing.T) {
		msg := newMessage()

		idx, ok := First(msg, []model.Filter{
			{Account: "home", Subject: "Invoice"},
			{Account: "work", Subject: "Invoice"},
		})
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("criterion-free filter matches everything", func(t *testing.T) {
		idx, ok := First(newMessage(), []model.Filter{{}})
		assert.True(t, ok)
		assert.Equal(t, 0, idx)
	})
}

func TestAttachments(t *testing.T) {
	t.Run("extension match is case-insensitive", func(t *testing.T) {
		got := Attachments(newMessage(), model.Filter{AttachmentExtension: "pdf"})

		assert.Len(t, got, 1)
		assert.Equal(t, "Invoice-March.PDF", got[0].Filename)
	})

	t.Run("extension accepts a leading dot", func(t *testing.T) {
		got := Attachments(newMessage(), model.Filter{AttachmentExtension: ".pdf"})
		assert.Len(t, got, 1)
	})

	t.Run("name match is a case-insensitive substring", func(t *testing.T) {
		got := Attachments(newMessage(), model.Filter{AttachmentName: "invoice"})

		assert.Len(t, got, 1)
		assert.Equal(t, "Invoice-March.PDF", got[0].Filename)
	})

	t.Run("name and extension must both pass", func(t *testing.T) {
		got := Attachments(newMessage(), model.Filter{
			AttachmentExtension: "txt",
			AttachmentName:      "invoice",
		})
		assert.Empty(t, got)
	})

	t.Run("no criteria keeps every attachment", func(t *testing.T) {
		got := Attachments(newMessage(), model.Filter{})
		assert.Len(t, got, 2)
	})

	t.Run("extension does not match mid-name", func(t *testing.T) {
		msg := model.Message{Attachments: []model.Attachment{
			{Filename: "report.pdf.exe"},
		}}

		got := Attachments(msg, model.Filter{AttachmentExtension: "pdf"})
		assert.Empty(t, got)
	})
}
