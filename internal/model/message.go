package model

import "time"

// Message is an immutable, already-parsed mail message. Messages are
// constructed per fetch, consumed once, and discarded.
type Message struct {
	// UID is the message's IMAP UID within its mailbox.
	UID uint32

	// Account is the name of the account the message arrived on.
	Account string

	// From is the decoded From header.
	From string

	// To holds the decoded recipient addresses.
	To []string

	// Subject is the decoded subject line.
	Subject string

	// Date is the parsed Date header; zero when the header was missing
	// or unparseable.
	Date time.Time

	// TextBody is the decoded text/plain body, possibly empty.
	TextBody string

	// HTMLBody is the decoded text/html body, possibly empty.
	HTMLBody string

	// Attachments holds the message attachments in MIME order.
	Attachments []Attachment
}

// Body returns the message body for the given content type
// ("text/plain" or "text/html"), or "" when that part is absent.
func (m Message) Body(contentType string) string {
	switch contentType {
	case "text/html":
		return m.HTMLBody
	case "text/plain":
		return m.TextBody
	}
	return ""
}

// Timestamp returns the message date, falling back to the current time
// when the Date header was missing or unparseable.
func (m Message) Timestamp() time.Time {
	if m.Date.IsZero() {
		return time.Now()
	}
	return m.Date
}

// Attachment is one file attached to a message.
type Attachment struct {
	// Filename is the decoded attachment filename, possibly empty.
	Filename string

	// ContentType is the MIME type of the attachment.
	ContentType string

	// Data holds the decoded attachment bytes.
	Data []byte
}
