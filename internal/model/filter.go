package model

import "strings"

// ActionType selects what a matched filter materializes.
type ActionType string

const (
	// ActionAttachment saves matching attachments verbatim.
	ActionAttachment ActionType = "attachment"

	// ActionURL fetches a link found in the message body and converts
	// the fetched page to a document.
	ActionURL ActionType = "url"

	// ActionBody converts the message body itself to a document.
	ActionBody ActionType = "body"
)

// Output formats for converted documents.
const (
	FormatPDF      = "pdf"
	FormatMarkdown = "md"
)

// Filter is one ordered rule pairing match criteria with a
// materialization action. Filters are evaluated in configuration order;
// the first filter whose message criteria pass wins.
type Filter struct {
	// Account restricts the filter to the named account. Empty applies
	// to every account.
	Account string `mapstructure:"account" json:"account"`

	// Sender must be contained in the message From header
	// (case-sensitive). Empty matches any sender.
	Sender string `mapstructure:"sender" json:"sender"`

	// Subject must be contained in the message subject
	// (case-sensitive). Empty matches any subject.
	Subject string `mapstructure:"subject" json:"subject"`

	// AttachmentExtension matches attachment filenames by the suffix
	// ".<ext>", case-insensitive. Empty matches any extension.
	AttachmentExtension string `mapstructure:"attachment_extension" json:"attachment_extension"`

	// AttachmentName must be contained in the attachment filename,
	// case-insensitive. Empty matches any name.
	AttachmentName string `mapstructure:"attachment_name" json:"attachment_name"`

	// Action selects the materialization performed on a match
	// (default attachment).
	Action ActionType `mapstructure:"attachment_type" json:"attachment_type"`

	// TargetFormat is the output document format for url and body
	// actions: "pdf" (default) or "md".
	TargetFormat string `mapstructure:"target_format" json:"target_format"`

	// TargetFolder overrides the account's default output directory.
	TargetFolder string `mapstructure:"target_folder" json:"target_folder"`

	// URLPrefix selects which body URL to fetch for url actions; the
	// first URL starting with this prefix is used.
	URLPrefix string `mapstructure:"url_prefix" json:"url_prefix"`

	// URLToAttachment is the legacy spelling of URLPrefix. When set on
	// a filter without an explicit attachment_type, the filter is
	// treated as a url action with this prefix.
	URLToAttachment string `mapstructure:"url_to_attachment" json:"url_to_attachment"`

	// MarkdownConfig holds frontmatter properties prepended to markdown
	// output, in configuration order. String values may contain
	// [email_*] placeholders. Decoded separately from the raw settings
	// file so key order survives.
	MarkdownConfig Properties `mapstructure:"-" json:"markdown_config"`
}

// MatchesMessage reports whether the filter's account, sender, and
// subject criteria all accept the message.
func (f Filter) MatchesMessage(msg Message) bool {
	if f.Account != "" && f.Account != msg.Account {
		return false
	}
	if f.Sender != "" && !strings.Contains(msg.From, f.Sender) {
		return false
	}
	if f.Subject != "" && !strings.Contains(msg.Subject, f.Subject) {
		return false
	}
	return true
}

// MatchesAttachment reports whether an attachment passes the filter's
// extension and name criteria. Both checks are case-insensitive and
// both must pass when set.
func (f Filter) MatchesAttachment(att Attachment) bool {
	name := strings.ToLower(att.Filename)

	if f.AttachmentExtension != "" {
		ext := "." + strings.ToLower(strings.TrimPrefix(f.AttachmentExtension, "."))
		if !strings.HasSuffix(name, ext) {
			return false
		}
	}

	if f.AttachmentName != "" {
		if !strings.Contains(name, strings.ToLower(f.AttachmentName)) {
			return false
		}
	}

	return true
}
