// Package match evaluates messages against the ordered filter list.
// Evaluation is side-effect-free; the first matching filter wins.
package match

import "github.com/BenjaminKobjolke/imap-file-mover/internal/model"

// First returns the index of the first filter whose account, sender,
// and subject criteria all accept msg, or (-1, false) when none do.
// Later filters are never evaluated after a hit.
func First(msg model.Message, filters []model.Filter) (int, bool) {
	for i, filter := range filters {
		if filter.MatchesMessage(msg) {
			return i, true
		}
	}
	return -1, false
}

// Attachments returns the attachments of msg passing the filter's
// per-attachment criteria, in MIME order.
func Attachments(msg model.Message, filter model.Filter) []model.Attachment {
	var matched []model.Attachment
	for _, att := range msg.Attachments {
		if filter.MatchesAttachment(att) {
			matched = append(matched, att)
		}
	}
	return matched
}
