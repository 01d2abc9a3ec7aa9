// Package mailbox provides the narrow mail-session capability the
// processing pipeline consumes: list unread, fetch, mark read, and
// folder management over IMAP.
package mailbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// ConnectionError indicates that an account's mailbox could not be
// reached or authenticated. The cycle skips the account and continues
// with the others.
type ConnectionError struct {
	Account string
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connecting to account %s: %v", e.Account, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is
// a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// Session is the mailbox capability set. Implementations own the
// protocol; callers wrap the operations with their own logging rather
// than overriding behavior.
type Session interface {
	// UnreadUIDs lists the UIDs of unseen INBOX messages.
	UnreadUIDs(ctx context.Context) ([]uint32, error)

	// Fetch retrieves and parses one message without marking it read.
	Fetch(ctx context.Context, uid uint32) (*model.Message, error)

	// MarkSeen flags the message as read.
	MarkSeen(ctx context.Context, uid uint32) error

	// Folders lists the mailbox folder names.
	Folders(ctx context.Context) ([]string, error)

	// CreateFolder creates a mailbox folder.
	CreateFolder(ctx context.Context, name string) error

	// Move transfers the message into the named folder.
	Move(ctx context.Context, uid uint32, folder string) error

	// Close logs out and releases the connection.
	Close() error
}

// DialFunc opens a Session for an account. Dial is the production
// implementation; tests substitute fakes.
type DialFunc func(ctx context.Context, account model.Account, logger *logging.Logger) (Session, error)
