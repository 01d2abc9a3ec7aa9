// Package mover drives the processing cycle: it walks the configured
// accounts, matches unread messages against the filter list, hands
// matches to the materializer, and marks or moves processed messages.
package mover

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/mailbox"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/match"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/materialize"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// Materializer executes a filter action against a matched message.
// *materialize.Materializer satisfies it.
type Materializer interface {
	Run(ctx context.Context, msg model.Message, account model.Account, filter model.Filter) (materialize.Result, error)
}

// Mover runs the account scan cycle. Accounts are processed one at a
// time, messages within an account one at a time; failures are
// isolated per message and per account.
type Mover struct {
	settings     *model.Settings
	logger       *logging.Logger
	dial         mailbox.DialFunc
	materializer Materializer
}

// New creates a Mover. The dialer is injected so tests can drive the
// cycle against a fake session.
func New(settings *model.Settings, logger *logging.Logger, dial mailbox.DialFunc, materializer Materializer) *Mover {
	return &Mover{
		settings:     settings,
		logger:       logger,
		dial:         dial,
		materializer: materializer,
	}
}

// Run executes scan cycles until ctx is cancelled. A configured
// check interval of zero or less runs exactly one cycle and returns.
func (m *Mover) Run(ctx context.Context) error {
	interval := time.Duration(m.settings.CheckIntervalMinutes) * time.Minute

	for {
		m.runCycle(ctx)

		if interval <= 0 {
			return nil
		}

		m.logger.Infof("sleeping %s until the next cycle", interval)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// runCycle processes every account once. Each cycle carries a
// correlation ID in its log fields.
func (m *Mover) runCycle(ctx context.Context) {
	logger := m.logger.With("cycle", uuid.New().String())
	logger.Infof("starting cycle over %d accounts", len(m.settings.Accounts))

	for _, account := range m.settings.Accounts {
		if ctx.Err() != nil {
			return
		}
		m.processAccount(ctx, logger, account)
	}

	logger.Infof("cycle complete")
}

// processAccount scans one account's unread messages. Connection
// failures skip the account for this cycle; other accounts still run.
func (m *Mover) processAccount(ctx context.Context, logger *logging.Logger, account model.Account) {
	logger = logger.With("account", account.Name)

	session, err := m.dial(ctx, account, logger)
	if err != nil {
		logger.Errorf("skipping account: %v", err)
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warnf("closing session: %v", err)
		}
	}()

	uids, err := session.UnreadUIDs(ctx)
	if err != nil {
		logger.Errorf("listing unread messages: %v", err)
		return
	}
	if len(uids) == 0 {
		logger.Debugf("no unread messages")
		return
	}

	logger.Infof("processing %d unread messages", len(uids))
	for _, uid := range uids {
		if ctx.Err() != nil {
			return
		}
		m.processMessage(ctx, logger, session, account, uid)
	}
}

// processMessage fetches one message, finds its first matching filter,
// and materializes the match. The message is marked read, and moved
// when the account configures a move folder, only when at least one
// artifact was produced. Errors leave the message unread so the next
// cycle retries it.
func (m *Mover) processMessage(ctx context.Context, logger *logging.Logger, session mailbox.Session, account model.Account, uid uint32) {
	msg, err := session.Fetch(ctx, uid)
	if err != nil {
		logger.Errorf("fetching message %d: %v", uid, err)
		return
	}

	idx, ok := match.First(*msg, m.settings.Filters)
	if !ok {
		logger.Debugf("message %d (%q): no filter matches", uid, msg.Subject)
		return
	}

	result, err := m.materializer.Run(ctx, *msg, account, m.settings.Filters[idx])
	if err != nil {
		logger.Errorf("message %d, filter %d: %v", uid, idx, err)
		return
	}
	if result.Count == 0 {
		logger.Debugf("message %d, filter %d: nothing produced, leaving unread", uid, idx)
		return
	}

	if err := session.MarkSeen(ctx, uid); err != nil {
		logger.Errorf("marking message %d read: %v", uid, err)
		return
	}
	logger.Importantf("marked message %d (%q) read after %d artifacts", uid, msg.Subject, result.Count)

	if account.MoveFolder == "" {
		return
	}
	if err := m.moveMessage(ctx, session, account.MoveFolder, uid); err != nil {
		logger.Errorf("moving message %d: %v", uid, err)
		return
	}
	logger.Importantf("moved message %d to %s", uid, account.MoveFolder)
}

// moveMessage moves the message into folder, creating the folder
// first when the mailbox does not have it yet.
func (m *Mover) moveMessage(ctx context.Context, session mailbox.Session, folder string, uid uint32) error {
	folders, err := session.Folders(ctx)
	if err != nil {
		return err
	}

	found := false
	for _, name := range folders {
		if name == folder {
			found = true
			break
		}
	}
	if !found {
		if err := session.CreateFolder(ctx, folder); err != nil {
			return err
		}
		m.logger.Importantf("created folder %s", folder)
	}

	return session.Move(ctx, uid, folder)
}
