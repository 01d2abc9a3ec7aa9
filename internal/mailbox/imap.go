package mailbox

import (
	"context"
	"fmt"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// imapSession implements Session over a single connected go-imap
// client with INBOX selected. One session serves one account for one
// cycle; it is not safe for concurrent use.
type imapSession struct {
	client  *imapclient.Client
	account model.Account
	logger  *logging.Logger
}

// Dial connects to the account's IMAP server, authenticates, and
// selects INBOX. Connection and authentication failures are
// ConnectionErrors; the cycle skips the account and moves on.
func Dial(_ context.Context, account model.Account, logger *logging.Logger) (Session, error) {
	addr := account.Addr()

	var client *imapclient.Client
	var err error

	if account.UseSSL {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, &ConnectionError{
			Account: account.Name,
			Err:     fmt.Errorf("dialing %s: %w", addr, err),
		}
	}

	if err := client.Login(account.Username, account.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &ConnectionError{
			Account: account.Name,
			Err:     fmt.Errorf("logging in as %s: %w", account.Username, err),
		}
	}

	if _, err := client.Select("INBOX", nil).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &ConnectionError{
			Account: account.Name,
			Err:     fmt.Errorf("selecting INBOX: %w", err),
		}
	}

	logger.Debugf("connected to %s as %s", addr, account.Username)

	return &imapSession{
		client:  client,
		account: account,
		logger:  logger,
	}, nil
}

// UnreadUIDs searches INBOX for messages without the \Seen flag.
func (s *imapSession) UnreadUIDs(_ context.Context) ([]uint32, error) {
	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching unread messages: %w", err)
	}

	var uids []uint32
	for _, uid := range data.AllUIDs() {
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}

// Fetch retrieves the message's envelope and raw body and parses them
// into a Message. The body section is fetched with Peek so fetching
// never sets \Seen by itself.
func (s *imapSession) Fetch(_ context.Context, uid uint32) (*model.Message, error) {
	uidSet := imap.UIDSetNum(imap.UID(uid))

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := s.client.Fetch(uidSet, fetchOpts)
	defer fetchCmd.Close()

	buf := fetchCmd.Next()
	if buf == nil {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}

	collected, err := buf.Collect()
	if err != nil {
		return nil, fmt.Errorf("collecting message UID %d: %w", uid, err)
	}

	msg := &model.Message{
		UID:     uid,
		Account: s.account.Name,
	}
	if env := collected.Envelope; env != nil {
		msg.Subject = env.Subject
		msg.Date = env.Date
		if len(env.From) > 0 {
			msg.From = formatAddress(env.From[0])
		}
		for _, to := range env.To {
			msg.To = append(msg.To, to.Addr())
		}
	}

	if raw := collected.FindBodySection(bodySection); raw != nil {
		parseBody(raw, msg)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, fmt.Errorf("fetching message UID %d: %w", uid, err)
	}

	return msg, nil
}

// MarkSeen adds the \Seen flag to the message.
func (s *imapSession) MarkSeen(_ context.Context, uid uint32) error {
	uidSet := imap.UIDSetNum(imap.UID(uid))

	cmd := s.client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagSeen},
	}, nil)

	if err := cmd.Close(); err != nil {
		return fmt.Errorf("marking UID %d seen: %w", uid, err)
	}
	return nil
}

// Folders lists the mailbox folder names.
func (s *imapSession) Folders(_ context.Context) ([]string, error) {
	listCmd := s.client.List("", "*", nil)

	mailboxes, err := listCmd.Collect()
	if err != nil {
		return nil, fmt.Errorf("listing folders: %w", err)
	}

	var names []string
	for _, mbox := range mailboxes {
		names = append(names, mbox.Mailbox)
	}
	return names, nil
}

// CreateFolder creates a mailbox folder.
func (s *imapSession) CreateFolder(_ context.Context, name string) error {
	if err := s.client.Create(name, nil).Wait(); err != nil {
		return fmt.Errorf("creating folder %s: %w", name, err)
	}
	return nil
}

// Move transfers the message into the named folder.
func (s *imapSession) Move(_ context.Context, uid uint32, folder string) error {
	uidSet := imap.UIDSetNum(imap.UID(uid))

	if _, err := s.client.Move(uidSet, folder).Wait(); err != nil {
		return fmt.Errorf("moving UID %d to %s: %w", uid, folder, err)
	}
	return nil
}

// Close logs out and releases the connection.
func (s *imapSession) Close() error {
	if err := s.client.Logout().Wait(); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}
	return nil
}

// formatAddress renders an envelope address as "Name <addr>" when a
// display name is present, else the bare address.
func formatAddress(addr imap.Address) string {
	if addr.Name != "" {
		return fmt.Sprintf("%s <%s>", addr.Name, addr.Addr())
	}
	return addr.Addr()
}
