// Package testutil provides shared test fakes for the processing
// pipeline.
package testutil

import (
	"context"
	"fmt"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/mailbox"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// FakeSession is an in-memory mailbox.Session recording every
// operation performed on it.
type FakeSession struct {
	// Unread is returned by UnreadUIDs.
	Unread []uint32

	// Messages maps UIDs to the messages Fetch returns.
	Messages map[uint32]*model.Message

	// FolderList is returned by Folders.
	FolderList []string

	// FetchErr, when set, fails every Fetch call.
	FetchErr error

	// Seen records UIDs marked read, in order.
	Seen []uint32

	// Moved records where each UID was moved.
	Moved map[uint32]string

	// Created records folders created, in order.
	Created []string

	// Closed reports whether Close was called.
	Closed bool
}

// NewFakeSession creates an empty FakeSession.
func NewFakeSession() *FakeSession {
	return &FakeSession{
		Messages: make(map[uint32]*model.Message),
		Moved:    make(map[uint32]string),
	}
}

// Dial returns a mailbox.DialFunc handing out this session for every
// account.
func (s *FakeSession) Dial() mailbox.DialFunc {
	return func(_ context.Context, _ model.Account, _ *logging.Logger) (mailbox.Session, error) {
		return s, nil
	}
}

func (s *FakeSession) UnreadUIDs(_ context.Context) ([]uint32, error) {
	return s.Unread, nil
}

func (s *FakeSession) Fetch(_ context.Context, uid uint32) (*model.Message, error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	msg, ok := s.Messages[uid]
	if !ok {
		return nil, fmt.Errorf("message UID %d not found", uid)
	}
	return msg, nil
}

func (s *FakeSession) MarkSeen(_ context.Context, uid uint32) error {
	s.Seen = append(s.Seen, uid)
	return nil
}

func (s *FakeSession) Folders(_ context.Context) ([]string, error) {
	return s.FolderList, nil
}

func (s *FakeSession) CreateFolder(_ context.Context, name string) error {
	s.Created = append(s.Created, name)
	s.FolderList = append(s.FolderList, name)
	return nil
}

func (s *FakeSession) Move(_ context.Context, uid uint32, folder string) error {
	s.Moved[uid] = folder
	return nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}
