// Package credential stores IMAP account passwords in the system
// keyring, so they can stay out of settings.json.
package credential

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "imap-file-mover"

// Overridable so tests can pin the file backend to a temp directory.
var (
	allowedBackends = []keyring.BackendType{
		keyring.KeychainBackend,
		keyring.SecretServiceBackend,
		keyring.WinCredBackend,
		keyring.PassBackend,
		keyring.FileBackend,
	}
	fileDir = defaultFileDir()
)

// Key returns the keyring entry name for an account, used in
// user-facing messages so operators know which entry to set.
func Key(account string) string {
	return "imap/" + account
}

// Password retrieves the stored IMAP password for the named account.
func Password(account string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(Key(account))
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", Key(account), err)
	}

	return string(item.Data), nil
}

// SetPassword stores the IMAP password for the named account.
func SetPassword(account, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  Key(account),
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", Key(account), err)
	}

	return nil
}

// DeletePassword removes the stored IMAP password for the named
// account.
func DeletePassword(account string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(Key(account)); err != nil {
		return fmt.Errorf("deleting credential %q: %w", Key(account), err)
	}

	return nil
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		AllowedBackends:          allowedBackends,
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(serviceName + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func defaultFileDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "credentials")
	}
	return filepath.Join(home, ".config", serviceName, "credentials")
}
