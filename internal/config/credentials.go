package config

import (
	"fmt"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/credential"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// ResolvePasswords fills in empty account passwords from the system
// keyring. A missing credential is a ConfigError telling the user how
// to store one.
func ResolvePasswords(settings *model.Settings) error {
	for i := range settings.Accounts {
		account := &settings.Accounts[i]
		if account.Password != "" {
			continue
		}

		password, err := credential.Password(account.Name)
		if err != nil {
			return &ConfigError{
				Field: fmt.Sprintf("accounts[%d].password", i),
				Reason: fmt.Sprintf("empty and keyring entry %q not found (store one with -set-password %s): %v",
					credential.Key(account.Name), account.Name, err),
			}
		}
		account.Password = password
	}
	return nil
}
