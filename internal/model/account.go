package model

import "fmt"

// Account holds the connection settings and output defaults for one
// mailbox account.
type Account struct {
	// Name is the unique label for this account, referenced by filters.
	Name string `mapstructure:"name" json:"name"`

	// Server is the IMAP server hostname.
	Server string `mapstructure:"server" json:"server"`

	// Port is the IMAP server port (default 993).
	Port int `mapstructure:"port" json:"port"`

	// Username is the IMAP login name.
	Username string `mapstructure:"username" json:"username"`

	// Password is the IMAP login password. When empty it is resolved
	// from the system keyring under the key "imap/<name>".
	Password string `mapstructure:"password" json:"password"`

	// UseSSL selects implicit TLS. When false the connection starts in
	// plaintext and upgrades via STARTTLS.
	UseSSL bool `mapstructure:"use_ssl" json:"use_ssl"`

	// TargetFolder is the default output directory for materialized
	// files, used when a filter has no target_folder of its own.
	TargetFolder string `mapstructure:"target_folder" json:"target_folder"`

	// MoveFolder is the optional mailbox folder processed messages are
	// moved to after being marked read. Empty leaves them in INBOX.
	MoveFolder string `mapstructure:"imap_move_folder" json:"imap_move_folder"`
}

// Addr returns the host:port dial address for the account.
func (a Account) Addr() string {
	return fmt.Sprintf("%s:%d", a.Server, a.Port)
}
