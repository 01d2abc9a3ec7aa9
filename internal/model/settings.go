package model

// Settings is the top-level application configuration loaded from
// settings.json. Immutable once loaded.
type Settings struct {
	// Accounts lists the mailbox accounts scanned each cycle.
	Accounts []Account `mapstructure:"accounts" json:"accounts"`

	// Filters lists the rules evaluated against each unread message,
	// in order.
	Filters []Filter `mapstructure:"filters" json:"filters"`

	// CheckIntervalMinutes is the pause between scan cycles. Zero or
	// negative runs exactly one cycle and exits.
	CheckIntervalMinutes int `mapstructure:"check_interval_minutes" json:"check_interval_minutes"`

	// LogLevel is the minimum level for regular logging: debug, info,
	// warning, or error. "critical" is accepted as an alias of error.
	LogLevel string `mapstructure:"log_level" json:"log_level"`

	// LogRetentionDays is how many days rotated log files are kept.
	LogRetentionDays int `mapstructure:"log_retention_days" json:"log_retention_days"`

	// WkhtmltopdfPath optionally points at the wkhtmltopdf binary.
	// When empty, well-known install locations and PATH are searched.
	WkhtmltopdfPath string `mapstructure:"wkhtmltopdf_path" json:"wkhtmltopdf_path"`
}
