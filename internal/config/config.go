// Package config loads and validates the settings.json application
// configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/model"
)

// exampleSuffix names the template copied into place when no settings
// file exists yet.
const exampleSuffix = "_example"

// ConfigError indicates a malformed or missing configuration field.
// It is fatal at startup; the process does not run with a broken
// configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsConfigError reports whether err (or any error in its chain) is a
// ConfigError.
func IsConfigError(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}

// Load reads the settings file at path, applies defaults, normalizes
// legacy fields, and validates the result. When the file is missing
// but an example file (settings_example.json) exists alongside, the
// example is copied into place and an error instructs the user to
// edit it.
func Load(path string) (*model.Settings, error) {
	if err := bootstrap(path); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	v.SetDefault("check_interval_minutes", 0)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_retention_days", 3)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	settings := &model.Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	for i := range settings.Accounts {
		account := &settings.Accounts[i]
		if account.Port == 0 {
			account.Port = 993
		}
		// Viper unmarshals missing bools as false; treat unset as true.
		if !account.UseSSL {
			key := fmt.Sprintf("accounts.%d.use_ssl", i)
			if !v.IsSet(key) {
				account.UseSSL = true
			}
		}
	}

	for i := range settings.Filters {
		normalizeFilter(&settings.Filters[i])
	}

	if err := decodeMarkdownConfigs(path, settings); err != nil {
		return nil, err
	}

	if err := validate(settings); err != nil {
		return nil, err
	}

	return settings, nil
}

// bootstrap copies settings_example.json into place when the settings
// file itself does not exist yet.
func bootstrap(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	ext := filepath.Ext(path)
	example := path[:len(path)-len(ext)] + exampleSuffix + ext
	if _, err := os.Stat(example); err != nil {
		return &ConfigError{
			Field:  path,
			Reason: "settings file not found and no example to copy",
		}
	}

	if err := copyFile(example, path); err != nil {
		return fmt.Errorf("copying %s to %s: %w", example, path, err)
	}

	return &ConfigError{
		Field:  path,
		Reason: fmt.Sprintf("created from %s; edit it and run again", filepath.Base(example)),
	}
}

// normalizeFilter applies field defaults and the legacy
// url_to_attachment spelling.
func normalizeFilter(f *model.Filter) {
	if f.Action == "" {
		if f.URLToAttachment != "" {
			f.Action = model.ActionURL
		} else {
			f.Action = model.ActionAttachment
		}
	}
	if f.Action == model.ActionURL && f.URLPrefix == "" {
		f.URLPrefix = f.URLToAttachment
	}
	if f.TargetFormat == "" {
		f.TargetFormat = model.FormatPDF
	}
}

// decodeMarkdownConfigs re-reads the raw settings file to capture each
// filter's markdown_config with its key order intact, which the viper
// map decode loses.
func decodeMarkdownConfigs(path string, settings *model.Settings) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("rereading config %s: %w", path, err)
	}

	var ordered struct {
		Filters []struct {
			MarkdownConfig model.Properties `json:"markdown_config"`
		} `json:"filters"`
	}
	if err := json.Unmarshal(raw, &ordered); err != nil {
		return fmt.Errorf("decoding filter frontmatter config: %w", err)
	}

	if len(ordered.Filters) != len(settings.Filters) {
		return nil
	}
	for i := range settings.Filters {
		settings.Filters[i].MarkdownConfig = ordered.Filters[i].MarkdownConfig
	}
	return nil
}

// validate enforces the configuration invariants. Violations are
// fatal at startup.
func validate(settings *model.Settings) error {
	if len(settings.Accounts) == 0 {
		return &ConfigError{Field: "accounts", Reason: "at least one account is required"}
	}

	names := make(map[string]bool, len(settings.Accounts))
	for i, account := range settings.Accounts {
		field := fmt.Sprintf("accounts[%d]", i)
		if account.Name == "" {
			return &ConfigError{Field: field + ".name", Reason: "account name is required"}
		}
		if names[account.Name] {
			return &ConfigError{Field: field + ".name", Reason: fmt.Sprintf("duplicate account name %q", account.Name)}
		}
		names[account.Name] = true

		if account.Server == "" {
			return &ConfigError{Field: field + ".server", Reason: "server is required"}
		}
		if account.Username == "" {
			return &ConfigError{Field: field + ".username", Reason: "username is required"}
		}
	}

	for i, filter := range settings.Filters {
		field := fmt.Sprintf("filters[%d]", i)

		switch filter.Action {
		case model.ActionAttachment, model.ActionURL, model.ActionBody:
		default:
			return &ConfigError{
				Field:  field + ".attachment_type",
				Reason: fmt.Sprintf("unknown action %q", filter.Action),
			}
		}

		if filter.TargetFormat != model.FormatPDF && filter.TargetFormat != model.FormatMarkdown {
			return &ConfigError{
				Field:  field + ".target_format",
				Reason: fmt.Sprintf("unknown format %q, expected pdf or md", filter.TargetFormat),
			}
		}

		if filter.Action == model.ActionURL && filter.URLPrefix == "" {
			return &ConfigError{
				Field:  field + ".url_prefix",
				Reason: "url filters need a url_prefix",
			}
		}

		// A url prefix counts as a criterion: legacy filters carrying
		// only url_to_attachment match every message and let the
		// prefix gate which ones yield an artifact.
		noCriteria := filter.Sender == "" && filter.Subject == "" &&
			filter.AttachmentExtension == "" && filter.AttachmentName == "" &&
			filter.Account == "" && filter.URLPrefix == ""
		if noCriteria {
			return &ConfigError{
				Field:  field,
				Reason: "filter needs at least one match criterion",
			}
		}

		if filter.Account != "" && !names[filter.Account] {
			return &ConfigError{
				Field:  field + ".account",
				Reason: fmt.Sprintf("unknown account %q", filter.Account),
			}
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
