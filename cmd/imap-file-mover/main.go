// Command imap-file-mover scans IMAP accounts for unread messages,
// materializes the interesting ones into files via the configured
// filters, and marks or moves the processed messages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/BenjaminKobjolke/imap-file-mover/internal/config"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/convert"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/credential"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/fetch"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/logging"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/mailbox"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/materialize"
	"github.com/BenjaminKobjolke/imap-file-mover/internal/mover"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "imap-file-mover: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "settings.json", "path to the settings file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	setPassword := flag.String("set-password", "", "prompt for the named account's IMAP password, store it in the keyring, and exit")
	deletePassword := flag.String("delete-password", "", "remove the named account's IMAP password from the keyring and exit")
	flag.Parse()

	if *setPassword != "" {
		return storePassword(*setPassword)
	}
	if *deletePassword != "" {
		if err := credential.DeletePassword(*deletePassword); err != nil {
			return err
		}
		fmt.Printf("removed password for account %s\n", *deletePassword)
		return nil
	}

	settings, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *once {
		settings.CheckIntervalMinutes = 0
	}

	logger, err := logging.New(logging.Options{
		Level:         settings.LogLevel,
		File:          filepath.Join("logs", "imap-file-mover.log"),
		RetentionDays: settings.LogRetentionDays,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := config.ResolvePasswords(settings); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := fetch.New(logger)
	converter := convert.New(logger, fetcher, settings.WkhtmltopdfPath)
	materializer := materialize.New(logger, fetcher, converter)

	m := mover.New(settings, logger, mailbox.Dial, materializer)

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Infof("shutting down")
	return nil
}

// storePassword prompts for an account password without echoing it
// and saves it to the keyring.
func storePassword(account string) error {
	fmt.Printf("IMAP password for account %s: ", account)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(raw) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	if err := credential.SetPassword(account, string(raw)); err != nil {
		return err
	}

	fmt.Printf("stored password for account %s\n", account)
	return nil
}
