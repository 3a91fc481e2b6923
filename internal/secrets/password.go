package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"workorder-engine/internal/config"
)

// KeyringService groups the engine's secrets in the OS keychain.
const KeyringService = "workorder"

var ErrNotFound = errors.New("IMAP password not found (set it in config, env or the keychain)")

func GetIMAPPassword(keyringAccount string) (string, error) {
	if strings.TrimSpace(keyringAccount) != "" {
		pw, err := keyring.Get(KeyringService, keyringAccount)
		if err == nil && strings.TrimSpace(pw) != "" {
			return pw, nil
		}
	}
	return "", ErrNotFound
}

func SetIMAPPassword(keyringAccount string, password string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, keyringAccount, password)
}

func DeleteIMAPPassword(keyringAccount string) error {
	if strings.TrimSpace(keyringAccount) == "" {
		return errors.New("keyring account name is empty")
	}
	return keyring.Delete(KeyringService, keyringAccount)
}

func IMAPKeyringAccount(cfg config.IMAP) string {
	return fmt.Sprintf("workorder:imap:%s@%s", cfg.Username, cfg.Server)
}

// ResolveIMAPPassword prefers the password stored in the config document and
// falls back to the keychain entry for the same account.
func ResolveIMAPPassword(cfg config.IMAP) (string, error) {
	if strings.TrimSpace(cfg.Password) != "" {
		return cfg.Password, nil
	}
	return GetIMAPPassword(IMAPKeyringAccount(cfg))
}
