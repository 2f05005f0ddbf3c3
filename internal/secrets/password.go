package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// "Service" groups the engine's secrets in the OS keychain.
	KeyringService = "contractsearch"
)

// SourceAccount names the keychain entry for one source's database password.
func SourceAccount(source string) string {
	return "contractsearch:source:" + source
}

func GetSourcePassword(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", errors.New("source name is empty")
	}
	pw, err := keyring.Get(KeyringService, SourceAccount(source))
	if err != nil || strings.TrimSpace(pw) == "" {
		return "", errors.New("database password for source " + source + " not found in keychain")
	}
	return pw, nil
}

func SetSourcePassword(source string, password string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("source name is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, SourceAccount(source), password)
}

func DeleteSourcePassword(source string) error {
	if strings.TrimSpace(source) == "" {
		return errors.New("source name is empty")
	}
	return keyring.Delete(KeyringService, SourceAccount(source))
}
