// Package keychain reads the connection-string key from the OS credential
// store when ODBCBRIDGE_KEY is not set.
package keychain

import (
	"errors"
	"runtime"
	"strings"

	"github.com/99designs/keyring"
)

const (
	ServiceName = "odbcbridge"
	KeyName     = "connection-key"
)

// ErrNoKey means neither the environment nor the keyring provided a key.
var ErrNoKey = errors.New("ODBCBRIDGE_KEY is not set and no odbcbridge/connection-key entry exists in the OS keyring")

// opener is swapped in tests.
var opener = openRing

// KeySource returns a lookup preferring envKey and falling back to the
// keyring. The keyring is only opened when an encrypted connection string
// actually needs it.
func KeySource(envKey string) func() (string, error) {
	return func() (string, error) {
		if envKey != "" {
			return envKey, nil
		}
		return Lookup()
	}
}

// Lookup reads the key from the native keyring.
func Lookup() (string, error) {
	ring, err := opener()
	if err != nil {
		return "", err
	}
	item, err := ring.Get(KeyName)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", ErrNoKey
		}
		return "", err
	}
	key := strings.TrimSpace(string(item.Data))
	if key == "" {
		return "", ErrNoKey
	}
	return key, nil
}

// openRing opens the platform's native credential store only. There is no
// file fallback: a bridge process has no terminal to prompt for a password.
func openRing() (keyring.Keyring, error) {
	var backends []keyring.BackendType
	switch runtime.GOOS {
	case "windows":
		backends = []keyring.BackendType{keyring.WinCredBackend}
	case "darwin":
		backends = []keyring.BackendType{keyring.KeychainBackend}
	default:
		backends = []keyring.BackendType{keyring.SecretServiceBackend, keyring.KWalletBackend}
	}

	cfg := keyring.Config{
		ServiceName:     ServiceName,
		AllowedBackends: backends,
	}
	if runtime.GOOS == "windows" {
		cfg.WinCredPrefix = ServiceName
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, errors.Join(ErrNoKey, err)
	}
	return ring, nil
}
