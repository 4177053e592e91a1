package session

import (
	"github.com/99designs/keyring"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/eshaffer321/dishdash-go/internal/types"
)

// DefaultKeyringDir holds the encrypted file backend
const DefaultKeyringDir = "~/.dishdash/keyring"

// KeyringOptions selects where the session is persisted
type KeyringOptions struct {
	// Backend forces one keyring backend ("keychain", "wincred", "secret-service",
	// "kwallet", "pass", "file"). Empty lets the platform decide.
	Backend string
	// Dir is the directory of the file backend
	Dir string
	// Password unlocks the file backend without prompting
	Password string
}

// OpenKeyring opens the OS credential store under the dishdash service name
func OpenKeyring(opts KeyringOptions) (keyring.Keyring, error) {
	cfg := keyring.Config{
		ServiceName:   types.KeyringServiceName,
		PassPrefix:    types.KeyringServiceName,
		WinCredPrefix: types.KeyringServiceName,
		FileDir:       opts.Dir,
	}
	if cfg.FileDir == "" {
		cfg.FileDir = DefaultKeyringDir
	}
	if opts.Password != "" {
		cfg.FilePasswordFunc = keyring.FixedStringPrompt(opts.Password)
	} else {
		cfg.FilePasswordFunc = keyring.TerminalPrompt
	}
	if opts.Backend != "" {
		cfg.AllowedBackends = []keyring.BackendType{keyring.BackendType(opts.Backend)}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open keyring (backend %q)", opts.Backend)
	}
	return ring, nil
}

// DeviceID returns the installation's device ID, creating and persisting one
// on first use. Without a keyring every call yields a fresh ID.
func DeviceID(ring keyring.Keyring, logger types.Logger) string {
	if ring == nil {
		return uuid.NewString()
	}

	item, err := ring.Get(types.KeyDeviceID)
	if err == nil && len(item.Data) > 0 {
		return string(item.Data)
	}
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		types.LoggerOrNop(logger).Warn("Failed to read device ID", "error", err)
	}

	id := uuid.NewString()
	if err := ring.Set(keyring.Item{Key: types.KeyDeviceID, Data: []byte(id)}); err != nil {
		types.LoggerOrNop(logger).Warn("Failed to persist device ID", "error", err)
	}
	return id
}
