// Package auth resolves the bearer token sent to the MCP service and
// manages tokens stored for later runs.
package auth

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no token is stored for a server.
var ErrNotFound = errors.New("token not found")

// Entry is one stored token.
type Entry struct {
	// ServerURL is the base URL of the MCP service (used for lookup).
	ServerURL string `json:"server_url"`

	AccessToken string `json:"access_token"`

	// UpdatedAt is when the token was stored (Unix milliseconds).
	UpdatedAt int64 `json:"updated_at"`
}

// NewEntry creates a validated entry stamped with the current time.
func NewEntry(serverURL, accessToken string) (*Entry, error) {
	e := &Entry{ServerURL: serverURL, AccessToken: accessToken, UpdatedAt: time.Now().UnixMilli()}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks that all required fields are set.
func (e *Entry) Validate() error {
	if e.ServerURL == "" {
		return errors.New("token entry: ServerURL is required")
	}
	if e.AccessToken == "" {
		return errors.New("token entry: AccessToken is required")
	}
	return nil
}

// TokenStore persists bearer tokens per server URL.
type TokenStore interface {
	// Get returns the entry for serverURL or ErrNotFound.
	Get(serverURL string) (*Entry, error)

	// Put stores or replaces an entry.
	Put(e *Entry) error

	// Delete removes the entry for serverURL. Deleting a missing entry
	// is not an error.
	Delete(serverURL string) error

	// List returns all stored entries.
	List() ([]*Entry, error)
}

// StoreMode selects a TokenStore implementation.
type StoreMode string

const (
	// StoreModeAuto uses the keyring if available and falls back to file.
	StoreModeAuto    StoreMode = "auto"
	StoreModeKeyring StoreMode = "keyring"
	StoreModeFile    StoreMode = "file"
)

// NewStore creates a token store. path overrides the file store
// location and is ignored by the keyring store.
func NewStore(mode StoreMode, path string) (TokenStore, error) {
	switch mode {
	case StoreModeKeyring:
		store, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoreModeFile:
		return newFileStore(path)
	case StoreModeAuto, "":
		if store, err := NewKeyringStore(); err == nil {
			return store, nil
		}
		return newFileStore(path)
	default:
		return nil, fmt.Errorf("unknown token store %q", mode)
	}
}

func newFileStore(path string) (TokenStore, error) {
	if path != "" {
		return NewFileStoreAt(path), nil
	}
	store, err := NewFileStore()
	if err != nil {
		return nil, err
	}
	return store, nil
}
