package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const (
	// keyringService is the service name used in the system keychain.
	keyringService = "mcpfuzz"

	// keyringIndexKey holds the list of stored server URLs.
	keyringIndexKey = "_index"
)

// KeyringStore stores tokens in the system keychain.
type KeyringStore struct {
	mu sync.RWMutex
}

// NewKeyringStore returns an error if the keyring is not available.
func NewKeyringStore() (*KeyringStore, error) {
	_, err := keyring.Get(keyringService, "_test_availability")
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	return &KeyringStore{}, nil
}

func (s *KeyringStore) Get(serverURL string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.get(serverURL)
}

func (s *KeyringStore) get(serverURL string) (*Entry, error) {
	data, err := keyring.Get(keyringService, urlToKey(serverURL))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("keyring get: %w", err)
	}

	var e Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("parse token entry: %w", err)
	}
	return &e, nil
}

func (s *KeyringStore) Put(e *Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal token entry: %w", err)
	}
	if err := keyring.Set(keyringService, urlToKey(e.ServerURL), string(data)); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return s.addToIndex(e.ServerURL)
}

func (s *KeyringStore) Delete(serverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := keyring.Delete(keyringService, urlToKey(serverURL)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return s.removeFromIndex(serverURL)
}

func (s *KeyringStore) List() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls, err := s.loadIndex()
	if err != nil {
		return nil, err
	}
	entries := make([]*Entry, 0, len(urls))
	for _, url := range urls {
		e, err := s.get(url)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// loadIndex reads the list of stored server URLs (caller must hold lock).
func (s *KeyringStore) loadIndex() ([]string, error) {
	data, err := keyring.Get(keyringService, keyringIndexKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("keyring get index: %w", err)
	}
	if data == "" {
		return []string{}, nil
	}

	var urls []string
	if err := json.Unmarshal([]byte(data), &urls); err != nil {
		return nil, fmt.Errorf("parse index: %w", err)
	}
	return urls, nil
}

func (s *KeyringStore) saveIndex(urls []string) error {
	data, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("marshal index: %w", err)
	}
	if err := keyring.Set(keyringService, keyringIndexKey, string(data)); err != nil {
		return fmt.Errorf("keyring set index: %w", err)
	}
	return nil
}

func (s *KeyringStore) addToIndex(url string) error {
	urls, err := s.loadIndex()
	if err != nil {
		return err
	}
	for _, u := range urls {
		if u == url {
			return nil
		}
	}
	return s.saveIndex(append(urls, url))
}

func (s *KeyringStore) removeFromIndex(url string) error {
	urls, err := s.loadIndex()
	if err != nil {
		return err
	}
	filtered := make([]string, 0, len(urls))
	for _, u := range urls {
		if u != url {
			filtered = append(filtered, u)
		}
	}
	return s.saveIndex(filtered)
}

// urlToKey sanitizes a server URL into a keyring key.
func urlToKey(url string) string {
	key := strings.ReplaceAll(url, "://", "_")
	key = strings.ReplaceAll(key, "/", "_")
	key = strings.ReplaceAll(key, ":", "_")
	return key
}
