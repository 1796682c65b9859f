package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/fileutil"
)

const (
	tokensDir  = ".config/mcpfuzz"
	tokensFile = ".tokens.json"
)

// FileStore stores tokens in a JSON file readable only by the owner.
type FileStore struct {
	path string
	mu   sync.RWMutex
}

// NewFileStore creates a file store at ~/.config/mcpfuzz/.tokens.json.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	return &FileStore{path: filepath.Join(home, tokensDir, tokensFile)}, nil
}

// NewFileStoreAt creates a file store at a specific path.
func NewFileStoreAt(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(serverURL string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ServerURL == serverURL {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

func (s *FileStore) Put(entry *Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}

	found := false
	for i, e := range entries {
		if e.ServerURL == entry.ServerURL {
			entries[i] = entry
			found = true
			break
		}
	}
	if !found {
		entries = append(entries, entry)
	}
	return s.save(entries)
}

func (s *FileStore) Delete(serverURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	filtered := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if e.ServerURL != serverURL {
			filtered = append(filtered, e)
		}
	}
	return s.save(filtered)
}

func (s *FileStore) List() ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// load reads entries from the file (caller must hold lock).
func (s *FileStore) load() ([]*Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []*Entry{}, nil
		}
		return nil, fmt.Errorf("read tokens: %w", err)
	}

	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse tokens: %w", err)
	}
	return entries, nil
}

// save writes entries to the file (caller must hold lock).
func (s *FileStore) save(entries []*Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}
	if err := fileutil.WriteAtomic(s.path, data, 0600); err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}
