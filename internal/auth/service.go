// Package auth guards the control API with access keys read from
// keys.json and, optionally, HS256 bearer tokens. With neither configured
// the API is open.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const keysFileName = "keys.json"

// Key is one client's access key.
type Key struct {
	AccessKey string `json:"access_key"`
	Comment   string `json:"comment,omitempty"`
	// ReadOnly keys may only read status and subscribe to events.
	ReadOnly bool `json:"read_only,omitempty"`
}

// Client identifies the key a request authenticated with.
type Client struct {
	Name     string
	ReadOnly bool
}

// Service verifies access keys and reloads them when keys.json changes.
type Service struct {
	mu      sync.RWMutex
	dir     string
	keys    map[string]Key
	tokens  *TokenVerifier
	watcher *fsnotify.Watcher
}

// NewService loads keys from dir and watches for changes. An empty dir
// yields an open service with no watcher.
func NewService(dir string) (*Service, error) {
	s := &Service{dir: dir, keys: make(map[string]Key)}
	if dir == "" {
		return s, nil
	}

	if err := s.Reload(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Warn("auth: could not create fsnotify watcher", "err", err)
		return s, nil
	}
	s.watcher = watcher
	if err := watcher.Add(dir); err != nil {
		slog.Warn("auth: could not watch key dir", "dir", dir, "err", err)
	}
	go s.watchLoop(s.keysPath())
	return s, nil
}

func (s *Service) keysPath() string { return filepath.Join(s.dir, keysFileName) }

// Reload re-reads keys.json. A missing file clears all keys.
func (s *Service) Reload() error {
	data, err := os.ReadFile(s.keysPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.mu.Lock()
			s.keys = make(map[string]Key)
			s.mu.Unlock()
			return nil
		}
		return err
	}
	var keys map[string]Key
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	s.mu.Lock()
	s.keys = keys
	s.mu.Unlock()
	slog.Debug("auth: reloaded keys", "count", len(keys))
	return nil
}

// SetTokenVerifier enables bearer tokens. A service with a verifier is
// never open.
func (s *Service) SetTokenVerifier(v *TokenVerifier) {
	s.mu.Lock()
	s.tokens = v
	s.mu.Unlock()
}

func (s *Service) verifier() *TokenVerifier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// IsOpenMode reports whether no keys and no token verifier are configured.
func (s *Service) IsOpenMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.tokens != nil {
		return false
	}
	for _, k := range s.keys {
		if k.AccessKey != "" {
			return false
		}
	}
	return true
}

// Lookup returns the client owning key. Each configured key is compared
// in constant time.
func (s *Service) Lookup(key string) (Client, bool) {
	if key == "" {
		return Client{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for name, k := range s.keys {
		if k.AccessKey != "" && subtle.ConstantTimeCompare([]byte(key), []byte(k.AccessKey)) == 1 {
			return Client{Name: name, ReadOnly: k.ReadOnly}, true
		}
	}
	return Client{}, false
}

// VerifyKey reports whether key matches a configured access key.
func (s *Service) VerifyKey(key string) bool {
	_, ok := s.Lookup(key)
	return ok
}

// Close stops the file watcher.
func (s *Service) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Service) watchLoop(keysPath string) {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name == keysPath && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove)) {
				if err := s.Reload(); err != nil {
					slog.Warn("auth: failed to reload keys", "err", err)
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("auth: watcher error", "err", err)
		}
	}
}
