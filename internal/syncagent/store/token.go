// Package store persists the engine authentication token between runs.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/synthsel/ss-sync/internal/syncagent/core"
)

// DefaultTokenPath is the token file location relative to $XDG_CONFIG_HOME.
const DefaultTokenPath = "ss-sync/token"

// FileTokenStore keeps the token in a single file readable only by its owner.
type FileTokenStore struct {
	path string
}

var _ core.TokenStore = (*FileTokenStore)(nil)

// NewFileTokenStore returns a store at path, or at the XDG default when path is empty.
func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if path == "" {
		p, err := xdg.ConfigFile(DefaultTokenPath)
		if err != nil {
			return nil, fmt.Errorf("resolve token file: %w", err)
		}
		path = p
	}
	return &FileTokenStore{path: path}, nil
}

// Path returns the token file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

func (s *FileTokenStore) Get() (string, bool, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read token: %w", err)
	}

	token := strings.TrimSpace(string(b))
	return token, token != "", nil
}

// Set writes token atomically. An empty token removes the file.
func (s *FileTokenStore) Set(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove token: %w", err)
		}
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if _, err := tmp.WriteString(token + "\n"); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write token: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}
