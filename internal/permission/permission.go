package permission

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const grantToken = "granted"

// FileGate stores the overlay grant as a marker file. The file is checked on
// every call; nothing is cached.
type FileGate struct {
	mu   sync.RWMutex
	path string
}

// NewFileGate returns a gate backed by path.
func NewFileGate(path string) *FileGate {
	return &FileGate{path: path}
}

// Path returns the marker file location.
func (g *FileGate) Path() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.path
}

// SetPath moves the gate to a different marker file.
func (g *FileGate) SetPath(path string) {
	g.mu.Lock()
	g.path = path
	g.mu.Unlock()
}

// Granted reports whether the marker file exists and holds a grant.
func (g *FileGate) Granted() bool {
	data, err := os.ReadFile(g.Path())
	if err != nil {
		return false
	}
	return bytes.HasPrefix(bytes.TrimSpace(data), []byte(grantToken))
}

// Grant writes the marker file.
func (g *FileGate) Grant() error {
	path := g.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create permission directory: %w", err)
	}
	content := fmt.Sprintf("%s %s\n", grantToken, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write permission file: %w", err)
	}
	return nil
}

// Revoke removes the marker file. Revoking twice is not an error.
func (g *FileGate) Revoke() error {
	if err := os.Remove(g.Path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove permission file: %w", err)
	}
	return nil
}

// Static is a gate with a fixed answer.
type Static bool

func (s Static) Granted() bool {
	return bool(s)
}
