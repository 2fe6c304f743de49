package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultStatePath is where FileStore keeps the notification state.
const DefaultStatePath = "/var/lib/jiobatt/battery_prefs.json"

// Store persists the single notification state of an installation.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

var (
	_ Store = &FileStore{}
	_ Store = &MemoryStore{}
)

// FileStore keeps the state as a small JSON document.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultStatePath
	}
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

// Load returns the empty state if the file does not exist or is empty.
func (f *FileStore) Load(_ context.Context) (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, nil
		}
		return State{}, pkgerrors.Wrapf(err, "failed to read notification state %s", f.path)
	}
	if strings.TrimSpace(string(b)) == "" {
		return State{}, nil
	}

	var raw struct {
		LastFired string `json:"last_notification_type"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return State{}, pkgerrors.Wrapf(err, "failed to unmarshal notification state %s", f.path)
	}
	kind, err := ParseKind(raw.LastFired)
	if err != nil {
		return State{}, pkgerrors.Wrapf(err, "invalid notification state %s", f.path)
	}

	return State{LastFired: kind}, nil
}

// Save writes to a temporary file and renames it over the old one.
func (f *FileStore) Save(_ context.Context, s State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return pkgerrors.Wrapf(err, "failed to create directory for %s", f.path)
	}

	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal notification state")
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return pkgerrors.Wrapf(err, "failed to write %s", tmp)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		if rmErr := os.Remove(tmp); rmErr != nil {
			logrus.Warnf("failed to remove %s: %v", tmp, rmErr)
		}
		return pkgerrors.Wrapf(err, "failed to replace %s", f.path)
	}

	return nil
}

// MemoryStore keeps the state for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	state State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, nil
}

func (m *MemoryStore) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
	return nil
}
