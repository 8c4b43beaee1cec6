package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/deleyapp/lawcopilot/internal/model/chat"
	"github.com/deleyapp/lawcopilot/internal/model/module"
)

// FileStore implements Store with one JSON array file per module kind
// under a local data directory. Thread-safe for concurrent use.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store: data directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create data directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(kind module.Kind) string {
	return filepath.Join(fs.dir, kind.StorageKey()+".json")
}

// Save upserts the session into its module kind's collection. The audio
// payload of user messages never reaches disk.
func (fs *FileStore) Save(ctx context.Context, session chat.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if session.ID == "" {
		return fmt.Errorf("store: session id must not be empty")
	}
	if !session.ModuleType.Valid() {
		return fmt.Errorf("store: invalid module kind %q", session.ModuleType)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	sessions, err := fs.read(session.ModuleType)
	if err != nil {
		return err
	}

	record := stripAudio(session)

	replaced := false
	for i := range sessions {
		if sessions[i].ID == record.ID {
			sessions[i] = record
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append(sessions, record)
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].LastMessageAt.After(sessions[j].LastMessageAt)
	})

	return fs.write(session.ModuleType, sessions)
}

// LoadAll returns every session stored for the module kind, newest first.
func (fs *FileStore) LoadAll(ctx context.Context, kind module.Kind) ([]chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.read(kind)
}

// LoadOne returns a single session or ErrNotFound.
func (fs *FileStore) LoadOne(ctx context.Context, kind module.Kind, id string) (chat.Session, error) {
	if err := ctx.Err(); err != nil {
		return chat.Session{}, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	sessions, err := fs.read(kind)
	if err != nil {
		return chat.Session{}, err
	}
	for _, s := range sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return chat.Session{}, ErrNotFound
}

// Delete removes the session from its module kind's collection. Deleting
// an absent id returns ErrNotFound.
func (fs *FileStore) Delete(ctx context.Context, kind module.Kind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	sessions, err := fs.read(kind)
	if err != nil {
		return err
	}

	kept := sessions[:0]
	found := false
	for _, s := range sessions {
		if s.ID == id {
			found = true
			continue
		}
		kept = append(kept, s)
	}
	if !found {
		return ErrNotFound
	}

	return fs.write(kind, kept)
}

func (fs *FileStore) read(kind module.Kind) ([]chat.Session, error) {
	data, err := os.ReadFile(fs.path(kind))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", kind.StorageKey(), err)
	}

	var sessions []chat.Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return nil, fmt.Errorf("store: decode %s: %w", kind.StorageKey(), err)
	}
	return sessions, nil
}

// write replaces the collection file atomically so a crash mid-write never
// leaves a truncated collection behind.
func (fs *FileStore) write(kind module.Kind, sessions []chat.Session) error {
	data, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", kind.StorageKey(), err)
	}

	path := fs.path(kind)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", kind.StorageKey(), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: replace %s: %w", kind.StorageKey(), err)
	}
	return nil
}

func stripAudio(session chat.Session) chat.Session {
	stripped := session
	stripped.Messages = make([]chat.Message, len(session.Messages))
	copy(stripped.Messages, session.Messages)
	for i := range stripped.Messages {
		stripped.Messages[i].AudioBase64 = ""
	}
	return stripped
}
