package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileStore is a Synced store persisted as a single JSON document. Reads and
// writes address keys with gjson/sjson paths so unrelated keys are left
// byte-for-byte untouched.
type FileStore struct {
	path string
	perm fs.FileMode

	mu  sync.Mutex
	obs observers
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permissions used when the document is written.
func WithFileMode(perm fs.FileMode) FileOption {
	return func(s *FileStore) {
		s.perm = perm
	}
}

// NewFileStore returns a store backed by path. The file is created on the
// first write.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, perm: 0o600}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) read() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []byte("{}"), nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("store: %s is not valid JSON", s.path)
	}
	return data, nil
}

func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: prepare %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	if err := tmp.Chmod(s.perm); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: write %s: %w", s.path, err)
	}
	return nil
}

func documentValues(data []byte) map[string]any {
	values, _ := gjson.ParseBytes(data).Value().(map[string]any)
	if values == nil {
		values = map[string]any{}
	}
	return values
}

func (s *FileStore) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data, err := s.read()
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return documentValues(data), nil
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		result := gjson.GetBytes(data, escapePath(key))
		if result.Exists() {
			out[key] = result.Value()
		}
	}
	return out, nil
}

func (s *FileStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	data, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	before := documentValues(data)
	for key, value := range values {
		data, err = sjson.SetBytes(data, escapePath(key), storable(value))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("store: set %q: %w", key, err)
		}
	}
	if err := s.write(data); err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diff(before, documentValues(data))
	s.mu.Unlock()
	s.obs.notify(changes)
	return nil
}

// Delete removes keys from the document.
func (s *FileStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	data, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	before := documentValues(data)
	for _, key := range keys {
		data, err = sjson.DeleteBytes(data, escapePath(key))
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("store: delete %q: %w", key, err)
		}
	}
	if err := s.write(data); err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diff(before, documentValues(data))
	s.mu.Unlock()
	s.obs.notify(changes)
	return nil
}

func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	data, err := s.read()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if err := s.write([]byte("{}")); err != nil {
		s.mu.Unlock()
		return err
	}
	changes := diff(documentValues(data), map[string]any{})
	s.mu.Unlock()
	s.obs.notify(changes)
	return nil
}

// Observe subscribes fn to changes made through this store.
func (s *FileStore) Observe(fn func([]Change)) func() {
	return s.obs.add(fn)
}

// escapePath turns a key into a single gjson/sjson path component.
func escapePath(key string) string {
	var b strings.Builder
	for _, r := range key {
		if !isSafePathRune(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isSafePathRune(r rune) bool {
	return r >= 0x80 ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') ||
		r == '_' || r == '-' || r == ':'
}
