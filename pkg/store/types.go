// Package store defines the persistence contracts the settings layer talks
// to and a few adapters for them.
//
// Two logical stores exist:
//   - Synced is read-write and holds what the user chose.
//   - Managed is read-only and holds administrator policy that overrides
//     user choice.
//
// Keys are option names, or group names for option groups; the value of a
// group key is a composite map[string]any of its members. Values are JSON
// shaped: nil, bool, float64, string, []any and map[string]any.
//
// Adapters:
//
//	MemoryStore  -> Synced + Observable, for tests and embedding
//	FileStore    -> Synced + Observable over a JSON document on disk
//	Policy       -> Managed, from a json/yaml/toml policy file
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/internal/layering"
)

// ErrNotFound is returned by Lookup when a key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Synced is the read-write user settings store.
type Synced interface {
	// Get returns the requested keys, or everything when no key is given.
	// Missing keys are omitted from the result.
	Get(ctx context.Context, keys ...string) (map[string]any, error)
	Set(ctx context.Context, values map[string]any) error
	Clear(ctx context.Context) error
}

// Managed is the read-only administrator policy store. Get returns a mapping
// holding key, or an empty result when no policy exists for it.
type Managed interface {
	Get(ctx context.Context, key string) (map[string]any, error)
}

// Change describes one key that changed in an Observable store.
type Change struct {
	Key      string
	Old      any
	New      any
	Removed  bool
	Occurred time.Time
}

// Observable stores notify subscribers after every write.
type Observable interface {
	Observe(fn func([]Change)) (cancel func())
}

// IsEmpty reports whether a managed lookup produced no data. Absent and empty
// results are treated alike.
func IsEmpty(result map[string]any) bool {
	return len(result) == 0
}

// Lookup returns the value of key or ErrNotFound.
func Lookup(ctx context.Context, s Synced, key string) (any, error) {
	values, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, ok := values[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return value, nil
}

// Snapshot is a full copy of a synced store's content.
type Snapshot struct {
	ID      string         `json:"id"`
	TakenAt time.Time      `json:"taken_at"`
	Values  map[string]any `json:"values"`
}

// TakeSnapshot copies everything s holds.
func TakeSnapshot(ctx context.Context, s Synced) (Snapshot, error) {
	values, err := s.Get(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("store: snapshot: %w", err)
	}
	if values == nil {
		values = map[string]any{}
	}
	return Snapshot{
		ID:      uuid.NewString(),
		TakenAt: time.Now().UTC(),
		Values:  layering.CloneMap(values),
	}, nil
}

// Restore replaces the content of s with snap.
func Restore(ctx context.Context, s Synced, snap Snapshot) error {
	if err := s.Clear(ctx); err != nil {
		return fmt.Errorf("store: restore %s: %w", snap.ID, err)
	}
	if len(snap.Values) == 0 {
		return nil
	}
	if err := s.Set(ctx, layering.CloneMap(snap.Values)); err != nil {
		return fmt.Errorf("store: restore %s: %w", snap.ID, err)
	}
	return nil
}

// storable converts value into the JSON shape stores persist. NaN and
// infinities become null, the way JSON.stringify writes them.
func storable(value any) any {
	switch typed := codec.Normalize(value).(type) {
	case float64:
		if math.IsNaN(typed) || math.IsInf(typed, 0) {
			return nil
		}
		return typed
	case map[string]any:
		for key, item := range typed {
			typed[key] = storable(item)
		}
		return typed
	case []any:
		for i, item := range typed {
			typed[i] = storable(item)
		}
		return typed
	default:
		return typed
	}
}
