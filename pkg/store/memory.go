package store

import (
	"context"
	"reflect"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-autosettings/internal/codec"
	"github.com/goliatone/go-autosettings/internal/layering"
)

// observers fans changes out to subscribers.
type observers struct {
	mu   sync.Mutex
	next int
	subs map[int]func([]Change)
}

func (o *observers) add(fn func([]Change)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = map[int]func([]Change){}
	}
	id := o.next
	o.next++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		delete(o.subs, id)
		o.mu.Unlock()
	}
}

func (o *observers) notify(changes []Change) {
	if len(changes) == 0 {
		return
	}
	o.mu.Lock()
	subs := make([]func([]Change), 0, len(o.subs))
	for _, fn := range o.subs {
		subs = append(subs, fn)
	}
	o.mu.Unlock()
	for _, fn := range subs {
		fn(changes)
	}
}

func diff(before, after map[string]any) []Change {
	now := time.Now().UTC()
	var changes []Change
	for key, value := range after {
		old, existed := before[key]
		if existed && reflect.DeepEqual(old, value) {
			continue
		}
		changes = append(changes, Change{Key: key, Old: old, New: value, Occurred: now})
	}
	for key, old := range before {
		if _, ok := after[key]; !ok {
			changes = append(changes, Change{Key: key, Old: old, Removed: true, Occurred: now})
		}
	}
	return changes
}

// MemoryStore is an in-memory Synced store. Values are deep copied on the
// way in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]any
	obs    observers
}

// NewMemoryStore returns a store seeded with a copy of initial.
func NewMemoryStore(initial map[string]any) *MemoryStore {
	values := layering.CloneMap(initial)
	if values == nil {
		values = map[string]any{}
	}
	return &MemoryStore{values: values}
}

func (s *MemoryStore) Get(ctx context.Context, keys ...string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(keys) == 0 {
		return layering.CloneMap(s.values), nil
	}
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			out[key] = layering.Clone(value)
		}
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, values map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	before := layering.CloneMap(s.values)
	for key, value := range values {
		s.values[key] = layering.Clone(storable(value))
	}
	changes := diff(before, s.values)
	s.mu.Unlock()
	s.obs.notify(changes)
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	before := s.values
	s.values = map[string]any{}
	changes := diff(before, s.values)
	s.mu.Unlock()
	s.obs.notify(changes)
	return nil
}

// Observe subscribes fn to changes.
func (s *MemoryStore) Observe(fn func([]Change)) func() {
	return s.obs.add(fn)
}

// Policy is a read-only Managed store.
type Policy struct {
	values map[string]any
}

// NewPolicy returns a Managed store answering from a copy of values.
func NewPolicy(values map[string]any) *Policy {
	copied := layering.CloneMap(values)
	if copied == nil {
		copied = map[string]any{}
	}
	return &Policy{values: copied}
}

// LoadPolicy reads a json, yaml or toml policy document.
func LoadPolicy(path string) (*Policy, error) {
	values, err := codec.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewPolicy(values), nil
}

func (p *Policy) Get(ctx context.Context, key string) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := p.values[key]
	if !ok {
		return map[string]any{}, nil
	}
	return map[string]any{key: layering.Clone(value)}, nil
}

// Keys lists the managed keys.
func (p *Policy) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for key := range p.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
