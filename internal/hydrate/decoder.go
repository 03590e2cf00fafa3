// Package hydrate turns the composite value of a settings group into a typed
// struct.
package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNilGroup is returned when there is no composite to decode.
var ErrNilGroup = errors.New("hydrate: group composite is nil")

// Context names the group being decoded.
type Context struct {
	Group string
	// Source tells where the composite came from, e.g. "storage" or "defaults".
	Source string
}

// PreHook rewrites the composite before decoding. Returning nil keeps the
// current composite.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook validates or fills the decoded struct.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces JSON decoding.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts group composites into T.
type Decoder[T any] struct {
	pre    []PreHook
	post   []PostHook[T]
	strict bool
	custom CustomDecoder[T]
}

// WithPreHook appends hook to the pre-decode chain.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.pre = append(d.pre, hook)
		}
	}
}

// WithPostHook appends hook to the post-decode chain.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if hook != nil {
			d.post = append(d.post, hook)
		}
	}
}

// WithStrict rejects members that T has no field for.
func WithStrict[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.strict = true
	}
}

// WithCustomDecoder replaces the JSON decoding step.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// NewDecoder builds a Decoder.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode runs the pre hooks on a copy of composite, decodes it into T and
// runs the post hooks.
func (d *Decoder[T]) Decode(ctx Context, composite map[string]any) (T, error) {
	var zero T
	if composite == nil {
		return zero, fmt.Errorf("%w: group %q", ErrNilGroup, ctx.Group)
	}

	current, err := deepCopy(composite)
	if err != nil {
		return zero, fmt.Errorf("hydrate: copy group %q: %w", ctx.Group, err)
	}
	for _, hook := range d.pre {
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for group %q: %w", ctx.Group, err)
		}
		if next != nil {
			current = next
		}
	}

	var out T
	if d.custom != nil {
		if out, err = d.custom(ctx, current); err != nil {
			return zero, fmt.Errorf("hydrate: custom decoder for group %q: %w", ctx.Group, err)
		}
	} else if err := d.decodeJSON(current, &out); err != nil {
		return zero, fmt.Errorf("hydrate: decode group %q: %w", ctx.Group, err)
	}

	for _, hook := range d.post {
		if err := hook(ctx, &out); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for group %q: %w", ctx.Group, err)
		}
	}
	return out, nil
}

func (d *Decoder[T]) decodeJSON(composite map[string]any, out *T) error {
	raw, err := json.Marshal(composite)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if d.strict {
		dec.DisallowUnknownFields()
	}
	return dec.Decode(out)
}

func deepCopy(composite map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(composite)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
