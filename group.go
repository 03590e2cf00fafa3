package autosettings

import (
	"context"

	"github.com/goliatone/go-autosettings/internal/hydrate"
	"github.com/goliatone/go-autosettings/internal/layering"
)

// GroupOption configures DecodeGroup.
type GroupOption[T any] = hydrate.DecoderOption[T]

// GroupContext names the group being decoded and where its composite came
// from: "storage" or "defaults".
type GroupContext = hydrate.Context

// WithGroupPreHook rewrites the composite before it is decoded.
func WithGroupPreHook[T any](hook func(GroupContext, map[string]any) (map[string]any, error)) GroupOption[T] {
	return hydrate.WithPreHook[T](hook)
}

// WithGroupPostHook validates or completes the decoded value.
func WithGroupPostHook[T any](hook func(GroupContext, *T) error) GroupOption[T] {
	return hydrate.WithPostHook[T](hook)
}

// WithStrictGroup rejects group members T has no field for.
func WithStrictGroup[T any]() GroupOption[T] {
	return hydrate.WithStrict[T]()
}

// DecodeGroup decodes the stored composite of group into T. Members missing
// from storage are filled from the group default when one exists.
func DecodeGroup[T any](ctx context.Context, s *Settings, group string, opts ...GroupOption[T]) (T, error) {
	var zero T
	stored, err := s.synced.Get(ctx, group)
	if err != nil {
		return zero, optionError("decode", group, err)
	}

	source := "storage"
	composite, ok := layering.Composite(stored[group])
	if !ok {
		source = "defaults"
		composite = map[string]any{}
	}
	fallback, found, err := s.defaults.Get(ctx, group)
	if err != nil {
		return zero, optionError("decode", group, err)
	}
	if groupDefault, isComposite := layering.Composite(fallback); found && isComposite {
		composite = layering.Overlay(composite, groupDefault)
	}

	out, err := hydrate.NewDecoder(opts...).Decode(hydrate.Context{Group: group, Source: source}, composite)
	if err != nil {
		return zero, optionError("decode", group, err)
	}
	return out, nil
}
