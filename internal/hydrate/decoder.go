// Package hydrate converts loosely typed definition payloads into strongly
// typed structs with pre/post hooks for normalisation and validation.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the payload being hydrated, for error messages.
type Context struct {
	Name   string
	Source string
}

// PreHook normalises the raw payload before decoding. Returning nil keeps
// the payload as-is.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook validates or adjusts the hydrated value after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON decoding when provided.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder turns definition payloads into values of T.
type Decoder[T any] struct {
	pre     []PreHook
	post    []PostHook[T]
	decOpts []func(*json.Decoder)
	custom  CustomDecoder[T]
}

// WithPreHook runs hook before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) { d.pre = append(d.pre, hook) }
}

// WithPostHook runs hook after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) { d.post = append(d.post, hook) }
}

// WithDecoderConfig configures the underlying json.Decoder.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.decOpts = append(d.decOpts, configure)
		}
	}
}

// WithDisallowUnknownFields rejects payload fields T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T](func(dec *json.Decoder) { dec.DisallowUnknownFields() })
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) { d.custom = decoder }
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode hydrates payload into a T. Pre-hooks see a clone of the payload, so
// the caller's map is never mutated.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for definition %q", ctx.Name)
	}
	current, err := clonePayload(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for definition %q: %w", ctx.Name, err)
	}
	for _, hook := range d.pre {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for definition %q failed: %w", ctx.Name, err)
		}
		if next != nil {
			current = next
		}
	}
	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, err
	}
	for _, hook := range d.post {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for definition %q failed: %w", ctx.Name, err)
		}
	}
	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	var result T
	if d.custom != nil {
		result, err := d.custom(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for definition %q failed: %w", ctx.Name, err)
		}
		return result, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("hydrate: marshal payload for definition %q: %w", ctx.Name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	for _, configure := range d.decOpts {
		configure(dec)
	}
	if err := dec.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode definition %q: %w", ctx.Name, err)
	}
	return result, nil
}

func clonePayload(payload map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
