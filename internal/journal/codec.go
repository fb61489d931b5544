package journal

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
)

// ErrUnknownType is returned by a codec for an action type it was not taught.
var ErrUnknownType = errors.New("unknown action type")

// Codec converts between actions and their journaled form.
type Codec[A any] interface {
	Encode(action A) (typ string, payload []byte, err error)
	Decode(typ string, payload []byte) (A, error)
}

// JSONCodec encodes registered action types as JSON objects tagged with a
// stable name. Register every concrete action type before use.
type JSONCodec[A any] struct {
	names    map[reflect.Type]string
	decoders map[string]func([]byte) (A, error)
}

// NewJSONCodec returns an empty codec.
func NewJSONCodec[A any]() *JSONCodec[A] {
	return &JSONCodec[A]{
		names:    make(map[reflect.Type]string),
		decoders: make(map[string]func([]byte) (A, error)),
	}
}

// Register teaches c the concrete action type T under name.
// Panics if T is not an A or name is taken: both are wiring errors.
func Register[A, T any](c *JSONCodec[A], name string) {
	var zero T
	if _, ok := any(zero).(A); !ok {
		panic(fmt.Sprintf("journal: %T does not implement the codec action type", zero))
	}
	if _, taken := c.decoders[name]; taken {
		panic(fmt.Sprintf("journal: action name %q registered twice", name))
	}
	c.names[reflect.TypeOf(zero)] = name
	c.decoders[name] = func(payload []byte) (A, error) {
		var v T
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &v); err != nil {
				var a A
				return a, fmt.Errorf("decode %s: %w", name, err)
			}
		}
		return any(v).(A), nil
	}
}

// Encode implements Codec.
func (c *JSONCodec[A]) Encode(action A) (string, []byte, error) {
	name, ok := c.names[reflect.TypeOf(any(action))]
	if !ok {
		return "", nil, fmt.Errorf("%w: %T", ErrUnknownType, action)
	}
	payload, err := json.Marshal(action)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return name, payload, nil
}

// Decode implements Codec.
func (c *JSONCodec[A]) Decode(typ string, payload []byte) (A, error) {
	decode, ok := c.decoders[typ]
	if !ok {
		var zero A
		return zero, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	return decode(payload)
}

// Name returns the registered name of action's type.
func (c *JSONCodec[A]) Name(action A) (string, bool) {
	name, ok := c.names[reflect.TypeOf(any(action))]
	return name, ok
}

// Types lists registered names in lexical order.
func (c *JSONCodec[A]) Types() []string {
	out := make([]string, 0, len(c.decoders))
	for name := range c.decoders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
