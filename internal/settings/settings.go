// Package settings is the write-only conduit from scripts into host
// configuration. The bridge never interprets values; it hands them to the
// consumer registered for the name.
package settings

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"
)

// Kind tags the dynamic type a script passed in.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindNumber
	KindString
	KindOpaque // tables, functions, userdata
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	}
	return "opaque"
}

// Value is a tagged variant. Only the field matching Kind is meaningful.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Opaque any
}

func Nil() Value             { return Value{Kind: KindNil} }
func Bool(v bool) Value      { return Value{Kind: KindBool, Bool: v} }
func Number(v float64) Value { return Value{Kind: KindNumber, Number: v} }
func String(v string) Value  { return Value{Kind: KindString, Str: v} }
func Opaque(v any) Value     { return Value{Kind: KindOpaque, Opaque: v} }

func (v Value) String() string {
	switch v.Kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Str)
	}
	return fmt.Sprintf("<%T>", v.Opaque)
}

// Consumer receives values for one key.
type Consumer func(Value)

// Bridge routes named values to host consumers. Unknown names are accepted
// and remembered; they are never an error.
type Bridge struct {
	name      string
	consumers map[string]Consumer
	unhandled map[string]Value
	log       *zap.Logger
}

func NewBridge(name string, log *zap.Logger) *Bridge {
	return &Bridge{
		name:      name,
		consumers: make(map[string]Consumer),
		unhandled: make(map[string]Value),
		log:       log,
	}
}

// Handle registers the consumer for a key, replacing any previous one.
// A value that arrived before the consumer existed is delivered immediately.
func (b *Bridge) Handle(key string, c Consumer) {
	b.consumers[key] = c
	if v, ok := b.unhandled[key]; ok {
		delete(b.unhandled, key)
		c(v)
	}
}

// Set delivers a value.
func (b *Bridge) Set(key string, v Value) {
	if c, ok := b.consumers[key]; ok {
		c(v)
		return
	}
	b.unhandled[key] = v
	b.log.Debug("unhandled "+b.name,
		zap.String("key", key),
		zap.Stringer("value", v))
}

// Unhandled returns the last value set for each key without a consumer.
func (b *Bridge) Unhandled() map[string]Value {
	out := make(map[string]Value, len(b.unhandled))
	for k, v := range b.unhandled {
		out[k] = v
	}
	return out
}

// Keys lists the registered consumer keys, sorted.
func (b *Bridge) Keys() []string {
	keys := make([]string, 0, len(b.consumers))
	for k := range b.consumers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Reset forgets unhandled values. Consumers stay registered.
func (b *Bridge) Reset() {
	b.unhandled = make(map[string]Value)
}
