// Package document models the untyped JSON trees returned by the feed
// endpoints: mappings with ordered keys, sequences, and primitive leaves.
package document

import (
	"strconv"
)

// Node is one of *Mapping, Sequence or Leaf.
type Node interface {
	node()
	// Interface converts the node into plain go values (map[string]any,
	// []any, string, float64, bool, nil).
	Interface() any
}

// Mapping is a JSON object that keeps its keys in document order.
type Mapping struct {
	keys   []string
	values map[string]Node
}

func NewMapping() *Mapping {
	return &Mapping{values: map[string]Node{}}
}

func (*Mapping) node() {}

// Set adds or replaces a key, a replaced key keeps its original position.
func (m *Mapping) Set(key string, value Node) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *Mapping) Keys() []string {
	return m.keys
}

func (m *Mapping) Len() int {
	return len(m.keys)
}

func (m *Mapping) Get(key string) (Node, bool) {
	value, ok := m.values[key]
	return value, ok
}

// Mapping returns the value at key if it is a mapping.
func (m *Mapping) Mapping(key string) (*Mapping, bool) {
	value, ok := m.values[key]
	if !ok {
		return nil, false
	}
	child, ok := value.(*Mapping)
	return child, ok
}

// String returns the value at key if it is a string leaf.
func (m *Mapping) String(key string) (string, bool) {
	value, ok := m.values[key]
	if !ok {
		return "", false
	}
	leaf, ok := value.(Leaf)
	if !ok || leaf.Kind != KindString {
		return "", false
	}
	return leaf.Text, true
}

// Lookup follows keys through nested mappings, it returns false as soon
// as a key is missing or an intermediate value is not a mapping.
func (m *Mapping) Lookup(keys ...string) (Node, bool) {
	var current Node = m
	for _, key := range keys {
		mapping, ok := current.(*Mapping)
		if !ok {
			return nil, false
		}
		current, ok = mapping.values[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// LookupMapping is Lookup that also requires the final value to be a mapping.
func (m *Mapping) LookupMapping(keys ...string) (*Mapping, bool) {
	value, ok := m.Lookup(keys...)
	if !ok {
		return nil, false
	}
	mapping, ok := value.(*Mapping)
	return mapping, ok
}

func (m *Mapping) Interface() any {
	out := make(map[string]any, len(m.keys))
	for _, key := range m.keys {
		out[key] = m.values[key].Interface()
	}
	return out
}

// Sequence is a JSON array.
type Sequence []Node

func (Sequence) node() {}

func (s Sequence) Interface() any {
	out := make([]any, len(s))
	for i, value := range s {
		out[i] = value.Interface()
	}
	return out
}

type LeafKind int

const (
	KindNull LeafKind = iota
	KindBool
	KindNumber
	KindString
)

// Leaf is a primitive value. Text holds the unescaped string for strings,
// the literal for numbers, and "true"/"false" for booleans.
type Leaf struct {
	Kind LeafKind
	Text string
}

func (Leaf) node() {}

func Null() Leaf {
	return Leaf{Kind: KindNull}
}

func String(s string) Leaf {
	return Leaf{Kind: KindString, Text: s}
}

func Number(f float64) Leaf {
	return Leaf{Kind: KindNumber, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func Bool(b bool) Leaf {
	return Leaf{Kind: KindBool, Text: strconv.FormatBool(b)}
}

// Float returns the numeric value of a number leaf.
func (l Leaf) Float() (float64, bool) {
	if l.Kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(l.Text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (l Leaf) Interface() any {
	switch l.Kind {
	case KindBool:
		return l.Text == "true"
	case KindNumber:
		f, ok := l.Float()
		if !ok {
			return l.Text
		}
		return f
	case KindString:
		return l.Text
	}
	return nil
}

// Scalar renders a string or number leaf as a string, other nodes are
// reported as absent.
func Scalar(n Node) (string, bool) {
	leaf, ok := n.(Leaf)
	if !ok {
		return "", false
	}
	switch leaf.Kind {
	case KindString, KindNumber:
		return leaf.Text, true
	}
	return "", false
}
