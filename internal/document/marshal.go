package document

import (
	"bytes"
	"encoding/json"
)

func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (s Sequence) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Node(s))
}

func (l Leaf) MarshalJSON() ([]byte, error) {
	switch l.Kind {
	case KindBool:
		return []byte(l.Text), nil
	case KindNumber:
		return []byte(l.Text), nil
	case KindString:
		return json.Marshal(l.Text)
	}
	return []byte("null"), nil
}

// MarshalIndent renders a node as indented JSON, keeping mapping key order.
func MarshalIndent(n Node) ([]byte, error) {
	compact, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	err = json.Indent(&out, compact, "", "  ")
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
