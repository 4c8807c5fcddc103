package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/buger/jsonparser"
)

// Parse decodes a JSON document, mapping keys keep the order in which they
// appear in the input.
func Parse(data []byte) (Node, error) {
	value, dataType, _, err := jsonparser.Get(data)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return parseValue(value, dataType)
}

func parseValue(value []byte, dataType jsonparser.ValueType) (Node, error) {
	switch dataType {
	case jsonparser.Object:
		return parseObject(value)
	case jsonparser.Array:
		return parseArray(value)
	case jsonparser.String:
		s, err := parseString(value)
		if err != nil {
			return nil, fmt.Errorf("parse string: %w", err)
		}
		return String(s), nil
	case jsonparser.Number:
		if !json.Valid(value) {
			return nil, fmt.Errorf("parse number: invalid literal %q", value)
		}
		return Leaf{Kind: KindNumber, Text: string(value)}, nil
	case jsonparser.Boolean:
		b, err := jsonparser.ParseBoolean(value)
		if err != nil {
			return nil, fmt.Errorf("parse boolean: %w", err)
		}
		return Bool(b), nil
	case jsonparser.Null:
		return Null(), nil
	}
	return nil, fmt.Errorf("parse document: unsupported value type %v", dataType)
}

func parseObject(data []byte) (*Mapping, error) {
	mapping := NewMapping()
	// ObjectEach hands over keys already unescaped.
	err := jsonparser.ObjectEach(data, func(key []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		child, err := parseValue(value, dataType)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		mapping.Set(string(key), child)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mapping, nil
}

func parseArray(data []byte) (Sequence, error) {
	seq := Sequence{}
	var parseErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, _ int, err error) {
		if parseErr != nil {
			return
		}
		if err != nil {
			parseErr = err
			return
		}
		child, err := parseValue(value, dataType)
		if err != nil {
			parseErr = err
			return
		}
		seq = append(seq, child)
	})
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		return nil, parseErr
	}
	return seq, nil
}

// parseString unescapes the body of a JSON string. Unpaired surrogate
// escapes, which jsonparser rejects, become U+FFFD.
func parseString(raw []byte) (string, error) {
	s, err := jsonparser.ParseString(raw)
	if err == nil {
		return s, nil
	}
	return unescapeLenient(raw)
}

func unescapeLenient(raw []byte) (string, error) {
	var out strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' {
			out.WriteByte(raw[i])
			continue
		}
		i++
		if i >= len(raw) {
			return "", errors.New("unterminated escape")
		}
		switch raw[i] {
		case '"', '\\', '/':
			out.WriteByte(raw[i])
		case 'b':
			out.WriteByte('\b')
		case 'f':
			out.WriteByte('\f')
		case 'n':
			out.WriteByte('\n')
		case 'r':
			out.WriteByte('\r')
		case 't':
			out.WriteByte('\t')
		case 'u':
			r, n, err := decodeEscapedRune(raw[i+1:])
			if err != nil {
				return "", err
			}
			out.WriteRune(r)
			i += n
		default:
			return "", fmt.Errorf("invalid escape \\%c", raw[i])
		}
	}
	return out.String(), nil
}

// decodeEscapedRune reads the hex digits after a `\u`, along with the low
// half when they are the high half of a surrogate pair. n is the amount of
// bytes consumed.
func decodeEscapedRune(raw []byte) (r rune, n int, err error) {
	first, ok := hexRune(raw)
	if !ok {
		return 0, 0, errors.New("invalid unicode escape")
	}
	if !utf16.IsSurrogate(first) {
		return first, 4, nil
	}
	if len(raw) >= 10 && raw[4] == '\\' && raw[5] == 'u' {
		second, ok := hexRune(raw[6:])
		if ok {
			combined := utf16.DecodeRune(first, second)
			if combined != unicode.ReplacementChar {
				return combined, 10, nil
			}
		}
	}
	return unicode.ReplacementChar, 4, nil
}

func hexRune(raw []byte) (rune, bool) {
	if len(raw) < 4 {
		return 0, false
	}
	value, err := strconv.ParseUint(string(raw[:4]), 16, 32)
	if err != nil {
		return 0, false
	}
	return rune(value), true
}
