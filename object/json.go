package object

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
)

// Stringify renders obj as JSON. Object keys keep insertion order. A
// non-empty indent pretty-prints with that indent per level. Functions and
// undefined are omitted from objects and become null inside arrays. The
// second result is false when obj itself has no JSON form.
func Stringify(obj Object, indent string) (string, bool, error) {
	var sb strings.Builder
	ok, err := writeJSON(&sb, obj, indent, 0, map[Object]bool{})
	if err != nil || !ok {
		return "", false, err
	}
	return sb.String(), true, nil
}

func writeJSON(sb *strings.Builder, obj Object, indent string, depth int, seen map[Object]bool) (bool, error) {
	switch v := obj.(type) {
	case nil, *UndefinedType, *Closure, *Builtin:
		return false, nil
	case *NullType:
		sb.WriteString("null")
	case *Bool:
		sb.WriteString(ToString(v))
	case *Number:
		if math.IsNaN(v.value) || math.IsInf(v.value, 0) {
			sb.WriteString("null")
		} else {
			sb.WriteString(FormatNumber(v.value))
		}
	case *String:
		writeJSONString(sb, v.value)
	case *Cell:
		return writeJSON(sb, v.Value(), indent, depth, seen)
	case *Array:
		if seen[v] {
			return false, TypeErrorf("Converting circular structure to JSON")
		}
		seen[v] = true
		defer delete(seen, v)
		sb.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				sb.WriteByte(',')
			}
			newline(sb, indent, depth+1)
			ok, err := writeJSON(sb, item, indent, depth+1, seen)
			if err != nil {
				return false, err
			}
			if !ok {
				sb.WriteString("null")
			}
		}
		if len(v.items) > 0 {
			newline(sb, indent, depth)
		}
		sb.WriteByte(']')
	case *Map:
		if seen[v] {
			return false, TypeErrorf("Converting circular structure to JSON")
		}
		seen[v] = true
		defer delete(seen, v)
		sb.WriteByte('{')
		wrote := false
		for _, key := range v.keys {
			var field strings.Builder
			ok, err := writeJSON(&field, v.items[key], indent, depth+1, seen)
			if err != nil {
				return false, err
			}
			if !ok {
				continue
			}
			if wrote {
				sb.WriteByte(',')
			}
			wrote = true
			newline(sb, indent, depth+1)
			writeJSONString(sb, key)
			sb.WriteByte(':')
			if indent != "" {
				sb.WriteByte(' ')
			}
			sb.WriteString(field.String())
		}
		if wrote {
			newline(sb, indent, depth)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("{}")
	}
	return true, nil
}

func newline(sb *strings.Builder, indent string, depth int) {
	if indent == "" {
		return
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(indent, depth))
}

func writeJSONString(sb *strings.Builder, s string) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	sb.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\n")))
}

// ParseJSON decodes text into values. Object keys keep document order.
// Malformed input throws a SyntaxError.
func ParseJSON(text string) (Object, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	value, err := decodeJSON(dec)
	if err != nil {
		return nil, Throw(NewError("SyntaxError", err.Error()))
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, Throw(NewError("SyntaxError", "unexpected data after JSON value"))
	}
	return value, nil
}

func decodeJSON(dec *json.Decoder) (Object, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '[':
			arr := NewArray(nil)
			for dec.More() {
				item, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				arr.Append(item)
			}
			_, err := dec.Token()
			return arr, err
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				value, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, value)
			}
			_, err := dec.Token()
			return m, err
		}
		return nil, fmt.Errorf("unexpected %v", t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil
	case string:
		return NewString(t), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return Null, nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}
