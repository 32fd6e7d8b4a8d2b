package evaluator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
)

// ValueToJSON marshals a value to JSON bytes.
// Records preserve key order. Numbers output integers without decimal point.
func ValueToJSON(v NJValue) ([]byte, error) {
	raw := valueToRaw(v)
	return json.Marshal(raw)
}

// ValueToJSONIndent is like ValueToJSON but indents nested structures.
func ValueToJSONIndent(v NJValue, indent string) ([]byte, error) {
	b, err := ValueToJSON(v)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, b, "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func valueToRaw(v NJValue) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case NJNull:
		return nil

	case NJBool:
		return val.Value

	case NJNumber:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return nil
		}
		// Output integers without decimal point
		if val.Value == math.Trunc(val.Value) && val.Value >= math.MinInt64 && val.Value < math.MaxInt64 {
			return int64(val.Value)
		}
		return val.Value

	case NJString:
		return val.Value

	case NJList:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = valueToRaw(item)
		}
		return items

	case NJRecord:
		return &orderedRecord{pairs: val.Pairs}
	}

	return nil
}

// orderedRecord preserves key order in JSON output.
type orderedRecord struct {
	pairs []KeyValue
}

func (o *orderedRecord) MarshalJSON() ([]byte, error) {
	if len(o.pairs) == 0 {
		return []byte("{}"), nil
	}

	buf := []byte{'{'}
	for i, kv := range o.pairs {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(kv.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')

		valBytes, err := json.Marshal(valueToRaw(kv.Value))
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// MarshalJSON encodes the record with its key order intact.
func (r NJRecord) MarshalJSON() ([]byte, error) {
	return (&orderedRecord{pairs: r.Pairs}).MarshalJSON()
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v NJValue) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

// DecodeError reports a malformed JSON document together with the byte
// offset where decoding stopped.
type DecodeError struct {
	Offset int64
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid JSON at offset %d: %v", e.Offset, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ParseJSON decodes a JSON document into a value, keeping the key order of
// every object as written.
func ParseJSON(data []byte) (NJValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return nil, wrapDecodeError(dec, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, wrapDecodeError(dec, err)
	}
	return v, nil
}

func wrapDecodeError(dec *json.Decoder, err error) error {
	var syn *json.SyntaxError
	if errors.As(err, &syn) {
		return &DecodeError{Offset: syn.Offset, Err: err}
	}
	return &DecodeError{Offset: dec.InputOffset(), Err: err}
}

func decodeValue(dec *json.Decoder) (NJValue, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := EmptyRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("expected object key, got %v", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				rec.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		case '[':
			items := []NJValue{}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return nil, err
				}
				items = append(items, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return NewList(items), nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case string:
		return NewString(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return NewNumber(f), nil
	case bool:
		return NewBool(t), nil
	case nil:
		return NewNull(), nil
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// FromAny converts a plain Go value, as produced by encoding/json or
// database/sql scanning, into a value. Map keys are sorted since Go maps
// carry no order.
func FromAny(v any) NJValue {
	if v == nil {
		return NewNull()
	}
	switch val := v.(type) {
	case NJValue:
		return val
	case bool:
		return NewBool(val)
	case float64:
		return NewNumber(val)
	case float32:
		return NewNumber(float64(val))
	case int:
		return NewNumber(float64(val))
	case int32:
		return NewNumber(float64(val))
	case int64:
		return NewNumber(float64(val))
	case uint64:
		return NewNumber(float64(val))
	case string:
		return NewString(val)
	case []byte:
		return NewString(string(val))
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return NewNumber(f)
		}
		return NewString(val.String())
	case []any:
		items := make([]NJValue, len(val))
		for i, item := range val {
			items[i] = FromAny(item)
		}
		return NewList(items)
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := EmptyRecord()
		for _, k := range keys {
			rec.Set(k, FromAny(val[k]))
		}
		return rec
	case fmt.Stringer:
		return NewString(val.String())
	}
	return NewString(fmt.Sprint(v))
}

// ToAny converts a value into plain Go data. Record order is lost.
func ToAny(v NJValue) any {
	switch val := v.(type) {
	case NJBool:
		return val.Value
	case NJNumber:
		return val.Value
	case NJString:
		return val.Value
	case NJList:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = ToAny(item)
		}
		return items
	case NJRecord:
		m := make(map[string]any, len(val.Pairs))
		for _, kv := range val.Pairs {
			m[kv.Key] = ToAny(kv.Value)
		}
		return m
	}
	return nil
}

// FormatNumber formats a float64 as an integer string if it's a whole number.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && !math.IsInf(n, 0) && !math.IsNaN(n) && math.Abs(n) < 1e18 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
