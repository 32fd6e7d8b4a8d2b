// Package evaluator implements the NJIL evaluation engine: the value model,
// instruction dispatch, control-flow outcomes, path addressing and coercion.
package evaluator

// NJValue is the interface for all NJIL runtime values.
// The sealed marker method restricts implementations to this package.
type NJValue interface {
	njvalue() // sealed marker
}

// NJNull represents a null value.
type NJNull struct{}

func (NJNull) njvalue() {}

// NJBool represents a boolean value.
type NJBool struct {
	Value bool
}

func (NJBool) njvalue() {}

// NJNumber represents a numeric value. Integers and floats share float64.
type NJNumber struct {
	Value float64
}

func (NJNumber) njvalue() {}

// NJString represents a string value.
type NJString struct {
	Value string
}

func (NJString) njvalue() {}

// NJList represents an ordered sequence of values.
type NJList struct {
	Items []NJValue
}

func (NJList) njvalue() {}

// KeyValue is a key-value pair in an ordered record.
type KeyValue struct {
	Key   string
	Value NJValue
}

// NJRecord represents a mapping from string keys to values.
// Insertion order is preserved via the Pairs slice.
// Records are shared freely between frames, so code that needs a modified
// record works on Clone (or With/Without) rather than calling Set on a shared one.
type NJRecord struct {
	Pairs []KeyValue
	index map[string]int // lazy index for lookups
}

func (NJRecord) njvalue() {}

// NewNull creates a null value.
func NewNull() NJValue {
	return NJNull{}
}

// NewBool creates a boolean value.
func NewBool(b bool) NJValue {
	return NJBool{Value: b}
}

// NewNumber creates a numeric value.
func NewNumber(n float64) NJValue {
	return NJNumber{Value: n}
}

// NewString creates a string value.
func NewString(s string) NJValue {
	return NJString{Value: s}
}

// NewList creates a list value.
func NewList(items []NJValue) NJValue {
	if items == nil {
		items = []NJValue{}
	}
	return NJList{Items: items}
}

// NewRecord creates a record value from key-value pairs.
// Later duplicates of a key overwrite the earlier value in place.
func NewRecord(pairs []KeyValue) NJValue {
	r := NJRecord{Pairs: make([]KeyValue, 0, len(pairs))}
	for _, kv := range pairs {
		r.Set(kv.Key, kv.Value)
	}
	return r
}

// EmptyRecord returns a record with no entries.
func EmptyRecord() NJRecord {
	return NJRecord{Pairs: []KeyValue{}}
}

func (r *NJRecord) ensureIndex() {
	if r.index != nil && len(r.index) == len(r.Pairs) {
		return
	}
	r.index = make(map[string]int, len(r.Pairs))
	for i, kv := range r.Pairs {
		r.index[kv.Key] = i
	}
}

// Get retrieves a value by key from the record.
func (r *NJRecord) Get(key string) (NJValue, bool) {
	r.ensureIndex()
	i, ok := r.index[key]
	if !ok {
		return nil, false
	}
	return r.Pairs[i].Value, true
}

// Has reports whether the record contains key.
func (r *NJRecord) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set sets a value by key in the record, preserving insertion order.
// Only call Set on records this code owns.
func (r *NJRecord) Set(key string, val NJValue) {
	r.ensureIndex()
	if i, ok := r.index[key]; ok {
		r.Pairs[i].Value = val
		return
	}
	r.index[key] = len(r.Pairs)
	r.Pairs = append(r.Pairs, KeyValue{Key: key, Value: val})
}

// Keys returns all keys in insertion order.
func (r *NJRecord) Keys() []string {
	keys := make([]string, len(r.Pairs))
	for i, kv := range r.Pairs {
		keys[i] = kv.Key
	}
	return keys
}

// Len returns the number of entries.
func (r NJRecord) Len() int {
	return len(r.Pairs)
}

// Clone returns a shallow copy whose pair slice can be mutated independently.
func (r NJRecord) Clone() NJRecord {
	pairs := make([]KeyValue, len(r.Pairs))
	copy(pairs, r.Pairs)
	return NJRecord{Pairs: pairs}
}

// With returns a copy of the record with key set to val.
func (r NJRecord) With(key string, val NJValue) NJRecord {
	c := r.Clone()
	c.Set(key, val)
	return c
}

// Without returns a copy of the record with key removed.
func (r NJRecord) Without(key string) NJRecord {
	pairs := make([]KeyValue, 0, len(r.Pairs))
	for _, kv := range r.Pairs {
		if kv.Key != key {
			pairs = append(pairs, kv)
		}
	}
	return NJRecord{Pairs: pairs}
}

// Truthiness returns the boolean interpretation of a value.
// null, false, 0, "", [] and {} are falsy; everything else is truthy.
func Truthiness(v NJValue) bool {
	switch val := v.(type) {
	case NJNull:
		return false
	case NJBool:
		return val.Value
	case NJNumber:
		return val.Value != 0
	case NJString:
		return val.Value != ""
	case NJList:
		return len(val.Items) > 0
	case NJRecord:
		return len(val.Pairs) > 0
	default:
		return false
	}
}

// IsNull reports whether v is null or missing.
func IsNull(v NJValue) bool {
	if v == nil {
		return true
	}
	_, ok := v.(NJNull)
	return ok
}
