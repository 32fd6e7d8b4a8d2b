package evaluator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/HelloAIXIAOJI/NeoJiLang/pkg/diagnostics"
)

// ToBool converts any value to a boolean using Truthiness.
func ToBool(v NJValue) NJValue {
	return NewBool(Truthiness(v))
}

// ToNumber converts v to a number. Strings that do not parse yield null.
func ToNumber(v NJValue) NJValue {
	switch val := v.(type) {
	case NJNumber:
		return val
	case NJString:
		f, err := strconv.ParseFloat(strings.TrimSpace(val.Value), 64)
		if err != nil {
			return NewNull()
		}
		return NewNumber(f)
	case NJBool:
		if val.Value {
			return NewNumber(1)
		}
		return NewNumber(0)
	case NJList:
		switch len(val.Items) {
		case 0:
			return NewNumber(0)
		case 1:
			return ToNumber(val.Items[0])
		}
		return NewNumber(float64(len(val.Items)))
	case NJRecord:
		return NewNumber(float64(len(val.Pairs)))
	}
	return NewNumber(0)
}

// numeric returns v as a float64 when ToNumber succeeds.
func numeric(v NJValue) (float64, bool) {
	n, ok := ToNumber(v).(NJNumber)
	if !ok {
		return 0, false
	}
	return n.Value, true
}

// ToString renders v as display text.
func ToString(v NJValue) string {
	switch val := v.(type) {
	case nil, NJNull:
		return "null"
	case NJBool:
		return strconv.FormatBool(val.Value)
	case NJNumber:
		return FormatNumber(val.Value)
	case NJString:
		return val.Value
	case NJList:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			parts[i] = ToString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case NJRecord:
		if len(val.Pairs) == 2 && val.Has("type") {
			if inner, ok := val.Get("value"); ok {
				return ToString(inner)
			}
		}
		return ValueToJSONString(val)
	}
	return ""
}

// ToArray converts v to a list.
func ToArray(v NJValue) NJValue {
	switch val := v.(type) {
	case NJList:
		return val
	case NJString:
		runes := []rune(val.Value)
		items := make([]NJValue, len(runes))
		for i, r := range runes {
			items[i] = NewString(string(r))
		}
		return NewList(items)
	case NJRecord:
		items := make([]NJValue, len(val.Pairs))
		for i, kv := range val.Pairs {
			items[i] = entryRecord(kv.Key, kv.Value)
		}
		return NewList(items)
	}
	return NewList([]NJValue{v})
}

// ToObject converts v to a record.
func ToObject(v NJValue) NJValue {
	switch val := v.(type) {
	case NJRecord:
		return val
	case NJList:
		rec := EmptyRecord()
		for i, item := range val.Items {
			rec.Set(strconv.Itoa(i), item)
		}
		return rec
	case NJString:
		rec := EmptyRecord()
		runes := []rune(val.Value)
		for i, r := range runes {
			rec.Set(strconv.Itoa(i), NewString(string(r)))
		}
		rec.Set("length", NewNumber(float64(len(runes))))
		return rec
	}
	return NewRecord([]KeyValue{{Key: "value", Value: v}})
}

// ConvertTo converts v to the type named by typeName.
func ConvertTo(v NJValue, typeName string) (NJValue, error) {
	switch strings.ToLower(typeName) {
	case "boolean", "bool":
		return ToBool(v), nil
	case "number", "int", "float":
		return ToNumber(v), nil
	case "string", "str":
		return NewString(ToString(v)), nil
	case "array", "list":
		return ToArray(v), nil
	case "object", "map":
		return ToObject(v), nil
	}
	return nil, &NJRuntimeError{
		Code:    diagnostics.EType,
		Message: fmt.Sprintf("unsupported target type '%s'", typeName),
		Hint:    "use one of boolean, number, string, array, object",
	}
}

// TypeOf returns the NJIL type name of v.
func TypeOf(v NJValue) string {
	switch v.(type) {
	case NJBool:
		return "boolean"
	case NJNumber:
		return "number"
	case NJString:
		return "string"
	case NJList:
		return "array"
	case NJRecord:
		return "object"
	}
	return "null"
}

func entryRecord(key string, value NJValue) NJValue {
	return NewRecord([]KeyValue{
		{Key: "key", Value: NewString(key)},
		{Key: "value", Value: value},
	})
}
