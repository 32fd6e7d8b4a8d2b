package evaluator

import (
	"math"
	"strconv"
	"strings"
	"time"
)

const epsilon = 1e-10

// MaxRepeat bounds the length of a string or list built by repetition.
const MaxRepeat = 1 << 24

// Count converts n to an iteration or repetition count of at most limit.
// Counts at or below zero are 0; NaN, infinities and counts above limit
// are rejected.
func Count(n float64, limit int) (int, bool) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	if n <= 0 {
		return 0, true
	}
	if n > float64(limit) {
		return 0, false
	}
	return int(n), true
}

// Add implements the polymorphic '+' of math.add.
func Add(a, b NJValue) NJValue {
	an, aNum := a.(NJNumber)
	bn, bNum := b.(NJNumber)
	if aNum && bNum {
		return NewNumber(an.Value + bn.Value)
	}

	_, aStr := a.(NJString)
	_, bStr := b.(NJString)
	if aStr || bStr {
		return NewString(ToString(a) + ToString(b))
	}

	al, aList := a.(NJList)
	bl, bList := b.(NJList)
	switch {
	case aList && bList:
		items := make([]NJValue, 0, len(al.Items)+len(bl.Items))
		items = append(items, al.Items...)
		return NewList(append(items, bl.Items...))
	case aList:
		items := make([]NJValue, 0, len(al.Items)+1)
		items = append(items, al.Items...)
		return NewList(append(items, b))
	case bList:
		items := make([]NJValue, 0, len(bl.Items)+1)
		items = append(items, a)
		return NewList(append(items, bl.Items...))
	}

	ar, aRec := a.(NJRecord)
	br, bRec := b.(NJRecord)
	if aRec && bRec {
		out := ar.Clone()
		for _, kv := range br.Pairs {
			out.Set(kv.Key, kv.Value)
		}
		return out
	}

	ab, aBool := a.(NJBool)
	bb, bBool := b.(NJBool)
	if aBool && bBool {
		return NewBool(ab.Value || bb.Value)
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return NewNumber(x + y)
		}
	}
	return NewString(ToString(a) + ToString(b))
}

// Subtract implements math.subtract.
func Subtract(a, b NJValue) NJValue {
	an, aNum := a.(NJNumber)
	bn, bNum := b.(NJNumber)
	if aNum && bNum {
		return NewNumber(an.Value - bn.Value)
	}

	switch left := a.(type) {
	case NJList:
		items := make([]NJValue, 0, len(left.Items))
		for _, item := range left.Items {
			if !Equal(item, b) {
				items = append(items, item)
			}
		}
		return NewList(items)
	case NJRecord:
		if key, ok := b.(NJString); ok {
			return left.Without(key.Value)
		}
	case NJString:
		if sub, ok := b.(NJString); ok {
			if sub.Value == "" {
				return left
			}
			return NewString(strings.ReplaceAll(left.Value, sub.Value, ""))
		}
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return NewNumber(x - y)
		}
	}
	return NewNull()
}

// Multiply implements math.multiply.
func Multiply(a, b NJValue) NJValue {
	an, aNum := a.(NJNumber)
	bn, bNum := b.(NJNumber)
	if aNum && bNum {
		return NewNumber(an.Value * bn.Value)
	}

	if s, ok := a.(NJString); ok && bNum {
		return repeatString(s.Value, bn.Value)
	}
	if s, ok := b.(NJString); ok && aNum {
		return repeatString(s.Value, an.Value)
	}
	if l, ok := a.(NJList); ok && bNum {
		return repeatList(l.Items, bn.Value)
	}
	if l, ok := b.(NJList); ok && aNum {
		return repeatList(l.Items, an.Value)
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return NewNumber(x * y)
		}
	}
	return NewNull()
}

// repeatCount bounds a repetition of a size-element value by MaxRepeat.
func repeatCount(size int, n float64) (int, bool) {
	if size == 0 {
		return 0, !math.IsNaN(n) && !math.IsInf(n, 0)
	}
	return Count(n, MaxRepeat/size)
}

// repeatString and repeatList yield null when the count is not finite or
// the result would exceed MaxRepeat.
func repeatString(s string, n float64) NJValue {
	count, ok := repeatCount(len(s), n)
	if !ok {
		return NewNull()
	}
	return NewString(strings.Repeat(s, count))
}

func repeatList(items []NJValue, n float64) NJValue {
	count, ok := repeatCount(len(items), n)
	if !ok {
		return NewNull()
	}
	out := make([]NJValue, 0, len(items)*count)
	for i := 0; i < count; i++ {
		out = append(out, items...)
	}
	return NewList(out)
}

// Divide implements math.divide. Division by zero yields null.
func Divide(a, b NJValue) NJValue {
	an, aNum := a.(NJNumber)
	bn, bNum := b.(NJNumber)
	if aNum && bNum {
		if bn.Value == 0 {
			return NewNull()
		}
		return quotient(an.Value / bn.Value)
	}

	if s, ok := a.(NJString); ok {
		if sep, ok := b.(NJString); ok {
			return splitString(s.Value, sep.Value)
		}
	}
	if l, ok := a.(NJList); ok && bNum {
		if math.IsNaN(bn.Value) || bn.Value < 1 {
			return NewNull()
		}
		size := len(l.Items)
		if bn.Value < float64(size) {
			size = int(bn.Value)
		}
		if size == 0 {
			return NewList([]NJValue{})
		}
		chunks := make([]NJValue, 0, (len(l.Items)+size-1)/size)
		for i := 0; i < len(l.Items); i += size {
			end := i + size
			if end > len(l.Items) {
				end = len(l.Items)
			}
			chunk := make([]NJValue, end-i)
			copy(chunk, l.Items[i:end])
			chunks = append(chunks, NewList(chunk))
		}
		return NewList(chunks)
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok && y != 0 {
			return quotient(x / y)
		}
	}
	return NewNull()
}

func splitString(s, sep string) NJValue {
	var parts []string
	if sep == "" {
		for _, r := range s {
			parts = append(parts, string(r))
		}
	} else {
		parts = strings.Split(s, sep)
	}
	items := make([]NJValue, len(parts))
	for i, p := range parts {
		items[i] = NewString(p)
	}
	return NewList(items)
}

// Modulo implements math.modulo over numeric coercions.
func Modulo(a, b NJValue) NJValue {
	x, ok := numeric(a)
	if !ok {
		return NewNull()
	}
	y, ok := numeric(b)
	if !ok || y == 0 {
		return NewNull()
	}
	return quotient(math.Mod(x, y))
}

// quotient is null for the NaN that non-finite operands produce.
func quotient(f float64) NJValue {
	if math.IsNaN(f) {
		return NewNull()
	}
	return NewNumber(f)
}

// Equal reports whether a and b are equal under NJIL's loose equality.
func Equal(a, b NJValue) bool {
	if a == nil {
		a = NewNull()
	}
	if b == nil {
		b = NewNull()
	}

	switch x := a.(type) {
	case NJNumber:
		switch y := b.(type) {
		case NJNumber:
			return math.Abs(x.Value-y.Value) < epsilon
		case NJString:
			f, err := strconv.ParseFloat(strings.TrimSpace(y.Value), 64)
			return err == nil && math.Abs(x.Value-f) < epsilon
		}
	case NJString:
		if _, ok := b.(NJNumber); ok {
			return Equal(b, a)
		}
	case NJBool:
		return x.Value == Truthiness(b)
	case NJList:
		if y, ok := b.(NJList); ok {
			if len(x.Items) != len(y.Items) {
				return false
			}
			for i := range x.Items {
				if !Equal(x.Items[i], y.Items[i]) {
					return false
				}
			}
			return true
		}
	case NJRecord:
		if y, ok := b.(NJRecord); ok {
			if len(x.Pairs) != len(y.Pairs) {
				return false
			}
			for _, kv := range x.Pairs {
				other, found := y.Get(kv.Key)
				if !found || !Equal(kv.Value, other) {
					return false
				}
			}
			return true
		}
	case NJNull:
		if _, ok := b.(NJNull); ok {
			return true
		}
	}

	if y, ok := b.(NJBool); ok {
		return y.Value == Truthiness(a)
	}
	return ToString(a) == ToString(b)
}

// Compare orders a against b. ok is false when the operands are incomparable.
func Compare(a, b NJValue) (int, bool) {
	switch x := a.(type) {
	case NJNumber:
		switch y := b.(type) {
		case NJNumber:
			return cmpFloat(x.Value, y.Value), true
		case NJString:
			if f, err := strconv.ParseFloat(strings.TrimSpace(y.Value), 64); err == nil {
				return cmpFloat(x.Value, f), true
			}
		}
	case NJString:
		switch y := b.(type) {
		case NJString:
			return strings.Compare(x.Value, y.Value), true
		case NJNumber:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x.Value), 64); err == nil {
				return cmpFloat(f, y.Value), true
			}
		}
	case NJBool:
		if y, ok := b.(NJBool); ok {
			return cmpFloat(boolNum(x.Value), boolNum(y.Value)), true
		}
	case NJList:
		if y, ok := b.(NJList); ok {
			return cmpFloat(float64(len(x.Items)), float64(len(y.Items))), true
		}
	case NJRecord:
		if y, ok := b.(NJRecord); ok {
			return cmpFloat(float64(len(x.Pairs)), float64(len(y.Pairs))), true
		}
	}

	if x, ok := numeric(a); ok {
		if y, ok := numeric(b); ok {
			return cmpFloat(x, y), true
		}
	}
	return 0, false
}

func cmpFloat(x, y float64) int {
	switch {
	case math.Abs(x-y) < epsilon:
		return 0
	case x < y:
		return -1
	}
	return 1
}

func boolNum(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ClampDuration converts nanoseconds to a Duration, saturating at the
// largest representable value. NaN and negative inputs become zero.
func ClampDuration(ns float64) time.Duration {
	switch {
	case !(ns > 0):
		return 0
	case ns >= math.MaxInt64:
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(ns)
}
