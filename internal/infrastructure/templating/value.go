package templating

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the variant held by a Value
type Kind uint8

const (
	KindUndefined Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindTime
	KindBytes
	KindList
	KindMap
)

// String returns the kind name
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is the tagged context value a template is evaluated against.
// The zero Value is undefined.
type Value struct {
	kind Kind
	str  string
	num  decimal.Decimal
	b    bool
	t    time.Time
	raw  []byte
	list []Value
	m    map[string]Value
	safe bool
}

// Undefined returns the value of a path that does not exist
func Undefined() Value { return Value{} }

// Null returns an explicit null value
func Null() Value { return Value{kind: KindNull} }

// String wraps a string that will be escaped on output
func String(s string) Value { return Value{kind: KindString, str: s} }

// SafeString wraps markup that is inserted without escaping
func SafeString(s string) Value { return Value{kind: KindString, str: s, safe: true} }

// Number wraps a decimal number
func Number(d decimal.Decimal) Value { return Value{kind: KindNumber, num: d} }

// Int wraps an integer
func Int(i int64) Value { return Number(decimal.NewFromInt(i)) }

// Bool wraps a boolean
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time wraps a timestamp
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bytes wraps raw bytes
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }

// List wraps a sequence
func List(items []Value) Value { return Value{kind: KindList, list: items} }

// Map wraps a mapping
func Map(m map[string]Value) Value { return Value{kind: KindMap, m: m} }

// FromAny converts plain Go data (as decoded from JSON or YAML) into a Value
func FromAny(v any) Value {
	switch x := v.(type) {
	case nil:
		return Null()
	case Value:
		return x
	case string:
		return String(x)
	case bool:
		return Bool(x)
	case int:
		return Int(int64(x))
	case int8:
		return Int(int64(x))
	case int16:
		return Int(int64(x))
	case int32:
		return Int(int64(x))
	case int64:
		return Int(x)
	case uint:
		return Number(decimal.NewFromUint64(uint64(x)))
	case uint8:
		return Int(int64(x))
	case uint16:
		return Int(int64(x))
	case uint32:
		return Int(int64(x))
	case uint64:
		return Number(decimal.NewFromUint64(x))
	case float32:
		return Number(decimal.NewFromFloat32(x))
	case float64:
		return Number(decimal.NewFromFloat(x))
	case json.Number:
		if d, err := decimal.NewFromString(x.String()); err == nil {
			return Number(d)
		}
		return String(x.String())
	case decimal.Decimal:
		return Number(x)
	case time.Time:
		return Time(x)
	case *time.Time:
		if x == nil {
			return Null()
		}
		return Time(*x)
	case []byte:
		return Bytes(x)
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = FromAny(item)
		}
		return List(items)
	case map[string]any:
		m := make(map[string]Value, len(x))
		for k, item := range x {
			m[k] = FromAny(item)
		}
		return Map(m)
	case fmt.Stringer:
		return String(x.String())
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return FromAny(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = FromAny(rv.Index(i).Interface())
		}
		return List(items)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = FromAny(iter.Value().Interface())
		}
		return Map(m)
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(decimal.NewFromUint64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return Number(decimal.NewFromFloat(rv.Float()))
	}
	return String(fmt.Sprint(rv.Interface()))
}

// Kind returns the variant tag
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether the value came from a missing path
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// IsNone reports undefined or null
func (v Value) IsNone() bool { return v.kind == KindUndefined || v.kind == KindNull }

// IsSafe reports whether the value skips output escaping
func (v Value) IsSafe() bool { return v.safe }

// Truthy follows the usual template rules: empty, zero, false, null and undefined are false
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindNumber:
		return !v.num.IsZero()
	case KindBool:
		return v.b
	case KindTime:
		return !v.t.IsZero()
	case KindBytes:
		return len(v.raw) > 0
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	default:
		return false
	}
}

// String renders the value as output text. Maps render with sorted keys.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num.String()
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindTime:
		return v.t.Format(time.RFC3339)
	case KindBytes:
		return string(v.raw)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case KindMap:
		keys := v.Keys()
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return ""
	}
}

// Lookup returns a map entry
func (v Value) Lookup(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	item, ok := v.m[key]
	return item, ok
}

// Index returns a list element; negative indexes count from the end
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList {
		return Value{}, false
	}
	if i < 0 {
		i += len(v.list)
	}
	if i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Len returns the element count of a list or map, or the rune count of a string
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	case KindString:
		return len([]rune(v.str))
	case KindBytes:
		return len(v.raw)
	default:
		return 0
	}
}

// Keys returns the sorted keys of a map
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Items returns what a for loop iterates: list elements, or sorted map keys
func (v Value) Items() []Value {
	switch v.kind {
	case KindList:
		return v.list
	case KindMap:
		keys := v.Keys()
		items := make([]Value, len(keys))
		for i, k := range keys {
			items[i] = String(k)
		}
		return items
	default:
		return nil
	}
}

// Decimal converts numbers and numeric strings
func (v Value) Decimal() (decimal.Decimal, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindString:
		d, err := decimal.NewFromString(strings.TrimSpace(v.str))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case KindBool:
		if v.b {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	default:
		return decimal.Zero, false
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// AsTime converts timestamps and ISO-8601 strings
func (v Value) AsTime() (time.Time, bool) {
	switch v.kind {
	case KindTime:
		return v.t, true
	case KindString:
		s := strings.TrimSpace(v.str)
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// RawBytes returns the bytes of a bytes value, or the UTF-8 text of anything else
func (v Value) RawBytes() []byte {
	if v.kind == KindBytes {
		return v.raw
	}
	return []byte(v.String())
}

func equalValues(a, b Value) bool {
	if a.IsNone() || b.IsNone() {
		return a.IsNone() && b.IsNone()
	}
	if a.kind == KindNumber && b.kind == KindNumber {
		return a.num.Equal(b.num)
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindString:
		return a.str == b.str
	case KindBool:
		return a.b == b.b
	case KindTime:
		return a.t.Equal(b.t)
	case KindBytes:
		return string(a.raw) == string(b.raw)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !equalValues(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.m) != len(b.m) {
			return false
		}
		for k, av := range a.m {
			bv, ok := b.m[k]
			if !ok || !equalValues(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// compareValues orders numbers, strings and times; ok is false for other pairs
func compareValues(a, b Value) (int, bool) {
	switch {
	case a.kind == KindNumber && b.kind == KindNumber:
		return a.num.Cmp(b.num), true
	case a.kind == KindString && b.kind == KindString:
		return strings.Compare(a.str, b.str), true
	case a.kind == KindTime && b.kind == KindTime:
		return a.t.Compare(b.t), true
	}
	return 0, false
}

func containsValue(container, item Value) bool {
	switch container.kind {
	case KindList:
		for _, v := range container.list {
			if equalValues(v, item) {
				return true
			}
		}
	case KindMap:
		_, ok := container.m[item.String()]
		return ok
	case KindString:
		return strings.Contains(container.str, item.String())
	}
	return false
}
