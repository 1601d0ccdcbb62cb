package leodocs

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TemplateData is the data context passed to a render.
type TemplateData map[string]interface{}

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindMap
	KindList
	KindAsset
)

func (k Kind) String() string {
	switch k {
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
	case KindMap:
		return "map"
	case KindList:
		return "list"
	case KindAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// Value is a data context value. The zero Value is null.
type Value struct {
	kind  Kind
	str   string
	num   float64
	isInt bool
	i     int64
	b     bool
	t     time.Time
	m     map[string]Value
	l     []Value
	asset *ImageAsset
}

// Null returns the absent value.
func Null() Value { return Value{} }

// String returns a text value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Time returns a timestamp value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Float returns a fractional number value.
func Float(f float64) Value { return Value{kind: KindNumber, num: f} }

// List returns a sequence value. The slice is not copied.
func List(items []Value) Value { return Value{kind: KindList, l: items} }

// Int returns an integral number value.
func Int(i int64) Value {
	return Value{kind: KindNumber, num: float64(i), isInt: true, i: i}
}

// Map returns a mapping value. The map is not copied.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, m: fields}
}

// Asset returns an image value.
func Asset(a *ImageAsset) Value {
	if a == nil {
		return Null()
	}
	return Value{kind: KindAsset, asset: a}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

// Field returns a field of a mapping value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	f, ok := v.m[name]
	return f, ok
}

// Keys returns the sorted field names of a mapping value.
func (v Value) Keys() []string {
	keys := make([]string, 0, len(v.m))
	for k := range v.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Items returns the elements of a list value.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.l
}

// Len returns the length of strings, lists and maps, and 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindString:
		return len(v.str)
	case KindList:
		return len(v.l)
	case KindMap:
		return len(v.m)
	default:
		return 0
	}
}

// Number returns the numeric content of a number value.
func (v Value) Number() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// AssetValue returns the image of an asset value.
func (v Value) AssetValue() (*ImageAsset, bool) {
	return v.asset, v.kind == KindAsset
}

// Truthy reports whether a value is present, non-empty, and not false or zero.
// Strings are truthy whenever they are non-empty, including "false" and "0".
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindString:
		return v.str != ""
	case KindNumber:
		return v.num != 0
	case KindBool:
		return v.b
	case KindTime:
		return !v.t.IsZero()
	case KindMap:
		return len(v.m) > 0
	case KindList:
		return len(v.l) > 0
	case KindAsset:
		return v.asset != nil && len(v.asset.Data) > 0
	default:
		return false
	}
}

// Format stringifies a value for substitution into document text.
func (v Value) Format(dateLayout string) string {
	switch v.kind {
	case KindNull:
		return ""
	case KindString:
		return v.str
	case KindNumber:
		if v.isInt {
			return strconv.FormatInt(v.i, 10)
		}
		if v.num == math.Trunc(v.num) && math.Abs(v.num) < 1e15 {
			return strconv.FormatFloat(v.num, 'f', -1, 64)
		}
		return strconv.FormatFloat(v.num, 'g', 15, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindTime:
		if dateLayout == "" {
			dateLayout = time.RFC3339
		}
		return v.t.Format(dateLayout)
	case KindList:
		parts := make([]string, len(v.l))
		for i, item := range v.l {
			parts[i] = item.Format(dateLayout)
		}
		return strings.Join(parts, ", ")
	case KindMap, KindAsset:
		// Structured values have no text form.
		return ""
	default:
		return ""
	}
}

func (v Value) String() string {
	return v.Format(time.RFC3339)
}

// ValueOf converts a Go value into a Value. It understands the shapes JSON
// and YAML decoders produce, typed slices and maps, structs (exported fields,
// honoring json tags), pointers, time.Time and image assets.
func ValueOf(x interface{}) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case Value:
		return v
	case string:
		return String(v)
	case bool:
		return Bool(v)
	case int:
		return Int(int64(v))
	case int8:
		return Int(int64(v))
	case int16:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return unsignedValue(uint64(v))
	case uint8:
		return Int(int64(v))
	case uint16:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return unsignedValue(v)
	case float32:
		return floatValue(float64(v))
	case float64:
		return floatValue(v)
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return Int(i)
		}
		if f, err := v.Float64(); err == nil {
			return Float(f)
		}
		return String(v.String())
	case time.Time:
		return Time(v)
	case *time.Time:
		if v == nil {
			return Null()
		}
		return Time(*v)
	case ImageAsset:
		a := v
		return Asset(&a)
	case *ImageAsset:
		return Asset(v)
	case []byte:
		return Asset(&ImageAsset{Data: v})
	case TemplateData:
		return mapValue(v)
	case map[string]interface{}:
		return mapValue(v)
	case map[string]Value:
		return Map(v)
	case map[interface{}]interface{}:
		fields := make(map[string]Value, len(v))
		for k, item := range v {
			fields[fmt.Sprint(k)] = ValueOf(item)
		}
		return Map(fields)
	case []interface{}:
		items := make([]Value, len(v))
		for i, item := range v {
			items[i] = ValueOf(item)
		}
		return List(items)
	case []Value:
		return List(v)
	case fmt.Stringer:
		if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
			return Null()
		}
		if _, isStruct := indirectStruct(reflect.ValueOf(v)); !isStruct {
			return String(v.String())
		}
	}
	return reflectValue(reflect.ValueOf(x))
}

func unsignedValue(u uint64) Value {
	if u > math.MaxInt64 {
		return Float(float64(u))
	}
	return Int(int64(u))
}

func floatValue(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Float(f)
}

func mapValue(m map[string]interface{}) Value {
	fields := make(map[string]Value, len(m))
	for k, item := range m {
		fields[k] = ValueOf(item)
	}
	return Map(fields)
}

func indirectStruct(rv reflect.Value) (reflect.Value, bool) {
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return rv, false
		}
		rv = rv.Elem()
	}
	return rv, rv.Kind() == reflect.Struct
}

func reflectValue(rv reflect.Value) Value {
	if !rv.IsValid() {
		return Null()
	}
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Null()
		}
		return interfaceValue(rv.Elem())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Bool(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return unsignedValue(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return floatValue(rv.Float())
	case reflect.Slice:
		if rv.IsNil() {
			return Null()
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Asset(&ImageAsset{Data: rv.Bytes()})
		}
		fallthrough
	case reflect.Array:
		items := make([]Value, rv.Len())
		for i := range items {
			items[i] = interfaceValue(rv.Index(i))
		}
		return List(items)
	case reflect.Map:
		if rv.IsNil() {
			return Null()
		}
		fields := make(map[string]Value, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			fields[fmt.Sprint(iter.Key())] = interfaceValue(iter.Value())
		}
		return Map(fields)
	case reflect.Struct:
		return structValue(rv)
	default:
		return String(fmt.Sprint(rv))
	}
}

func structValue(rv reflect.Value) Value {
	rt := rv.Type()
	fields := make(map[string]Value, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		fv := rv.Field(i)
		if f.Anonymous {
			if inner, ok := indirectStruct(fv); ok {
				for k, v := range structValue(inner).m {
					if _, exists := fields[k]; !exists {
						fields[k] = v
					}
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			tagName, _, _ := strings.Cut(tag, ",")
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		fields[name] = interfaceValue(fv)
	}
	return Map(fields)
}

// interfaceValue converts rv, falling back to reflection for values reached
// through unexported embedded structs.
func interfaceValue(rv reflect.Value) Value {
	if rv.CanInterface() {
		return ValueOf(rv.Interface())
	}
	return reflectValue(rv)
}
