package scriptobject

import "sort"

// mapObject is a concrete Object backed by a Go map, used by tests and
// the cmd/avancedb entrypoint in place of the externally-owned
// script-object representation. Field order is the sorted key order,
// fixed once at construction so repeated NameAt/TypeAt calls are
// stable.
type mapObject struct {
	names  []string
	values []interface{}
}

// NewObject wraps a map[string]interface{} as a script-object Object.
// Supported value kinds: nil, bool, int/int32/int64, float32/float64,
// string, map[string]interface{}, []interface{}.
func NewObject(fields map[string]interface{}) Object {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]interface{}, len(names))
	for i, name := range names {
		values[i] = fields[name]
	}

	return &mapObject{names: names, values: values}
}

func (o *mapObject) Count() int { return len(o.names) }

func (o *mapObject) NameAt(i int) string { return o.names[i] }

func (o *mapObject) TypeAt(name string) (Type, int) {
	for i, n := range o.names {
		if n == name {
			return typeOf(o.values[i]), i
		}
	}
	return TypeUndefined, -1
}

func (o *mapObject) GetBool(i int) bool      { v, _ := o.values[i].(bool); return v }
func (o *mapObject) GetInt32(i int) int32    { return toInt32(o.values[i]) }
func (o *mapObject) GetDouble(i int) float64 { return toFloat64(o.values[i]) }
func (o *mapObject) GetString(i int) string  { v, _ := o.values[i].(string); return v }

func (o *mapObject) GetObject(i int) Object {
	if m, ok := o.values[i].(map[string]interface{}); ok {
		return NewObject(m)
	}
	return NewObject(nil)
}

func (o *mapObject) GetArray(i int) Array {
	if s, ok := o.values[i].([]interface{}); ok {
		return NewArray(s)
	}
	return NewArray(nil)
}

type sliceArray struct {
	values []interface{}
}

// NewArray wraps a []interface{} as a script-object Array.
func NewArray(values []interface{}) Array {
	return &sliceArray{values: values}
}

func (a *sliceArray) Count() int { return len(a.values) }

func (a *sliceArray) TypeAt(i int) Type { return typeOf(a.values[i]) }

func (a *sliceArray) GetBool(i int) bool      { v, _ := a.values[i].(bool); return v }
func (a *sliceArray) GetInt32(i int) int32    { return toInt32(a.values[i]) }
func (a *sliceArray) GetDouble(i int) float64 { return toFloat64(a.values[i]) }
func (a *sliceArray) GetString(i int) string  { v, _ := a.values[i].(string); return v }

func (a *sliceArray) GetObject(i int) Object {
	if m, ok := a.values[i].(map[string]interface{}); ok {
		return NewObject(m)
	}
	return NewObject(nil)
}

func (a *sliceArray) GetArray(i int) Array {
	if s, ok := a.values[i].([]interface{}); ok {
		return NewArray(s)
	}
	return NewArray(nil)
}

func typeOf(v interface{}) Type {
	switch v.(type) {
	case nil:
		return TypeNull
	case bool:
		return TypeBool
	case int, int32:
		return TypeInt32
	case int64, float32, float64:
		return TypeDouble
	case string:
		return TypeString
	case map[string]interface{}:
		return TypeObject
	case []interface{}:
		return TypeArray
	default:
		return TypeUndefined
	}
}

func toInt32(v interface{}) int32 {
	switch x := v.(type) {
	case int:
		return int32(x)
	case int32:
		return x
	case int64:
		return int32(x)
	case float32:
		return int32(x)
	case float64:
		return int32(x)
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case float64:
		return x
	default:
		return 0
	}
}

// ToNative walks an Object back into a plain Go map[string]interface{},
// used where a concrete document body needs to be handed to the JS
// runtime adapter or hashed. This is a reflection-driven export, not a
// JSON parser — it never touches document text.
func ToNative(obj Object) map[string]interface{} {
	if obj == nil {
		return map[string]interface{}{}
	}
	out := make(map[string]interface{}, obj.Count())
	for i := 0; i < obj.Count(); i++ {
		name := obj.NameAt(i)
		_, idx := obj.TypeAt(name)
		out[name] = nativeFieldValue(obj, idx)
	}
	return out
}

func nativeFieldValue(obj Object, i int) interface{} {
	typ, _ := obj.TypeAt(obj.NameAt(i))
	switch typ {
	case TypeBool:
		return obj.GetBool(i)
	case TypeInt32:
		return obj.GetInt32(i)
	case TypeDouble:
		return obj.GetDouble(i)
	case TypeString:
		return obj.GetString(i)
	case TypeObject:
		return ToNative(obj.GetObject(i))
	case TypeArray:
		return arrayToNative(obj.GetArray(i))
	default:
		return nil
	}
}

func arrayToNative(arr Array) []interface{} {
	out := make([]interface{}, arr.Count())
	for i := 0; i < arr.Count(); i++ {
		switch arr.TypeAt(i) {
		case TypeBool:
			out[i] = arr.GetBool(i)
		case TypeInt32:
			out[i] = arr.GetInt32(i)
		case TypeDouble:
			out[i] = arr.GetDouble(i)
		case TypeString:
			out[i] = arr.GetString(i)
		case TypeObject:
			out[i] = ToNative(arr.GetObject(i))
		case TypeArray:
			out[i] = arrayToNative(arr.GetArray(i))
		default:
			out[i] = nil
		}
	}
	return out
}
