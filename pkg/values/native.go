package values

import (
	"fmt"
	"sort"
)

// Wrap converts a native Go value into a Value. Maps become mappings
// (sorted keys, so wrapping is deterministic), slices become arrays,
// numbers widen to float64. Unknown types are carried as opaque values.
func Wrap(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null
	case Value:
		return t
	case bool:
		return BooleanValue(t)
	case int:
		return NumberValue(float64(t))
	case int32:
		return NumberValue(float64(t))
	case int64:
		return NumberValue(float64(t))
	case float32:
		return NumberValue(float64(t))
	case float64:
		return NumberValue(t)
	case string:
		return NewString(t)
	case []any:
		elements := make([]Value, len(t))
		for i, el := range t {
			elements[i] = Wrap(el)
		}
		return NewArray(elements...)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := NewObject()
		o := obj.AsObject()
		for _, k := range keys {
			o.Set(k, Wrap(t[k]))
		}
		return obj
	case NativeFn:
		return NewFunction("", t)
	default:
		return NewOpaque(v)
	}
}

// Export converts a Value back to plain Go data. Functions and scopes
// export as descriptive strings, opaque values come back as themselves.
func (v Value) Export() any {
	switch v.typ {
	case TypeUndefined, TypeNull:
		return nil
	case TypeBoolean:
		return v.AsBoolean()
	case TypeNumber:
		return v.num
	case TypeString:
		return v.str
	case TypeArray:
		arr := v.obj.(*ArrayObject)
		out := make([]any, len(arr.elements))
		for i, el := range arr.elements {
			out[i] = el.Export()
		}
		return out
	case TypeObject:
		obj := v.obj.(*Object)
		out := make(map[string]any, len(obj.keys))
		for _, k := range obj.keys {
			out[k] = obj.entries[k].Export()
		}
		return out
	case TypeFunction:
		return v.ToString()
	case TypeScope:
		return "[Scope]"
	case TypeOpaque:
		return v.obj
	default:
		return fmt.Sprintf("<unknown type %d>", v.typ)
	}
}
