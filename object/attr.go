package object

import (
	"context"
)

// GetAttr reads obj.name. Own dynamic attributes are consulted before
// native members; a missing attribute reads as Undefined. Reading from null
// or undefined throws a TypeError.
func GetAttr(obj Object, name string) (Object, error) {
	switch v := obj.(type) {
	case nil, *UndefinedType, *NullType:
		return nil, TypeErrorf("Cannot read properties of %s (reading '%s')", ToString(obj), name)
	case *Map:
		if value, ok := v.Get(name); ok {
			return value, nil
		}
		if m := mapMethod(v, name); m != nil {
			return m, nil
		}
	case *Scope:
		if value, ok := v.Get(name); ok {
			return value, nil
		}
	case *Array:
		if name == "length" {
			return NewNumber(float64(v.Len())), nil
		}
		if i, ok := ToIndex(NewString(name)); ok {
			return v.Get(i), nil
		}
		if v.attrs != nil {
			if value, ok := v.attrs.Get(name); ok {
				return value, nil
			}
		}
		if m := arrayMethod(v, name); m != nil {
			return m, nil
		}
	case *String:
		if name == "length" {
			return NewNumber(float64(v.Len())), nil
		}
		if i, ok := ToIndex(NewString(name)); ok {
			if ch, ok := v.At(i); ok {
				return ch, nil
			}
			return Undefined, nil
		}
		if m := stringMethod(v, name); m != nil {
			return m, nil
		}
	case *Number:
		if m := numberMethod(v, name); m != nil {
			return m, nil
		}
	case *Bool:
		if name == "toString" {
			return NewBuiltin("toString", func(context.Context, ...Object) (Object, error) {
				return NewString(ToString(v)), nil
			}), nil
		}
	case *Closure:
		if name == "name" {
			return NewString(v.def.Name), nil
		}
		if v.attrs != nil {
			if value, ok := v.attrs.Get(name); ok {
				return value, nil
			}
		}
		if m := closureMethod(v, name); m != nil {
			return m, nil
		}
	case *Builtin:
		if name == "name" {
			return NewString(v.name), nil
		}
		if v.attrs != nil {
			if value, ok := v.attrs.Get(name); ok {
				return value, nil
			}
		}
	case *Set:
		if name == "size" {
			return NewNumber(float64(v.Len())), nil
		}
		if m := setMethod(v, name); m != nil {
			return m, nil
		}
	case *Promise:
		if m := promiseMethod(v, name); m != nil {
			return m, nil
		}
	}
	return Undefined, nil
}

// SetAttr writes obj.name = value. Writes to other primitive values are
// ignored.
func SetAttr(obj Object, name string, value Object) error {
	switch v := obj.(type) {
	case nil, *UndefinedType, *NullType:
		return TypeErrorf("Cannot set properties of %s (setting '%s')", ToString(obj), name)
	case *Map:
		v.Set(name, value)
	case *Scope:
		v.Set(name, value)
	case *Array:
		if name == "length" {
			n, ok := ToIndex(NewNumber(ToNumber(value)))
			if !ok {
				return RangeErrorf("Invalid array length")
			}
			return v.SetLength(n)
		}
		if i, ok := ToIndex(NewString(name)); ok {
			return v.Set(i, value)
		}
		v.Attrs().Set(name, value)
	case *Closure:
		v.Attrs().Set(name, value)
	case *Builtin:
		v.Attrs().Set(name, value)
	}
	return nil
}

// DelAttr implements delete obj.name.
func DelAttr(obj Object, name string) error {
	switch v := obj.(type) {
	case nil, *UndefinedType, *NullType:
		return TypeErrorf("Cannot convert %s to object", ToString(obj))
	case *Map:
		v.Delete(name)
	case *Scope:
		v.Delete(name)
	case *Array:
		if i, ok := ToIndex(NewString(name)); ok {
			v.Delete(i)
		} else if v.attrs != nil {
			v.attrs.Delete(name)
		}
	case *Closure:
		if v.attrs != nil {
			v.attrs.Delete(name)
		}
	}
	return nil
}

// HasAttr implements key in obj.
func HasAttr(obj, key Object) (bool, error) {
	name := ToString(key)
	switch v := obj.(type) {
	case *Map:
		return v.Has(name) || mapMethod(v, name) != nil, nil
	case *Scope:
		return v.Has(name), nil
	case *Array:
		if name == "length" {
			return true, nil
		}
		if i, ok := ToIndex(key); ok {
			return i < v.Len(), nil
		}
		if v.attrs != nil && v.attrs.Has(name) {
			return true, nil
		}
		return arrayMethod(v, name) != nil, nil
	case *Closure, *Builtin, *Set, *Promise:
		value, err := GetAttr(obj, name)
		if err != nil {
			return false, err
		}
		_, undefined := value.(*UndefinedType)
		return !undefined, nil
	}
	return false, TypeErrorf("Cannot use 'in' operator to search for '%s' in %s", name, ToString(obj))
}

// GetIndex reads obj[key].
func GetIndex(obj, key Object) (Object, error) {
	switch v := obj.(type) {
	case *Array:
		if i, ok := ToIndex(key); ok {
			return v.Get(i), nil
		}
	case *String:
		if i, ok := ToIndex(key); ok {
			if ch, ok := v.At(i); ok {
				return ch, nil
			}
			return Undefined, nil
		}
	}
	return GetAttr(obj, propertyKey(key))
}

// SetIndex writes obj[key] = value.
func SetIndex(obj, key, value Object) error {
	if arr, ok := obj.(*Array); ok {
		if i, ok := ToIndex(key); ok {
			return arr.Set(i, value)
		}
	}
	return SetAttr(obj, propertyKey(key), value)
}

// DelIndex implements delete obj[key].
func DelIndex(obj, key Object) error {
	if arr, ok := obj.(*Array); ok {
		if i, ok := ToIndex(key); ok {
			arr.Delete(i)
			return nil
		}
	}
	return DelAttr(obj, propertyKey(key))
}

func propertyKey(key Object) string {
	return ToString(key)
}
