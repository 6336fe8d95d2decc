package merge

import (
	"reflect"

	"github.com/jonathan/creator-persona/internal/types"
)

// IsEmpty reports whether v carries no information. nil, blank or placeholder
// strings, empty slices and maps, nil pointers, and structs whose fields are all
// empty are empty. Every fallback decision in this package goes through it.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	return isEmptyValue(reflect.ValueOf(v))
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Invalid:
		return true
	case reflect.String:
		return types.IsPlaceholderText(v.String())
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return true
		}
		return isEmptyValue(v.Elem())
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if !isEmptyValue(v.Field(i)) {
				return false
			}
		}
		return true
	default:
		return v.IsZero()
	}
}
