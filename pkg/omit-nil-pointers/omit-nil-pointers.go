package omitnilpointers

import (
	"reflect"
	"sort"
)

// OmitNilPointers drops nil values and nil pointers and dereferences the rest.
func OmitNilPointers(fields map[string]any) map[string]any {
	omitted := make(map[string]any, len(fields))
	for key, value := range fields {
		if value == nil {
			continue
		}

		v := reflect.ValueOf(value)
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				continue
			}
			omitted[key] = v.Elem().Interface()
		} else {
			omitted[key] = value
		}
	}

	return omitted
}

// Pairs flattens the non-nil fields into key-sorted field/value pairs, as HSET arguments.
func Pairs(fields map[string]any) []any {
	omitted := OmitNilPointers(fields)

	keys := make([]string, 0, len(omitted))
	for key := range omitted {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, key, omitted[key])
	}

	return pairs
}
