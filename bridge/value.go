package bridge

import (
	"reflect"
	"strconv"

	"github.com/pkg/errors"
)

// walk follows path from v through struct fields and slice/array indices
func walk(v reflect.Value, path []string) (reflect.Value, error) {
	for _, key := range path {
		v = deref(v)
		switch v.Kind() {
		case reflect.Struct:
			sf, ok := v.Type().FieldByName(key)
			if !ok || !sf.IsExported() {
				return reflect.Value{}, errors.Wrapf(ErrNoSuchField, "%s has no field %q", v.Type(), key)
			}
			v = v.FieldByIndex(sf.Index)
		case reflect.Slice, reflect.Array:
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= v.Len() {
				return reflect.Value{}, errors.Wrapf(ErrNoSuchField, "index %q out of range [0,%d)", key, v.Len())
			}
			v = v.Index(i)
		default:
			return reflect.Value{}, errors.Wrapf(ErrNoSuchField, "%s has no member %q", v.Type(), key)
		}
	}
	return v, nil
}

func deref(v reflect.Value) reflect.Value {
	for (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && !v.IsNil() {
		v = v.Elem()
	}
	return v
}

// isLeaf reports whether v is returned to callers by value instead of as a ref
func isLeaf(v reflect.Value) bool {
	switch deref(v).Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// keys lists exported struct fields or slice indices
func keys(v reflect.Value) []string {
	v = deref(v)
	switch v.Kind() {
	case reflect.Struct:
		t := v.Type()
		out := make([]string, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				out = append(out, t.Field(i).Name)
			}
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]string, v.Len())
		for i := range out {
			out[i] = strconv.Itoa(i)
		}
		return out
	default:
		return []string{}
	}
}
