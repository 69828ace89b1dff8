package goshape

import (
	"errors"
	"reflect"
)

var errNotTopLevel = errors.New("selector must return the address of a top-level exported field")

// FieldNameOf returns the external key for a top-level field of S selected by selector.
// Example: FieldNameOf(func(i *OrderItem) *string { return &i.SKU }) -> "sku".
func FieldNameOf[S any, F any](selector func(*S) *F) (string, error) {
	if selector == nil {
		return "", errors.New("selector must not be nil")
	}
	var zero S
	rv := reflect.ValueOf(&zero).Elem()
	rt := rv.Type()
	if rt.Kind() != reflect.Struct {
		return "", errNotTopLevel
	}
	fp := reflect.ValueOf(selector(&zero)).Pointer()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		// zero-sized fields share addresses with their neighbours
		if sf.Type.Size() == 0 {
			continue
		}
		if rv.Field(i).Addr().Pointer() == fp {
			name := ResolveStructKey(sf)
			if name == "" || name == "-" {
				return "", errors.New("selected field " + sf.Name + " is disabled by its tag")
			}
			return name, nil
		}
	}
	return "", errNotTopLevel
}
