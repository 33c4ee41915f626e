// Package jsonutils implements helpers for JSON (de)serialization of
// configuration types which wrap an interface value
package jsonutils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Lookup returns the value in m with key key, matching keys without
// regard to case. Configuration loaders such as viper lowercase all
// keys.
func Lookup(m map[string]interface{}, key string) (interface{}, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// UnmarshalTyped unmarshals a JSON object of the form
//
//	{typeField: "TypeName", valueField: {...}}
//
// into a new value of the concrete type registered for TypeName in
// types. The concrete value (not a pointer) and the canonical type
// name from types are returned. Field names and type names are
// matched without regard to case.
func UnmarshalTyped(data []byte, typeField, valueField string,
	types map[string]reflect.Type) (interface{}, string, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, "", err
	}

	rawType, ok := Lookup(m, typeField)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalTyped: missing field %q",
			typeField)
	}
	typeName, ok := rawType.(string)
	if !ok {
		return nil, "", fmt.Errorf("unmarshalTyped: field %q must be a "+
			"string", typeField)
	}

	var name string
	var ty reflect.Type
	for registered, t := range types {
		if strings.EqualFold(registered, typeName) {
			name, ty = registered, t
			break
		}
	}
	if ty == nil {
		return nil, "", fmt.Errorf("unmarshalTyped: unknown type %q", typeName)
	}

	value := reflect.New(ty)
	if raw, ok := Lookup(m, valueField); ok && raw != nil {
		valueBytes, err := json.Marshal(raw)
		if err != nil {
			return nil, "", err
		}
		if err := json.Unmarshal(valueBytes, value.Interface()); err != nil {
			return nil, "", fmt.Errorf("unmarshalTyped: %v", err)
		}
	}

	return value.Elem().Interface(), name, nil
}
