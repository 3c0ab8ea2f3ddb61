package data

import (
	"encoding/json"
	"errors"
	"strconv"
)

var (
	errFieldMissing = errors.New("field missing")
	errFieldType    = errors.New("field has wrong type")
)

// lookup walks body along path. String elements index objects; int elements
// index arrays.
func lookup(body map[string]any, path ...any) (any, error) {
	var cur any = body
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, errFieldType
			}
			v, ok := obj[key]
			if !ok || v == nil {
				return nil, errFieldMissing
			}
			cur = v
		case int:
			arr, ok := cur.([]any)
			if !ok {
				return nil, errFieldType
			}
			if key >= len(arr) || arr[key] == nil {
				return nil, errFieldMissing
			}
			cur = arr[key]
		}
	}
	return cur, nil
}

func lookupString(body map[string]any, path ...any) (string, error) {
	v, err := lookup(body, path...)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", errFieldType
	}
	return s, nil
}

func lookupFloat(body map[string]any, path ...any) (float64, error) {
	v, err := lookup(body, path...)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errFieldType
		}
		return f, nil
	case float64:
		return n, nil
	}
	return 0, errFieldType
}

func lookupInt(body map[string]any, path ...any) (int, error) {
	v, err := lookup(body, path...)
	if err != nil {
		return 0, err
	}
	if n, ok := v.(json.Number); ok {
		if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
			return int(i), nil
		}
	}
	f, err := lookupFloat(body, path...)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}
