package utils

import (
	"encoding/json"
)

// Marshal generic struct to JSON
func MarshalToJSON[T any](input T) (string, error) {
	jsonData, err := json.Marshal(input)
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// Unmarshal JSON to generic struct
func UnmarshalFromJSON[T any](data []byte, output *T) error {
	return json.Unmarshal(data, output)
}

// SnapshotToMap flattens a struct (or JSON string) into a field->raw-JSON map
// so two snapshots can be compared key by key.
func SnapshotToMap(obj interface{}) (map[string]json.RawMessage, error) {
	if obj == nil {
		return map[string]json.RawMessage{}, nil
	}

	var raw []byte
	switch v := obj.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	if len(raw) == 0 || string(raw) == "null" {
		return map[string]json.RawMessage{}, nil
	}

	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ChangedFields returns the names of keys whose JSON encoding differs between
// the two snapshots, over the union of keys present in either.
func ChangedFields(before, after map[string]json.RawMessage) []string {
	keys := map[string]bool{}
	for k := range before {
		keys[k] = true
	}
	for k := range after {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		if string(before[k]) != string(after[k]) {
			changed = append(changed, k)
		}
	}
	return changed
}
