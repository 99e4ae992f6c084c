package migrate

import (
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
)

// Document is a decoded TOML file as generic tables.
type Document = map[string]any

// TOML adapts a function over decoded tables into an Upgrade that stamps
// the produced version. Comments and key order are not preserved; callers
// keep a backup of the original bytes.
func TOML(version int, fn func(doc Document) error) func([]byte) ([]byte, error) {
	return func(data []byte) ([]byte, error) {
		doc := Document{}
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
		if err := fn(doc); err != nil {
			return nil, err
		}
		doc["version"] = int64(version)

		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
			return nil, fmt.Errorf("encode toml: %w", err)
		}
		return buf.Bytes(), nil
	}
}

// Table returns the sub-table at key, or nil when absent or not a table.
func Table(doc Document, key string) Document {
	t, _ := doc[key].(map[string]any)
	return t
}

// Rename moves the value at from to to within t. An existing value at to
// wins; the old key is removed either way.
func Rename(t Document, from, to string) {
	v, ok := t[from]
	if !ok {
		return
	}
	delete(t, from)
	if _, exists := t[to]; !exists {
		t[to] = v
	}
}
