package fixture

import (
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Map is an insertion-ordered mapping, the shape YAML mappings decode into.
type Map struct {
	keys   []string
	values map[string]any
}

// NewMap creates an empty map.
func NewMap() *Map {
	return &Map{values: map[string]any{}}
}

// MapOf builds a map from alternating key/value pairs.
func MapOf(kv ...any) *Map {
	m := NewMap()
	for i := 0; i+1 < len(kv); i += 2 {
		m.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return m
}

// Len returns the number of keys.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Get returns the value under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Value returns the value under key, or nil.
func (m *Map) Value(key string) any {
	v, _ := m.Get(key)
	return v
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key; a new key goes last, an existing key keeps
// its position.
func (m *Map) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key.
func (m *Map) Delete(key string) {
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// Fields returns a shallow copy as a plain map, for row writes.
func (m *Map) Fields() map[string]any {
	out := make(map[string]any, m.Len())
	if m == nil {
		return out
	}
	for _, k := range m.keys {
		out[k] = m.values[k]
	}
	return out
}

// Clone deep-copies the map, its nested maps and sequences.
func (m *Map) Clone() *Map {
	if m == nil {
		return nil
	}
	return cloneValue(m).(*Map)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Map:
		c := NewMap()
		for _, k := range t.keys {
			c.Set(k, cloneValue(t.values[k]))
		}
		return c
	case []any:
		c := make([]any, len(t))
		for i, e := range t {
			c[i] = cloneValue(e)
		}
		return c
	default:
		return v
	}
}

// Merge merges src into m: mappings merge key by key recursively, sequences
// append, and for anything else the value from src wins.
func (m *Map) Merge(src *Map) {
	if src == nil {
		return
	}
	for _, k := range src.keys {
		existing, ok := m.values[k]
		if !ok {
			m.Set(k, cloneValue(src.values[k]))
			continue
		}
		m.values[k] = mergeValue(existing, src.values[k])
	}
}

func mergeValue(dst, src any) any {
	switch s := src.(type) {
	case *Map:
		if d, ok := dst.(*Map); ok {
			d.Merge(s)
			return d
		}
	case []any:
		if d, ok := dst.([]any); ok {
			return append(d, cloneValue(s).([]any)...)
		}
	}
	return cloneValue(src)
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeNode(node)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Map)
	if !ok {
		if v == nil {
			*m = *NewMap()
			return nil
		}
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	*m = *decoded
	return nil
}

func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeNode(node.Content[0])
	case yaml.AliasNode:
		return decodeNode(node.Alias)
	case yaml.MappingNode:
		m := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valueNode := node.Content[i], node.Content[i+1]
			if keyNode.Tag == "!!merge" {
				inherited, err := decodeNode(valueNode)
				if err != nil {
					return nil, err
				}
				if im, ok := inherited.(*Map); ok {
					m.Merge(im)
				}
				continue
			}
			v, err := decodeNode(valueNode)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, c := range node.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	}
}

// ParseYAML decodes a fixture document. An empty document yields an empty
// map.
func ParseYAML(data []byte) (*Map, error) {
	m := NewMap()
	if err := yaml.Unmarshal(data, m); err != nil {
		return nil, err
	}
	return m, nil
}

// AsMap returns v as a *Map when it is one.
func AsMap(v any) (*Map, bool) {
	m, ok := v.(*Map)
	return m, ok && m != nil
}

// AsList returns v as a sequence: sequences pass through, a nil value is
// empty, and anything else is wrapped.
func AsList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{v}
	}
}
