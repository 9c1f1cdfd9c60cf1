package entities

import (
	"bytes"
	"maps"
	"slices"

	"github.com/magiconair/properties"
)

// PropertiesSuffix marks profile files that are parsed into configurations.
const PropertiesSuffix = ".properties"

// Configuration is the parsed key/value content of one properties file.
// Keys keep the order they appear in the file. The zero value is empty.
type Configuration struct {
	keys   []string
	values map[string]string
}

// ParseConfiguration parses Java properties syntax. Property expansion is
// disabled so values are kept exactly as written.
func ParseConfiguration(data []byte) (Configuration, error) {
	loader := &properties.Loader{
		Encoding:         properties.UTF8,
		DisableExpansion: true,
	}
	props, err := loader.LoadBytes(data)
	if err != nil {
		return Configuration{}, err
	}

	keys := props.Keys()
	values := make(map[string]string, len(keys))
	for _, k := range keys {
		v, _ := props.Get(k)
		values[k] = v
	}
	return Configuration{keys: keys, values: values}, nil
}

// NewConfiguration builds a configuration from a map. Keys are sorted since
// maps carry no order.
func NewConfiguration(values map[string]string) Configuration {
	return Configuration{
		keys:   slices.Sorted(maps.Keys(values)),
		values: maps.Clone(values),
	}
}

// Get returns the value for key.
func (c Configuration) Get(key string) (string, bool) {
	v, ok := c.values[key]
	return v, ok
}

// Keys returns the keys in file order.
func (c Configuration) Keys() []string {
	return slices.Clone(c.keys)
}

// Map returns a copy of the key/value pairs.
func (c Configuration) Map() map[string]string {
	if c.values == nil {
		return map[string]string{}
	}
	return maps.Clone(c.values)
}

// Len returns the number of keys.
func (c Configuration) Len() int {
	return len(c.keys)
}

// Equal compares content only; key order is ignored.
func (c Configuration) Equal(other Configuration) bool {
	return maps.Equal(c.values, other.values)
}

// With returns a copy with key set to value. A new key is appended; an
// existing key keeps its position.
func (c Configuration) With(key, value string) Configuration {
	out := Configuration{keys: slices.Clone(c.keys), values: c.Map()}
	if _, exists := out.values[key]; !exists {
		out.keys = append(out.keys, key)
	}
	out.values[key] = value
	return out
}

// Without returns a copy with key removed.
func (c Configuration) Without(key string) Configuration {
	out := Configuration{values: c.Map()}
	delete(out.values, key)
	for _, k := range c.keys {
		if k != key {
			out.keys = append(out.keys, k)
		}
	}
	return out
}

// Encode renders the configuration in properties syntax, keys in order.
func (c Configuration) Encode() ([]byte, error) {
	props := properties.NewProperties()
	props.DisableExpansion = true
	for _, k := range c.keys {
		if _, _, err := props.Set(k, c.values[k]); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := props.Write(&buf, properties.UTF8); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
