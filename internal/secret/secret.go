// Package secret provides wrappers for credential values whose default string,
// JSON and log representations are redacted.
package secret

import (
	"encoding/json"
	"fmt"
	"maps"
	"sort"

	"github.com/rs/zerolog"
)

// Redacted is printed in place of every secret value.
const Redacted = "*****"

// String is a sensitive string. Use Reveal to get the underlying value.
type String string

// Reveal returns the plain value.
func (s String) Reveal() string { return string(s) }

// String implements fmt.Stringer.
func (s String) String() string { return Redacted }

// GoString implements fmt.GoStringer so %#v is redacted too.
func (s String) GoString() string { return "secret.String(" + Redacted + ")" }

// MarshalJSON implements json.Marshaler.
func (s String) MarshalJSON() ([]byte, error) { return json.Marshal(Redacted) }

// Blob is a sensitive structured value, e.g. a service-account JSON document.
type Blob struct {
	value map[string]interface{}
}

// NewBlob wraps v. The map is copied.
func NewBlob(v map[string]interface{}) Blob {
	return Blob{value: maps.Clone(v)}
}

// Reveal returns a copy of the underlying document.
func (b Blob) Reveal() map[string]interface{} { return maps.Clone(b.value) }

// String implements fmt.Stringer.
func (b Blob) String() string { return Redacted }

// GoString implements fmt.GoStringer.
func (b Blob) GoString() string { return "secret.Blob(" + Redacted + ")" }

// MarshalJSON implements json.Marshaler.
func (b Blob) MarshalJSON() ([]byte, error) { return json.Marshal(Redacted) }

// Map holds backend-specific connection settings. Values are plain strings,
// String, Blob or nil (an optional field that was present but empty).
type Map map[string]interface{}

// Get returns the revealed string value for key.
func (m Map) Get(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case String:
		return t.Reveal(), true
	default:
		return "", false
	}
}

// Has reports whether key is present with a non-nil value.
func (m Map) Has(key string) bool {
	v, ok := m[key]
	return ok && v != nil
}

// Clone returns a shallow copy.
func (m Map) Clone() Map {
	if m == nil {
		return Map{}
	}
	return maps.Clone(m)
}

// Merge returns a new map with m laid over under: keys present in m win.
func (m Map) Merge(under Map) Map {
	out := under.Clone()
	maps.Copy(out, m)
	return out
}

// Reveal returns a plain copy of the map with every secret revealed, for
// output the user explicitly asked to see.
func (m Map) Reveal() map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case String:
			out[k] = t.Reveal()
		case Blob:
			out[k] = t.Reveal()
		default:
			out[k] = v
		}
	}
	return out
}

// Keys returns the keys in sorted order.
func (m Map) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the map with sensitive values redacted.
func (m Map) String() string {
	out := "map["
	for i, k := range m.Keys() {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s:%v", k, m[k])
	}
	return out + "]"
}

// MarshalZerologObject lets a Map be logged with zerolog's Object().
func (m Map) MarshalZerologObject(e *zerolog.Event) {
	for _, k := range m.Keys() {
		switch v := m[k].(type) {
		case string:
			e.Str(k, v)
		case nil:
			e.Interface(k, nil)
		default:
			e.Str(k, Redacted)
		}
	}
}
