package ls

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// pathNormalizer produces the canonical string key for a resource. A false
// result means the resource cannot be keyed; map operations involving it
// become no-ops.
type pathNormalizer func(uri protocol.DocumentUri) (string, bool)

type resourceMapConfig struct {
	onCaseInsensitiveFileSystem bool
}

// ResourceEntry pairs a stored value with the resource it was first inserted
// under.
type ResourceEntry[V any] struct {
	Resource protocol.DocumentUri
	Value    V
}

// ResourceMap maps resources to values, folding key case on case-insensitive
// paths while iteration keeps the original URIs in first-insertion order.
type ResourceMap[V any] struct {
	normalize pathNormalizer
	config    resourceMapConfig
	order     []string
	entries   map[string]ResourceEntry[V]
}

func newResourceMap[V any](normalize pathNormalizer, config resourceMapConfig) *ResourceMap[V] {
	if normalize == nil {
		normalize = defaultPathNormalizer
	}
	return &ResourceMap[V]{
		normalize: normalize,
		config:    config,
		entries:   make(map[string]ResourceEntry[V]),
	}
}

func (m *ResourceMap[V]) key(resource protocol.DocumentUri) (string, bool) {
	normalized, ok := m.normalize(resource)
	if !ok {
		return "", false
	}
	if isCaseInsensitivePath(normalized, m.config.onCaseInsensitiveFileSystem) {
		normalized = strings.ToLower(normalized)
	}
	return normalized, true
}

func (m *ResourceMap[V]) Has(resource protocol.DocumentUri) bool {
	key, ok := m.key(resource)
	if !ok {
		return false
	}
	_, ok = m.entries[key]
	return ok
}

func (m *ResourceMap[V]) Get(resource protocol.DocumentUri) (V, bool) {
	var zero V
	key, ok := m.key(resource)
	if !ok {
		return zero, false
	}
	entry, ok := m.entries[key]
	if !ok {
		return zero, false
	}
	return entry.Value, true
}

// Set stores value under resource. Overwriting an existing key replaces the
// value but keeps the originally inserted URI.
func (m *ResourceMap[V]) Set(resource protocol.DocumentUri, value V) {
	key, ok := m.key(resource)
	if !ok {
		return
	}
	if existing, ok := m.entries[key]; ok {
		m.entries[key] = ResourceEntry[V]{Resource: existing.Resource, Value: value}
		return
	}
	m.entries[key] = ResourceEntry[V]{Resource: resource, Value: value}
	m.order = append(m.order, key)
}

func (m *ResourceMap[V]) Delete(resource protocol.DocumentUri) {
	key, ok := m.key(resource)
	if !ok {
		return
	}
	if _, ok := m.entries[key]; !ok {
		return
	}
	delete(m.entries, key)
	for i, existing := range m.order {
		if existing == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *ResourceMap[V]) Clear() {
	m.order = m.order[:0]
	m.entries = make(map[string]ResourceEntry[V])
}

func (m *ResourceMap[V]) Len() int {
	return len(m.entries)
}

// Entries returns the stored entries in first-insertion order.
func (m *ResourceMap[V]) Entries() []ResourceEntry[V] {
	entries := make([]ResourceEntry[V], 0, len(m.order))
	for _, key := range m.order {
		entries = append(entries, m.entries[key])
	}
	return entries
}

// Values returns the stored values in first-insertion order.
func (m *ResourceMap[V]) Values() []V {
	values := make([]V, 0, len(m.order))
	for _, key := range m.order {
		values = append(values, m.entries[key].Value)
	}
	return values
}
