// Package props provides Container, the ordered key/value bag shared by
// reference between the caller of a stepper run and every step it invokes.
//
// Each method call is atomic, but a Container gives no guarantee across
// calls: a step that reads, computes and writes back races with any other
// goroutine doing the same. Steps that fan out asynchronous work join it
// (see package callback) before touching the container from the step's own
// goroutine.
package props

import (
	"fmt"
	"strconv"
	"sync"
)

// Container is an insertion-ordered map from string keys to arbitrary values.
// The zero value is not usable; call New.
type Container struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]any
}

// New returns an empty Container.
func New() *Container {
	return &Container{values: make(map[string]any)}
}

// FromMap returns a Container holding the entries of m. Keys are inserted in
// the iteration order of m, which is unspecified.
func FromMap(m map[string]any) *Container {
	c := New()
	for k, v := range m {
		c.Set(k, v)
	}
	return c
}

// Set stores value under key. Setting an existing key keeps its position.
// Setting a nil value removes the key.
func (c *Container) Set(key string, value any) {
	if value == nil {
		c.Remove(key)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.values[key] = value
}

// Get returns the value stored under key.
func (c *Container) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Has reports whether key is present.
func (c *Container) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// GetString returns the value under key as a string. Non-string values are
// formatted with fmt.Sprint; a missing key yields "".
func (c *Container) GetString(key string) string {
	v, ok := c.Get(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetInt returns the value under key as an int, or def when the key is
// missing or not convertible.
func (c *Container) GetInt(key string, def int) int {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// GetBool returns the value under key as a bool, or def when the key is
// missing or not convertible.
func (c *Container) GetBool(key string, def bool) bool {
	v, ok := c.Get(key)
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// GetStrings returns the value under key as a string slice. A single string
// value is returned as a one-element slice.
func (c *Container) GetStrings(key string) []string {
	v, ok := c.Get(key)
	if !ok {
		return nil
	}
	switch s := v.(type) {
	case []string:
		out := make([]string, len(s))
		copy(out, s)
		return out
	case []any:
		out := make([]string, 0, len(s))
		for _, item := range s {
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		return []string{s}
	}
	return nil
}

// Remove deletes key. Removing a missing key is a no-op.
func (c *Container) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; !ok {
		return
	}
	delete(c.values, key)
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (c *Container) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of entries.
func (c *Container) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Each calls fn for every entry in insertion order on a snapshot of the
// container, so fn may modify c.
func (c *Container) Each(fn func(key string, value any)) {
	c.mu.RLock()
	keys := make([]string, len(c.keys))
	copy(keys, c.keys)
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = c.values[k]
	}
	c.mu.RUnlock()

	for i, k := range keys {
		fn(k, values[i])
	}
}

// Snapshot returns a plain map copy of the entries.
func (c *Container) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy preserving key order.
func (c *Container) Clone() *Container {
	out := New()
	c.Each(out.Set)
	return out
}
