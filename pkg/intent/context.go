package intent

import (
	"fmt"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Well-known context keys written by the command pipeline.
const (
	// KeyLastCommand holds the label of the last completed command.
	KeyLastCommand = "last_command"

	// EntityKeyPrefix prefixes the per-entity keys, e.g. "last_contact".
	EntityKeyPrefix = "last_"
)

// DefaultContextCapacity bounds the rolling conversation memory.
const DefaultContextCapacity = 20

// Context is a bounded ordered map of recent conversational facts. When
// capacity is exceeded the oldest entry is evicted. Setting an existing key
// refreshes its recency.
//
// Context is consulted by the recognizer on the next turn and updated by
// the pipeline after every completed command. Safe for concurrent use.
type Context struct {
	mu   sync.RWMutex
	cap  int
	keys []string
	vals map[string]string
}

// NewContext creates a context with the given capacity; zero or negative
// means DefaultContextCapacity.
func NewContext(capacity int) *Context {
	if capacity <= 0 {
		capacity = DefaultContextCapacity
	}
	return &Context{
		cap:  capacity,
		vals: make(map[string]string, capacity),
	}
}

// Set stores a fact, evicting the oldest entry if the context is full.
func (c *Context) Set(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.vals[key]; ok {
		c.removeKeyLocked(key)
	}
	c.keys = append(c.keys, key)
	c.vals[key] = value

	for len(c.keys) > c.cap {
		oldest := c.keys[0]
		c.keys = c.keys[1:]
		delete(c.vals, oldest)
	}
}

// Get returns the value for a key.
func (c *Context) Get(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.vals[key]
	return v, ok
}

// Len returns the number of stored facts.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Keys returns the keys oldest-first.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Clear drops all facts.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = nil
	c.vals = make(map[string]string, c.cap)
}

func (c *Context) removeKeyLocked(key string) {
	for i, k := range c.keys {
		if k == key {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			return
		}
	}
}

// contextSnapshot is the msgpack wire form of a Context.
type contextSnapshot struct {
	Capacity int      `msgpack:"capacity"`
	Keys     []string `msgpack:"keys"`
	Values   []string `msgpack:"values"`
}

// Snapshot serializes the context in insertion order so it can be persisted
// across restarts.
func (c *Context) Snapshot() ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := contextSnapshot{
		Capacity: c.cap,
		Keys:     append([]string(nil), c.keys...),
		Values:   make([]string, len(c.keys)),
	}
	for i, k := range c.keys {
		snap.Values[i] = c.vals[k]
	}
	return msgpack.Marshal(&snap)
}

// Restore replaces the context contents from a snapshot produced by
// [Context.Snapshot].
func (c *Context) Restore(data []byte) error {
	var snap contextSnapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("intent: restore context: %w", err)
	}
	if len(snap.Keys) != len(snap.Values) {
		return fmt.Errorf("intent: restore context: %d keys, %d values", len(snap.Keys), len(snap.Values))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if snap.Capacity > 0 {
		c.cap = snap.Capacity
	}
	c.keys = nil
	c.vals = make(map[string]string, c.cap)
	for i, k := range snap.Keys {
		c.keys = append(c.keys, k)
		c.vals[k] = snap.Values[i]
	}
	for len(c.keys) > c.cap {
		oldest := c.keys[0]
		c.keys = c.keys[1:]
		delete(c.vals, oldest)
	}
	return nil
}
