// Package kv stores the durable state of the voice pipeline: per-user
// command catalogs, execution history, and conversational context.
// Keys are hierarchical paths, e.g. Key{"commands", "user", "primary"},
// joined with ':' in storage.
//
// Badger backs the on-disk store; Memory backs tests.
package kv

import (
	"context"
	"errors"
	"iter"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value.
var ErrNotFound = errors.New("kv: not found")

const sep = ":"

// Key is a hierarchical path. Segments must not contain ':'.
type Key []string

func (k Key) String() string { return strings.Join(k, sep) }

func encodeKey(k Key) []byte { return []byte(k.String()) }

func decodeKey(b []byte) Key { return Key(strings.Split(string(b), sep)) }

// listPrefix returns the raw byte prefix for a List scan. The trailing
// separator keeps Key{"ab"} from matching "abc:...". An empty prefix
// scans everything.
func listPrefix(prefix Key) []byte {
	if len(prefix) == 0 {
		return nil
	}
	return []byte(prefix.String() + sep)
}

// Entry is a key-value pair yielded by List.
type Entry struct {
	Key   Key
	Value []byte
}

// Store is the persistence interface shared by the catalog, the
// execution history, and the context tracker.
type Store interface {
	// Get retrieves the value for a key, or ErrNotFound.
	Get(ctx context.Context, key Key) ([]byte, error)

	// Set stores a value, overwriting any existing one.
	Set(ctx context.Context, key Key, value []byte) error

	// Delete removes a key. Missing keys are not an error.
	Delete(ctx context.Context, key Key) error

	// List yields all entries under prefix in lexicographic key order.
	List(ctx context.Context, prefix Key) iter.Seq2[Entry, error]

	// BatchDelete removes multiple keys in one transaction. The
	// history tracker uses it to evict expired records together.
	BatchDelete(ctx context.Context, keys []Key) error

	Close() error
}
