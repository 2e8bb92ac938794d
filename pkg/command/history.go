package command

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/charice-projects/omnivoice/pkg/intent"
	"github.com/charice-projects/omnivoice/pkg/kv"
)

// DefaultHistorySize bounds the in-memory audit ring.
const DefaultHistorySize = 100

// Execution is one audit record. Failures are recorded too; Err is empty
// on success.
type Execution struct {
	ID        string            `msgpack:"id"`
	CommandID string            `msgpack:"command_id"`
	InputText string            `msgpack:"input_text"`
	Intent    intent.Label      `msgpack:"intent"`
	Entities  map[string]string `msgpack:"entities"`
	Result    string            `msgpack:"result"`
	Err       string            `msgpack:"err,omitempty"`
	Timestamp time.Time         `msgpack:"timestamp"`
}

// History is the bounded execution audit ring. Records are kept in memory
// for queries and, when a store is supplied, persisted as msgpack so the
// ring survives restarts. Safe for concurrent use.
type History struct {
	mu    sync.RWMutex
	cap   int
	recs  []Execution
	store kv.Store
}

// historyPrefix keys audit records as history:<nanos>-<id> so the store's
// lexicographic listing is chronological.
var historyPrefix = kv.Key{"history"}

// NewHistory creates an audit ring. store may be nil for memory-only use;
// size <= 0 means DefaultHistorySize.
func NewHistory(store kv.Store, size int) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{cap: size, store: store}
}

// Append records one execution. A missing ID or Timestamp is filled in.
func (h *History) Append(ctx context.Context, rec Execution) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	h.mu.Lock()
	h.recs = append(h.recs, rec)
	var evicted []Execution
	if n := len(h.recs) - h.cap; n > 0 {
		evicted = append(evicted, h.recs[:n]...)
		h.recs = h.recs[n:]
	}
	h.mu.Unlock()

	if h.store == nil {
		return nil
	}
	data, err := msgpack.Marshal(&rec)
	if err != nil {
		return fmt.Errorf("command: encode execution: %w", err)
	}
	if err := h.store.Set(ctx, recordKey(rec), data); err != nil {
		return fmt.Errorf("command: persist execution: %w", err)
	}
	if len(evicted) > 0 {
		keys := make([]kv.Key, len(evicted))
		for i, e := range evicted {
			keys[i] = recordKey(e)
		}
		if err := h.store.BatchDelete(ctx, keys); err != nil {
			return fmt.Errorf("command: prune history: %w", err)
		}
	}
	return nil
}

// Load restores the ring from the store, keeping the newest records.
func (h *History) Load(ctx context.Context) error {
	if h.store == nil {
		return nil
	}
	var recs []Execution
	for entry, err := range h.store.List(ctx, historyPrefix) {
		if err != nil {
			return fmt.Errorf("command: load history: %w", err)
		}
		var rec Execution
		if err := msgpack.Unmarshal(entry.Value, &rec); err != nil {
			return fmt.Errorf("command: decode execution %s: %w", entry.Key, err)
		}
		recs = append(recs, rec)
	}
	if n := len(recs) - h.cap; n > 0 {
		recs = recs[n:]
	}

	h.mu.Lock()
	h.recs = recs
	h.mu.Unlock()
	return nil
}

// Recent returns up to n records, newest first. n <= 0 means all.
func (h *History) Recent(n int) []Execution {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if n <= 0 || n > len(h.recs) {
		n = len(h.recs)
	}
	out := make([]Execution, n)
	for i := 0; i < n; i++ {
		out[i] = h.recs[len(h.recs)-1-i]
	}
	return out
}

// Len returns the current record count.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.recs)
}

func recordKey(rec Execution) kv.Key {
	seg := fmt.Sprintf("%020d-%s", rec.Timestamp.UnixNano(), rec.ID)
	return append(append(kv.Key{}, historyPrefix...), seg)
}
