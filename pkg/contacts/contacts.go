// Package contacts defines the contact directory consumed by the voice
// pipeline. The directory itself lives outside this subsystem (the host
// application owns the address book); the pipeline only searches it to
// resolve spoken contact names before executing a command.
package contacts

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrNotFound is returned when no contact matches the query.
var ErrNotFound = errors.New("contacts: not found")

// Contact is a single address book entry.
type Contact struct {
	ID     string
	Name   string
	Phone  string
	Labels []string // e.g. "family", "doctor"
}

// Directory is the read-only contact lookup surface consumed by the
// command pipeline.
type Directory interface {
	// Search finds the best match for a spoken name. Matching is
	// case-insensitive and accepts an exact name, a name prefix, or a label.
	// Returns ErrNotFound if nothing matches.
	Search(ctx context.Context, name string) (*Contact, error)

	// ByID returns the contact with the given ID, or ErrNotFound.
	ByID(ctx context.Context, id string) (*Contact, error)
}

// MemoryDirectory is an in-memory Directory. The host application normally
// provides its own implementation; this one serves tests and the simulator.
type MemoryDirectory struct {
	mu   sync.RWMutex
	list []*Contact
}

var _ Directory = (*MemoryDirectory)(nil)

// NewMemoryDirectory creates a directory preloaded with the given contacts.
func NewMemoryDirectory(list ...*Contact) *MemoryDirectory {
	d := &MemoryDirectory{}
	for _, c := range list {
		d.Add(c)
	}
	return d
}

// Add inserts or replaces a contact.
func (d *MemoryDirectory) Add(c *Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, old := range d.list {
		if old.ID == c.ID {
			d.list[i] = c
			return
		}
	}
	d.list = append(d.list, c)
}

func (d *MemoryDirectory) Search(_ context.Context, name string) (*Contact, error) {
	q := strings.ToLower(strings.TrimSpace(name))
	if q == "" {
		return nil, ErrNotFound
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	// Exact name first, then prefix, then label.
	for _, c := range d.list {
		if strings.ToLower(c.Name) == q {
			return c, nil
		}
	}
	for _, c := range d.list {
		if strings.HasPrefix(strings.ToLower(c.Name), q) {
			return c, nil
		}
	}
	for _, c := range d.list {
		for _, l := range c.Labels {
			if strings.ToLower(l) == q {
				return c, nil
			}
		}
	}
	return nil, ErrNotFound
}

func (d *MemoryDirectory) ByID(_ context.Context, id string) (*Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, c := range d.list {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, ErrNotFound
}
