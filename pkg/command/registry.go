package command

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Registry holds the active command set. Safe for concurrent use.
//
// Match resolution order: filter by intent label, prefer a command whose
// substituted trigger phrase appears literally in the utterance, otherwise
// fall back to entity-presence compatibility, and break remaining ties by
// priority. Registration order is the final tie-break so matching stays
// deterministic.
type Registry struct {
	mu    sync.RWMutex
	cmds  map[string]*Command
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]*Command)}
}

// Register adds a command. The id must be unused.
func (r *Registry) Register(c *Command) error {
	if err := c.validate(); err != nil {
		return err
	}
	if c.Class == "" {
		c.Class = ClassStandard
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cmds[c.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, c.ID)
	}
	r.cmds[c.ID] = c
	r.order = append(r.order, c.ID)
	return nil
}

// Unregister removes a command by id.
func (r *Registry) Unregister(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.cmds[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.cmds, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Get returns the command with the given id.
func (r *Registry) Get(id string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.cmds[id]
	return c, ok
}

// List returns all commands in registration order.
func (r *Registry) List() []*Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Command, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cmds[id])
	}
	return out
}

// Match resolves an intent to a command, or nil when nothing fits.
func (r *Registry) Match(label intent.Label, entities map[string]string, rawText string) *Command {
	if label == "" || label == intent.LabelUnknown {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*Command
	for _, id := range r.order {
		if c := r.cmds[id]; c.Intent == label {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	norm := intent.Normalize(rawText)

	// Literal trigger-phrase hit beats everything else.
	var triggered []*Command
	for _, c := range candidates {
		if triggerHit(c, entities, norm) {
			triggered = append(triggered, c)
		}
	}
	if len(triggered) > 0 {
		return bestPriority(triggered)
	}

	// Entity-presence compatibility.
	var compatible []*Command
	for _, c := range candidates {
		if hasEntities(c, entities) {
			compatible = append(compatible, c)
		}
	}
	if len(compatible) > 0 {
		return bestPriority(compatible)
	}

	// Label alone still identifies the command; missing entities are
	// surfaced by the orchestrator's validation gate, which can prompt
	// for them instead of reporting no match.
	return bestPriority(candidates)
}

// triggerHit reports whether any trigger phrase, with entities substituted,
// occurs literally in the normalized utterance.
func triggerHit(c *Command, entities map[string]string, norm string) bool {
	for _, phrase := range c.TriggerPhrases {
		sub, ok := Substitute(phrase, entities)
		if !ok {
			continue
		}
		sub = intent.Normalize(sub)
		if sub != "" && strings.Contains(norm, sub) {
			return true
		}
	}
	return false
}

// hasEntities reports whether all required entities are present and
// non-empty.
func hasEntities(c *Command, entities map[string]string) bool {
	for _, name := range c.RequiredEntities {
		if entities[name] == "" {
			return false
		}
	}
	return true
}

// bestPriority returns the highest-priority command; earlier registration
// wins ties. cmds must be non-empty and ordered by registration.
func bestPriority(cmds []*Command) *Command {
	best := cmds[0]
	for _, c := range cmds[1:] {
		if c.Priority > best.Priority {
			best = c
		}
	}
	return best
}
