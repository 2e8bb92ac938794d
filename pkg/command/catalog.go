package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/charice-projects/omnivoice/pkg/kv"
)

// Catalog persists a user's custom command list wholesale under
// commands:user:<id>. The list is ordered; registration order is part of
// the matching semantics.
type Catalog struct {
	store kv.Store
}

// NewCatalog wraps a store.
func NewCatalog(store kv.Store) *Catalog {
	return &Catalog{store: store}
}

func catalogKey(userID string) kv.Key {
	return kv.Key{"commands", "user", userID}
}

// Save writes the full command list for a user. Executors are not
// persisted; Load rebinds a reply-template executor.
func (c *Catalog) Save(ctx context.Context, userID string, cmds []*Command) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalid)
	}
	records := make([]Command, len(cmds))
	for i, cmd := range cmds {
		records[i] = *cmd
		records[i].Execute = nil
	}
	data, err := msgpack.Marshal(records)
	if err != nil {
		return fmt.Errorf("command: encode catalogue: %w", err)
	}
	if err := c.store.Set(ctx, catalogKey(userID), data); err != nil {
		return fmt.Errorf("command: save catalogue: %w", err)
	}
	return nil
}

// Load reads the user's command list. A user with no saved catalogue gets
// an empty list, not an error. Loaded commands answer with their Reply
// template.
func (c *Catalog) Load(ctx context.Context, userID string) ([]*Command, error) {
	data, err := c.store.Get(ctx, catalogKey(userID))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("command: load catalogue: %w", err)
	}

	var records []Command
	if err := msgpack.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("command: decode catalogue: %w", err)
	}
	out := make([]*Command, len(records))
	for i := range records {
		cmd := records[i]
		cmd.Execute = replyExecutor(cmd.Reply)
		out[i] = &cmd
	}
	return out, nil
}

// Delete removes the user's catalogue.
func (c *Catalog) Delete(ctx context.Context, userID string) error {
	if err := c.store.Delete(ctx, catalogKey(userID)); err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("command: delete catalogue: %w", err)
	}
	return nil
}

// replyExecutor answers with the command's reply template, entities
// substituted.
func replyExecutor(reply string) ExecuteFunc {
	return func(ctx context.Context, req Request) (string, error) {
		if reply == "" {
			return "好的", nil
		}
		if out, ok := Substitute(reply, req.Entities); ok {
			return out, nil
		}
		return reply, nil
	}
}
