// Package command is the registry of executable voice commands. A Command
// binds an intent label and trigger phrases to an executor; the registry
// resolves a recognized intent to the best-matching command and produces
// near-miss suggestions when nothing matches.
//
// Commands are registered at startup (built-in catalogue) or loaded from
// the user's persisted catalogue (see [Catalog]). Every run through a
// command, successful or not, lands in the bounded audit ring (see
// [History]).
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charice-projects/omnivoice/pkg/contacts"
	"github.com/charice-projects/omnivoice/pkg/intent"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when no command with the given id exists.
	ErrNotFound = errors.New("command: not found")
	// ErrDuplicate is returned when registering an id twice.
	ErrDuplicate = errors.New("command: duplicate id")
	// ErrInvalid is returned for a malformed command definition.
	ErrInvalid = errors.New("command: invalid definition")
)

// Class separates ordinary commands from ones with special handling.
type Class string

const (
	// ClassStandard commands follow the normal confirmation rules.
	ClassStandard Class = "standard"
	// ClassEmergency commands execute immediately and never wait for
	// confirmation.
	ClassEmergency Class = "emergency"
)

// Priority bounds.
const (
	MinPriority = 1
	MaxPriority = 10
)

// Request carries everything an executor needs for one invocation.
type Request struct {
	// Intent is the recognized intent that selected this command.
	Intent intent.Intent
	// RawText is the final transcript, unnormalized.
	RawText string
	// Entities is the merged entity map (extracted plus derived fields).
	Entities map[string]string
	// Contact is the resolved directory entry when the command names one,
	// nil otherwise.
	Contact *contacts.Contact
}

// ExecuteFunc performs the command's action and returns the spoken result.
type ExecuteFunc func(ctx context.Context, req Request) (string, error)

// Command is one executable voice command.
type Command struct {
	// ID is the unique, stable identifier (e.g. "send_message").
	ID string `msgpack:"id" yaml:"id"`
	// Intent is the label this command handles.
	Intent intent.Label `msgpack:"intent" yaml:"intent"`
	// TriggerPhrases are matched against the utterance after entity
	// placeholder substitution, e.g. "给{contact}发消息".
	TriggerPhrases []string `msgpack:"trigger_phrases" yaml:"trigger_phrases"`
	// Priority breaks match ties; higher wins. Range 1 to 10.
	Priority int `msgpack:"priority" yaml:"priority"`
	// RequiresConfirmation forces the confirmation gate regardless of
	// confidence.
	RequiresConfirmation bool `msgpack:"requires_confirmation" yaml:"requires_confirmation"`
	// RequiredEntities must all be present before execution.
	RequiredEntities []string `msgpack:"required_entities" yaml:"required_entities"`
	// Class is ClassStandard unless set.
	Class Class `msgpack:"class" yaml:"class"`
	// ConfirmPrompt is the spoken confirmation template, with {entity}
	// placeholders.
	ConfirmPrompt string `msgpack:"confirm_prompt" yaml:"confirm_prompt"`
	// Reply is a response template for catalogue commands that have no
	// custom executor.
	Reply string `msgpack:"reply" yaml:"reply"`

	// Execute runs the command. Not persisted; catalogue commands get a
	// template executor on load.
	Execute ExecuteFunc `msgpack:"-" yaml:"-"`
}

// validate checks the definition before registration.
func (c *Command) validate() error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalid)
	}
	if c.Intent == "" {
		return fmt.Errorf("%w: %s has no intent label", ErrInvalid, c.ID)
	}
	if c.Priority < MinPriority || c.Priority > MaxPriority {
		return fmt.Errorf("%w: %s priority %d out of range", ErrInvalid, c.ID, c.Priority)
	}
	return nil
}

// IsEmergency reports whether the command bypasses confirmation.
func (c *Command) IsEmergency() bool {
	return c.Class == ClassEmergency
}

// NeedsContact reports whether the command requires a resolved contact.
func (c *Command) NeedsContact() bool {
	for _, e := range c.RequiredEntities {
		if e == "contact" {
			return true
		}
	}
	return false
}

// Substitute replaces {name} placeholders in a template with entity values.
// ok is false when a placeholder has no corresponding entity.
func Substitute(template string, entities map[string]string) (string, bool) {
	var b strings.Builder
	b.Grow(len(template))

	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			return b.String(), true
		}
		close := strings.IndexByte(rest[open:], '}')
		if close < 0 {
			b.WriteString(rest)
			return b.String(), true
		}
		name := rest[open+1 : open+close]
		value, ok := entities[name]
		if !ok || value == "" {
			return "", false
		}
		b.WriteString(rest[:open])
		b.WriteString(value)
		rest = rest[open+close+1:]
	}
}
