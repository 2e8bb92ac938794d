// Package trie routes hierarchical names to values. The transcriber and
// speaker multiplexers resolve provider names like "asr/openai" or
// "tts/console" through it, with MQTT-style wildcards as catch-alls:
//
//	a/b/c  exact segments
//	a/+/c  "+" matches exactly one segment
//	a/#    "#" matches everything below, only valid at the end
package trie

import (
	"errors"
	"strings"
)

// ErrInvalidPattern is returned for a "#" anywhere but the last segment.
var ErrInvalidPattern = errors.New("trie: '#' is only valid as the final segment")

type node[T any] struct {
	kids map[string]*node[T]
	plus *node[T] // "+" branch
	hash *node[T] // "#" branch, terminal
	leaf *T
}

// Trie maps slash-separated patterns to values. Lookups prefer exact
// segments over "+", and "+" over "#". Not safe for concurrent
// mutation; register everything before routing.
type Trie[T any] struct {
	root node[T]
	size int
}

func New[T any]() *Trie[T] { return &Trie[T]{} }

// Add registers v under pattern, replacing any previous value there.
func (t *Trie[T]) Add(pattern string, v T) error {
	n := &t.root
	segs := strings.Split(pattern, "/")
	for i, seg := range segs {
		switch seg {
		case "#":
			if i != len(segs)-1 {
				return ErrInvalidPattern
			}
			if n.hash == nil {
				n.hash = &node[T]{}
			}
			n = n.hash
		case "+":
			if n.plus == nil {
				n.plus = &node[T]{}
			}
			n = n.plus
		default:
			if n.kids == nil {
				n.kids = make(map[string]*node[T])
			}
			kid := n.kids[seg]
			if kid == nil {
				kid = &node[T]{}
				n.kids[seg] = kid
			}
			n = kid
		}
	}
	if n.leaf == nil {
		t.size++
	}
	n.leaf = &v
	return nil
}

// Lookup returns the value the path routes to.
func (t *Trie[T]) Lookup(path string) (T, bool) {
	_, v, ok := t.Match(path)
	return v, ok
}

// Match additionally reports which registered pattern won.
func (t *Trie[T]) Match(path string) (pattern string, v T, ok bool) {
	leaf, segs := t.root.match(strings.Split(path, "/"), nil)
	if leaf == nil {
		var zero T
		return "", zero, false
	}
	return strings.Join(segs, "/"), *leaf, true
}

func (n *node[T]) match(segs, matched []string) (*T, []string) {
	if len(segs) == 0 {
		if n.leaf != nil {
			return n.leaf, matched
		}
		return nil, nil
	}
	seg, rest := segs[0], segs[1:]
	if kid := n.kids[seg]; kid != nil {
		if leaf, pat := kid.match(rest, append(matched, seg)); leaf != nil {
			return leaf, pat
		}
	}
	if n.plus != nil {
		if leaf, pat := n.plus.match(rest, append(matched, "+")); leaf != nil {
			return leaf, pat
		}
	}
	if n.hash != nil && n.hash.leaf != nil {
		return n.hash.leaf, append(matched, "#")
	}
	return nil, nil
}

// Len is the number of registered patterns.
func (t *Trie[T]) Len() int { return t.size }
