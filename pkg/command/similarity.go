package command

import (
	"sort"
	"strings"
	"unicode"
)

// MinSuggestionScore is the Jaccard floor for near-miss suggestions.
const MinSuggestionScore = 0.3

// Suggestion is a near-miss command with the trigger phrase that scored it.
type Suggestion struct {
	Command *Command
	Phrase  string
	Score   float64
}

// Suggest ranks commands by token-set Jaccard similarity between the
// utterance and their trigger phrases, best phrase per command, scores
// below MinSuggestionScore dropped.
func (r *Registry) Suggest(rawText string) []Suggestion {
	text := tokens(rawText)
	if len(text) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Suggestion
	for _, id := range r.order {
		c := r.cmds[id]
		var (
			bestPhrase string
			bestScore  float64
		)
		for _, phrase := range c.TriggerPhrases {
			score := jaccard(text, tokens(phrase))
			if score > bestScore {
				bestScore, bestPhrase = score, phrase
			}
		}
		if bestScore >= MinSuggestionScore {
			out = append(out, Suggestion{Command: c, Phrase: bestPhrase, Score: bestScore})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// tokens splits text into a token set: runs of latin letters and digits
// become word tokens, each Han rune is its own token, and {placeholder}
// spans are skipped so trigger templates compare on their literal parts.
func tokens(text string) map[string]struct{} {
	set := map[string]struct{}{}
	var word strings.Builder
	flush := func() {
		if word.Len() > 0 {
			set[word.String()] = struct{}{}
			word.Reset()
		}
	}

	inPlaceholder := false
	for _, r := range strings.ToLower(text) {
		switch {
		case r == '{':
			inPlaceholder = true
			flush()
		case r == '}':
			inPlaceholder = false
		case inPlaceholder:
		case unicode.Is(unicode.Han, r):
			flush()
			set[string(r)] = struct{}{}
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return set
}

// jaccard computes |a∩b| / |a∪b| over token sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
