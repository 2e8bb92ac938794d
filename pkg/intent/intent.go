// Package intent turns a final transcript into a typed intent with extracted
// entities. Recognition is a pure function over (text, conversation context):
// identical input always yields an identical Intent.
//
// Three strategies run in order, highest confidence wins:
//
//  1. Pattern grammars: an ordered, data-driven table of regular expressions
//     grouped by intent label. Named capture groups become entities.
//  2. Keyword fallback: a fixed keyword→label table, scored by how much of
//     the utterance the keyword covers. Only consulted when no pattern
//     reaches the accept threshold.
//  3. Context enhancement: a short rolling memory of recent commands nudges
//     low-confidence results toward the previous intent.
//
// The grammar is loaded from YAML (see [LoadGrammar]) so tuning patterns does
// not require touching orchestration code. Scoring weights are plain struct
// fields for the same reason.
package intent

import (
	"sort"
)

// Label identifies an intent in the fixed taxonomy.
type Label string

// The intent taxonomy. Values are stable identifiers used in grammar files,
// the command registry, and the audit log.
const (
	LabelSendMessage    Label = "send_message"
	LabelMakeCall       Label = "make_call"
	LabelSearchContact  Label = "search_contact"
	LabelEmergencyAlert Label = "emergency_alert"
	LabelReadMessages   Label = "read_messages"
	LabelCancel         Label = "cancel"
	LabelConfirm        Label = "confirm"
	LabelUnknown        Label = "unknown"
)

// Slot is a named parameter extracted from the utterance, with the
// per-entity confidence and the raw matched text before cleanup.
type Slot struct {
	Value      string
	Confidence float64
	Raw        string
}

// Intent is the classified purpose of one utterance. Immutable once
// produced; one Intent per final transcript.
type Intent struct {
	Label      Label
	Confidence float64
	Entities   map[string]string
	Slots      map[string]Slot
}

// Scoring holds the confidence weights used by the recognizer. The values
// are tuned heuristics, not invariants; callers may override individual
// fields before constructing a Recognizer.
type Scoring struct {
	// PatternBase is the base confidence for any pattern match.
	PatternBase float64
	// ExactBonus is added when the pattern consumes the whole utterance.
	ExactBonus float64
	// CoverageBonus is scaled by matched-length / text-length.
	CoverageBonus float64
	// EntityBonus is scaled by extracted-entity count, capped at MaxEntities.
	EntityBonus float64
	// MaxEntities caps the entity count used for EntityBonus.
	MaxEntities int
	// PatternAccept is the minimum pattern confidence that suppresses the
	// keyword fallback.
	PatternAccept float64
	// BoostBelow is the confidence below which context enhancement applies.
	BoostBelow float64
	// ContextBoost multiplies confidence when the context is non-empty.
	ContextBoost float64
	// SubstituteConfidence is assigned when an unknown result is replaced
	// by the context's last command.
	SubstituteConfidence float64
}

// DefaultScoring returns the standard weights.
func DefaultScoring() Scoring {
	return Scoring{
		PatternBase:          0.5,
		ExactBonus:           0.3,
		CoverageBonus:        0.2,
		EntityBonus:          0.1,
		MaxEntities:          3,
		PatternAccept:        0.5,
		BoostBelow:           0.7,
		ContextBoost:         1.1,
		SubstituteConfidence: 0.6,
	}
}

// Recognizer maps transcripts to intents. Safe for concurrent use; all
// state is immutable after construction.
type Recognizer struct {
	rules    []compiledRule
	keywords []keywordEntry
	scoring  Scoring
}

// NewRecognizer compiles the grammar with default scoring.
func NewRecognizer(g *Grammar) (*Recognizer, error) {
	return NewRecognizerScored(g, DefaultScoring())
}

// NewRecognizerScored compiles the grammar with explicit scoring weights.
func NewRecognizerScored(g *Grammar, s Scoring) (*Recognizer, error) {
	rules, err := compileGrammar(g)
	if err != nil {
		return nil, err
	}
	return &Recognizer{
		rules:    rules,
		keywords: defaultKeywords(),
		scoring:  s,
	}, nil
}

// Recognize classifies the utterance. It never returns a nil result: text
// that matches nothing yields LabelUnknown with zero confidence. cctx may
// be nil.
func (r *Recognizer) Recognize(text string, cctx *Context) Intent {
	norm := Normalize(text)

	best := Intent{
		Label:    LabelUnknown,
		Entities: map[string]string{},
		Slots:    map[string]Slot{},
	}

	if norm != "" {
		if in, ok := r.matchPatterns(norm); ok {
			best = in
		}
		if best.Confidence < r.scoring.PatternAccept {
			if in, ok := r.matchKeywords(norm); ok && in.Confidence > best.Confidence {
				best = in
			}
		}
	}

	return r.enhance(best, cctx)
}

// matchPatterns runs the grammar in order and keeps the highest-scoring
// match. Ties keep the earlier rule so grammar order stays load-bearing.
func (r *Recognizer) matchPatterns(norm string) (Intent, bool) {
	var (
		best  Intent
		found bool
	)
	for _, rule := range r.rules {
		m := rule.re.FindStringSubmatchIndex(norm)
		if m == nil {
			continue
		}

		slots := extractSlots(rule, norm, m)
		conf := r.scorePattern(norm, m, len(slots))

		if !found || conf > best.Confidence {
			best = Intent{
				Label:      rule.label,
				Confidence: conf,
				Entities:   slotValues(slots),
				Slots:      slots,
			}
			found = true
		}
	}
	return best, found
}

// scorePattern computes base + exact-match bonus + coverage bonus +
// entity-count bonus.
func (r *Recognizer) scorePattern(norm string, m []int, entities int) float64 {
	s := r.scoring
	conf := s.PatternBase

	textLen := len([]rune(norm))
	matchLen := len([]rune(norm[m[0]:m[1]]))

	if m[0] == 0 && m[1] == len(norm) {
		conf += s.ExactBonus
	}
	if textLen > 0 {
		conf += s.CoverageBonus * float64(matchLen) / float64(textLen)
	}
	if entities > s.MaxEntities {
		entities = s.MaxEntities
	}
	if s.MaxEntities > 0 {
		conf += s.EntityBonus * float64(entities) / float64(s.MaxEntities)
	}
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

// enhance applies the context strategy: substitute the last command for
// unknown results, otherwise boost when any context exists.
func (r *Recognizer) enhance(in Intent, cctx *Context) Intent {
	if cctx == nil {
		return in
	}
	s := r.scoring

	if in.Confidence < s.BoostBelow && in.Label == LabelUnknown {
		if last, ok := cctx.Get(KeyLastCommand); ok && last != "" {
			in.Label = Label(last)
			in.Confidence = s.SubstituteConfidence
			return in
		}
		return in
	}

	if in.Confidence < s.BoostBelow && cctx.Len() > 0 {
		in.Confidence *= s.ContextBoost
		if in.Confidence > 1.0 {
			in.Confidence = 1.0
		}
	}
	return in
}

// slotValues projects slots to the flat entity map.
func slotValues(slots map[string]Slot) map[string]string {
	out := make(map[string]string, len(slots))
	for name, s := range slots {
		out[name] = s.Value
	}
	return out
}

// EntityNames returns the sorted entity names of an intent, for stable
// logging and tests.
func (in Intent) EntityNames() []string {
	names := make([]string, 0, len(in.Entities))
	for n := range in.Entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
