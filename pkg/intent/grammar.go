package intent

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/goccy/go-yaml"
)

//go:embed grammar.yaml
var defaultGrammarYAML []byte

// Rule is one grammar entry: an intent label with its ordered patterns.
// Patterns are Go regular expressions matched against the normalized
// utterance; named capture groups become entities.
type Rule struct {
	Intent   string   `yaml:"intent"`
	Patterns []string `yaml:"patterns"`
	Entities []string `yaml:"entities,omitempty"`
}

// Grammar is the full pattern table. Rule order and pattern order are both
// load-bearing: earlier entries win score ties.
type Grammar struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultGrammar returns the built-in grammar shipped with the detector.
func DefaultGrammar() *Grammar {
	g, err := ParseGrammar(defaultGrammarYAML)
	if err != nil {
		// The embedded grammar is validated by tests; a parse failure here
		// is a build defect.
		panic(fmt.Sprintf("intent: embedded grammar invalid: %v", err))
	}
	return g
}

// LoadGrammar reads a grammar from a YAML file.
func LoadGrammar(path string) (*Grammar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("intent: read grammar: %w", err)
	}
	return ParseGrammar(data)
}

// ParseGrammar parses grammar YAML.
func ParseGrammar(data []byte) (*Grammar, error) {
	var g Grammar
	if err := yaml.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("intent: parse grammar: %w", err)
	}
	if len(g.Rules) == 0 {
		return nil, fmt.Errorf("intent: grammar has no rules")
	}
	return &g, nil
}

// compiledRule is one (pattern, intent) pair ready for matching.
type compiledRule struct {
	label    Label
	re       *regexp.Regexp
	entities []string
}

// compileGrammar flattens the grammar into an ordered rule list, one entry
// per pattern, preserving file order.
func compileGrammar(g *Grammar) ([]compiledRule, error) {
	if g == nil {
		g = DefaultGrammar()
	}
	var rules []compiledRule
	for _, r := range g.Rules {
		if r.Intent == "" {
			return nil, fmt.Errorf("intent: rule with empty intent label")
		}
		for _, p := range r.Patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, fmt.Errorf("intent: pattern %q for %s: %w", p, r.Intent, err)
			}
			rules = append(rules, compiledRule{
				label:    Label(r.Intent),
				re:       re,
				entities: r.Entities,
			})
		}
	}
	return rules, nil
}
