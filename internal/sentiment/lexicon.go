package sentiment

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

// Lexicon holds word valences, booster increments and negation words.
type Lexicon struct {
	Words     map[string]float64 `yaml:"words"`
	Boosters  map[string]float64 `yaml:"boosters"`
	Negations []string           `yaml:"negations"`
}

// ParseLexicon decodes a YAML lexicon.
func ParseLexicon(data []byte) (Lexicon, error) {
	var l Lexicon
	if err := yaml.Unmarshal(data, &l); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(l.Words) == 0 {
		return Lexicon{}, fmt.Errorf("parse lexicon: no words")
	}
	return l, nil
}

// DefaultLexicon returns the built-in financial news lexicon.
func DefaultLexicon() (Lexicon, error) {
	return ParseLexicon(defaultLexicon)
}
