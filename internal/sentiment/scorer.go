package sentiment

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"TickerTracker/internal/model"
)

const (
	negationScalar = -0.74
	butBefore      = 0.5
	butAfter       = 1.5
	exclaimBoost   = 0.292
	maxExclaims    = 4
	normalizeAlpha = 15.0
	negationReach  = 3
)

const punctuation = ".,!?\"'()[]{}:;“”‘’…-"

// Result is the outcome of scoring one piece of text.
type Result struct {
	Compound float64
	Positive float64
	Neutral  float64
	Negative float64
}

// Breakdown converts the result to its stored form.
func (r Result) Breakdown() model.SentimentBreakdown {
	return model.SentimentBreakdown{
		Positive: r.Positive,
		Neutral:  r.Neutral,
		Negative: r.Negative,
		Compound: r.Compound,
	}
}

// Scorer is a lexicon-based sentiment scorer. It is immutable after
// construction and safe for concurrent use.
type Scorer struct {
	words     map[string]float64
	boosters  map[string]float64
	negations map[string]struct{}
}

// NewScorer builds a scorer with the built-in lexicon.
func NewScorer() (*Scorer, error) {
	l, err := DefaultLexicon()
	if err != nil {
		return nil, err
	}
	return NewScorerWithLexicon(l), nil
}

// NewScorerWithLexicon builds a scorer from l. The maps are copied.
func NewScorerWithLexicon(l Lexicon) *Scorer {
	s := &Scorer{
		words:     make(map[string]float64, len(l.Words)),
		boosters:  make(map[string]float64, len(l.Boosters)),
		negations: make(map[string]struct{}, len(l.Negations)),
	}
	for w, v := range l.Words {
		s.words[strings.ToLower(w)] = v
	}
	for w, v := range l.Boosters {
		s.boosters[strings.ToLower(w)] = v
	}
	for _, w := range l.Negations {
		s.negations[strings.ToLower(w)] = struct{}{}
	}
	return s
}

// ScoreArticle scores the article's headline and summary.
func (s *Scorer) ScoreArticle(a model.NewsArticle) Result {
	return s.Score(a.Text())
}

// Score returns the compound score and polarity proportions of text.
// Identical input always yields identical output.
func (s *Scorer) Score(text string) Result {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return Result{Neutral: 1}
	}

	valences := make([]float64, len(tokens))
	for i, tok := range tokens {
		v, ok := s.words[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if b, ok := s.boosters[tokens[i-1]]; ok {
				if v > 0 {
					v += b
				} else {
					v -= b
				}
			}
		}
		for j := max(0, i-negationReach); j < i; j++ {
			if s.isNegation(tokens[j]) {
				v *= negationScalar
				break
			}
		}
		valences[i] = v
	}

	for i, tok := range tokens {
		if tok != "but" {
			continue
		}
		for j := range valences {
			if j < i {
				valences[j] *= butBefore
			} else if j > i {
				valences[j] *= butAfter
			}
		}
		break
	}

	exclaims := float64(min(strings.Count(text, "!"), maxExclaims))
	emphasis := exclaims * exclaimBoost

	var sum, pos, neg, neu float64
	for _, v := range valences {
		sum += v
		switch {
		case v > 0:
			pos += v + 1
		case v < 0:
			neg += v - 1
		default:
			neu++
		}
	}
	switch {
	case sum > 0:
		sum += emphasis
	case sum < 0:
		sum -= emphasis
	}
	switch {
	case pos > math.Abs(neg):
		pos += emphasis
	case pos < math.Abs(neg):
		neg -= emphasis
	}

	total := pos + math.Abs(neg) + neu
	p, u, n := proportions(pos/total, neu/total, math.Abs(neg)/total)
	return Result{
		Compound: round(normalize(sum), 4),
		Positive: p,
		Neutral:  u,
		Negative: n,
	}
}

// proportions rounds the three shares to 3 places and moves the rounding
// residue onto the largest share, so each stays in [0,1] and they sum to 1.
func proportions(pos, neu, neg float64) (float64, float64, float64) {
	v := [3]float64{round(pos, 3), round(neu, 3), round(neg, 3)}
	largest := 0
	for i := range v {
		if v[i] > v[largest] {
			largest = i
		}
	}
	v[largest] = round(1-(v[0]+v[1]+v[2]-v[largest]), 3)
	return v[0], v[1], v[2]
}

func (s *Scorer) isNegation(tok string) bool {
	if _, ok := s.negations[tok]; ok {
		return true
	}
	return strings.HasSuffix(tok, "n't") || strings.HasSuffix(tok, "n’t")
}

func tokenize(text string) []string {
	fields := strings.Fields(text)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.ToLower(strings.Trim(f, punctuation))
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// normalize maps an unbounded sum into (-1, 1).
func normalize(sum float64) float64 {
	n := sum / math.Sqrt(sum*sum+normalizeAlpha)
	return math.Max(-1, math.Min(1, n))
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
