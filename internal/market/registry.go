package market

import (
	"fmt"
	"sort"
	"strings"

	"TickerTracker/internal/model"
)

// Info describes one market segment.
type Info struct {
	Segment  model.Segment `json:"segment" yaml:"segment"`
	Label    string        `json:"label" yaml:"label"`
	Suffix   string        `json:"suffix" yaml:"suffix"`
	Currency string        `json:"currency" yaml:"currency"`
	Exchange string        `json:"exchange,omitempty" yaml:"exchange"`
	// Context is appended to insights for instruments in this segment.
	Context     string   `json:"-" yaml:"context"`
	Instruments []string `json:"instruments" yaml:"instruments"`
}

// Registry resolves instruments within the known market segments.
type Registry struct {
	segments map[model.Segment]Info
}

// NewRegistry builds a registry from the given segment descriptions.
func NewRegistry(infos ...Info) *Registry {
	r := &Registry{segments: make(map[model.Segment]Info, len(infos))}
	for _, in := range infos {
		in.Instruments = append([]string(nil), in.Instruments...)
		r.segments[in.Segment] = in
	}
	return r
}

// DefaultRegistry returns the US, Indian and crypto segments with their
// popular instruments.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Info{
			Segment:     model.SegmentUS,
			Label:       "US Stock Market",
			Currency:    "USD",
			Instruments: []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "JPM", "V", "JNJ"},
		},
		Info{
			Segment:     model.SegmentIndia,
			Label:       "Indian Stock Market",
			Suffix:      ".NS",
			Currency:    "INR",
			Exchange:    "NSE",
			Context:     "Indian market stock. Monitor RBI policies and domestic economic indicators.",
			Instruments: []string{"RELIANCE", "TCS", "HDFCBANK", "INFY", "ICICIBANK", "HINDUNILVR", "ITC", "SBIN", "BHARTIARTL", "KOTAKBANK"},
		},
		Info{
			Segment:     model.SegmentCrypto,
			Label:       "Cryptocurrency",
			Suffix:      "-USD",
			Currency:    "USD",
			Context:     "Cryptocurrency. High volatility expected. Monitor regulatory news and Bitcoin dominance.",
			Instruments: []string{"BTC", "ETH", "BNB", "XRP", "ADA", "SOL", "DOGE", "DOT", "MATIC", "AVAX"},
		},
	)
}

// Parse converts a user-supplied name to a known segment. The empty string
// maps to the default segment.
func (r *Registry) Parse(name string) (model.Segment, error) {
	if strings.TrimSpace(name) == "" {
		return model.DefaultSegment, nil
	}
	seg := model.Segment(strings.ToUpper(strings.TrimSpace(name)))
	if err := r.Validate(seg); err != nil {
		return "", err
	}
	return seg, nil
}

// Validate returns ErrInvalidSegment for segments the registry does not know.
func (r *Registry) Validate(seg model.Segment) error {
	if _, ok := r.segments[seg]; !ok {
		return fmt.Errorf("%w: %q", model.ErrInvalidSegment, seg)
	}
	return nil
}

// Info returns the description of seg.
func (r *Registry) Info(seg model.Segment) (Info, error) {
	in, ok := r.segments[seg]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", model.ErrInvalidSegment, seg)
	}
	return in, nil
}

// Segments lists every segment ordered by name.
func (r *Registry) Segments() []Info {
	out := make([]Info, 0, len(r.segments))
	for _, in := range r.segments {
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}

// Symbol returns the external data-provider symbol for an instrument,
// e.g. RELIANCE in INDIA becomes RELIANCE.NS.
func (r *Registry) Symbol(instrument string, seg model.Segment) (string, error) {
	in, err := r.Info(seg)
	if err != nil {
		return "", err
	}
	base := r.normalize(instrument, in)
	if base == "" {
		return "", fmt.Errorf("%w: empty symbol", model.ErrInvalidInstrument)
	}
	return base + in.Suffix, nil
}

// BaseSymbol strips the segment suffix from a provider symbol.
func (r *Registry) BaseSymbol(symbol string, seg model.Segment) (string, error) {
	in, err := r.Info(seg)
	if err != nil {
		return "", err
	}
	return r.normalize(symbol, in), nil
}

// Context returns the insight context sentence for seg, if any.
func (r *Registry) Context(seg model.Segment) string {
	return r.segments[seg].Context
}

func (r *Registry) normalize(symbol string, in Info) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if in.Suffix != "" {
		s = strings.TrimSuffix(s, strings.ToUpper(in.Suffix))
	}
	return s
}

// Instrument names one tracked instrument.
type Instrument struct {
	Symbol  string        `json:"symbol"`
	Segment model.Segment `json:"segment"`
}

// Tracked lists every instrument across all segments.
func (r *Registry) Tracked() []Instrument {
	var out []Instrument
	for _, in := range r.Segments() {
		for _, s := range in.Instruments {
			out = append(out, Instrument{Symbol: s, Segment: in.Segment})
		}
	}
	return out
}

// WithInstruments returns a copy of r with the instrument lists replaced for
// the segments present in lists. Unknown segments are rejected.
func (r *Registry) WithInstruments(lists map[string][]string) (*Registry, error) {
	infos := r.Segments()
	byName := make(map[model.Segment]int, len(infos))
	for i, in := range infos {
		byName[in.Segment] = i
	}
	for name, syms := range lists {
		seg, err := r.Parse(name)
		if err != nil {
			return nil, err
		}
		norm := make([]string, 0, len(syms))
		for _, s := range syms {
			if b := r.normalize(s, infos[byName[seg]]); b != "" {
				norm = append(norm, b)
			}
		}
		infos[byName[seg]].Instruments = norm
	}
	return NewRegistry(infos...), nil
}
