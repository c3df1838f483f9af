// Package search implements the query matcher over dataset records.
//
// A query is normalized (whitespace removed, lower-cased) and routed to one
// of three modes by SelectMode:
//
//   - random: a dice trigger picks one record with an image
//   - alternate: a leading slash matches against the alternate keyword
//   - keyword: the default, matching against the primary keyword
//
// A record matches when every distinct rune of the query occurs somewhere in
// the target field, regardless of order or adjacency.
package search

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/garyellow/picfinder-linebot-go/internal/dataset"
	"github.com/garyellow/picfinder-linebot-go/internal/metrics"
	"github.com/garyellow/picfinder-linebot-go/internal/stringutil"
)

// Mode is the matching strategy chosen for a query.
type Mode int

const (
	ModeKeyword Mode = iota
	ModeAlternate
	ModeRandom
)

func (m Mode) String() string {
	switch m {
	case ModeAlternate:
		return "alternate"
	case ModeRandom:
		return "random"
	default:
		return "keyword"
	}
}

// DiceTrigger starts a random pick, alone or as a prefix.
const DiceTrigger = "🎲"

// randomWords trigger a random pick only as the whole normalized query.
var randomWords = []string{DiceTrigger, "隨機", "random"}

// alternatePrefixes switch matching to the alternate keyword column:
// ASCII solidus, fullwidth solidus and division slash.
var alternatePrefixes = []string{"/", "／", "∕"}

// IDRange restricts random picks to records whose numeric ID lies in [Min, Max].
type IDRange struct {
	Min int
	Max int
}

func (r IDRange) contains(id string) bool {
	if !stringutil.IsNumeric(id) {
		return false
	}
	n, err := strconv.Atoi(id)
	if err != nil {
		return false
	}
	return n >= r.Min && n <= r.Max
}

// Engine matches queries against dataset records. It holds no per-query state
// and is safe for concurrent use.
type Engine struct {
	idRange *IDRange
	intN    func(n int) int
	metrics *metrics.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithIDRange limits random picks to numeric IDs in [minID, maxID].
func WithIDRange(minID, maxID int) Option {
	return func(e *Engine) { e.idRange = &IDRange{Min: minID, Max: maxID} }
}

// WithRand replaces the uniform source used for random picks.
// intN must return a value in [0, n).
func WithRand(intN func(n int) int) Option {
	return func(e *Engine) { e.intN = intN }
}

// WithMetrics records a search outcome per mode.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates a match engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{intN: rand.IntN}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Normalize removes all whitespace and lower-cases the query.
func Normalize(query string) string {
	return strings.ToLower(stringutil.StripWhitespace(query))
}

// SelectMode returns the mode for a normalized query and the remaining match
// text. Random takes priority over alternate, which takes priority over keyword.
// Exactly one alternate prefix is stripped.
func SelectMode(normalized string) (Mode, string) {
	for _, w := range randomWords {
		if normalized == w {
			return ModeRandom, ""
		}
	}
	if strings.HasPrefix(normalized, DiceTrigger) {
		return ModeRandom, ""
	}
	for _, p := range alternatePrefixes {
		if rest, ok := strings.CutPrefix(normalized, p); ok {
			return ModeAlternate, rest
		}
	}
	return ModeKeyword, normalized
}

// Search returns the records matching query in dataset order. It never fails;
// an empty slice means no match.
func (e *Engine) Search(query string, records []dataset.Record) []dataset.Record {
	mode, text := SelectMode(Normalize(query))

	var results []dataset.Record
	switch mode {
	case ModeRandom:
		results = e.pickRandom(records)
	case ModeAlternate:
		results = match(records, text, func(r dataset.Record) string { return r.AltKeyword })
	default:
		results = match(records, text, func(r dataset.Record) string { return r.Keyword })
	}

	if e.metrics != nil {
		e.metrics.RecordSearch(mode.String(), outcome(len(results)))
	}
	return results
}

// RandomCandidates returns the records eligible for a random pick.
func (e *Engine) RandomCandidates(records []dataset.Record) []dataset.Record {
	var candidates []dataset.Record
	for _, r := range records {
		if !r.HasImage() {
			continue
		}
		if e.idRange != nil && !e.idRange.contains(r.ID) {
			continue
		}
		candidates = append(candidates, r)
	}
	return candidates
}

func (e *Engine) pickRandom(records []dataset.Record) []dataset.Record {
	candidates := e.RandomCandidates(records)
	if len(candidates) == 0 {
		return nil
	}
	return []dataset.Record{candidates[e.intN(len(candidates))]}
}

func match(records []dataset.Record, query string, field func(dataset.Record) string) []dataset.Record {
	if query == "" {
		return nil
	}
	var results []dataset.Record
	for _, r := range records {
		target := strings.ToLower(strings.TrimSpace(field(r)))
		if stringutil.ContainsRuneSet(target, query) {
			results = append(results, r)
		}
	}
	return results
}

func outcome(n int) string {
	switch n {
	case 0:
		return "none"
	case 1:
		return "single"
	default:
		return "list"
	}
}
