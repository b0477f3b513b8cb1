// Package search provides the canned-answer index: a deterministic,
// concurrency-safe fuzzy matcher over short question phrasings.
//
//   - No logging in the library (callers decide how/what to log)
//   - Functional options (Option pattern)
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring is an approximate substring match of the query inside each
// phrasing. The raw score is errors/len(query) + start/distance, a value of 0
// meaning the query occurs verbatim at the start of the phrasing. Raw scores
// above 0.6 are discarded; the rest are raised to a length norm of
// 1/sqrt(words in phrasing), so short phrasings are penalised less for the
// same edit distance. A zero raw score is clamped to machine epsilon.
package search

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/tbourn/portfolio-assistant/internal/domain"
)

// epsilon is the smallest positive float64 step above 1 (JS Number.EPSILON).
const epsilon = 2.220446049250313e-16

// maxRawScore discards candidates that are too far off before normalisation.
const maxRawScore = 0.6

// tieEpsilon treats two scores as equal for tie-breaking.
const tieEpsilon = 1e-9

// Result is a scored candidate. Lower Score is better.
type Result struct {
	Entry domain.CannedEntry
	Score float64
	Index int // position of the entry in the source slice
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	threshold float64
	distance  int
	fieldNorm bool
}

func defaultConfig() config {
	return config{
		threshold: 0.3,
		distance:  100,
		fieldNorm: true,
	}
}

// WithThreshold sets the acceptance bound used by Lookup (exclusive).
func WithThreshold(v float64) Option {
	return func(c *config) {
		if v > 0 && v <= 1 {
			c.threshold = v
		}
	}
}

// WithDistance sets how many characters of offset cost a full score point.
// Zero makes any non-zero offset a total miss.
func WithDistance(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.distance = n
		}
	}
}

// WithFieldNorm toggles the phrasing-length normalisation.
func WithFieldNorm(on bool) Option {
	return func(c *config) { c.fieldNorm = on }
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	entry  domain.CannedEntry
	text   []rune
	lower  string
	norm   float64
	source int
}

// FuzzyIndex is an immutable index over canned entries.
type FuzzyIndex struct {
	cfg  config
	docs []doc
}

// New builds an index over entries. Entries with a blank phrasing are
// skipped; the remaining order is preserved for tie-breaking.
func New(entries []domain.CannedEntry, opts ...Option) *FuzzyIndex {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for i, e := range entries {
		lower := strings.ToLower(strings.TrimSpace(e.Phrasing))
		if lower == "" {
			continue
		}
		docs = append(docs, doc{
			entry:  e,
			text:   []rune(lower),
			lower:  lower,
			norm:   lengthNorm(lower),
			source: i,
		})
	}
	return &FuzzyIndex{cfg: cfg, docs: docs}
}

// Len returns the number of indexed phrasings.
func (x *FuzzyIndex) Len() int { return len(x.docs) }

// Threshold returns the acceptance bound used by Lookup.
func (x *FuzzyIndex) Threshold() float64 { return x.cfg.threshold }

// Lookup returns the answer of the best candidate when its score is strictly
// below the configured threshold.
func (x *FuzzyIndex) Lookup(input string) (string, bool) {
	res := x.Search(input)
	if len(res) == 0 || res[0].Score >= x.cfg.threshold {
		return "", false
	}
	return res[0].Entry.Answer, true
}

// Search returns every candidate that survives the raw-score cut, best first.
// Ties are broken by full-string edit distance, then by entry order.
func (x *FuzzyIndex) Search(input string) []Result {
	q := strings.ToLower(strings.TrimSpace(input))
	if q == "" || len(x.docs) == 0 {
		return nil
	}
	pattern := []rune(q)

	type scored struct {
		Result
		edit int
	}
	buf := make([]scored, 0, len(x.docs))
	for _, d := range x.docs {
		raw := x.rawScore(pattern, d.text)
		if raw > maxRawScore {
			continue
		}
		buf = append(buf, scored{
			Result: Result{Entry: d.entry, Score: x.finalScore(raw, d.norm), Index: d.source},
			edit:   levenshtein.ComputeDistance(q, d.lower),
		})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		sa, sb := buf[a].Score, buf[b].Score
		if math.Abs(sa-sb) > tieEpsilon {
			return sa < sb
		}
		if buf[a].edit != buf[b].edit {
			return buf[a].edit < buf[b].edit
		}
		return buf[a].Index < buf[b].Index
	})

	out := make([]Result, len(buf))
	for i := range buf {
		out[i] = buf[i].Result
	}
	return out
}

func (x *FuzzyIndex) finalScore(raw, norm float64) float64 {
	if raw < epsilon {
		raw = epsilon
	}
	if !x.cfg.fieldNorm {
		return raw
	}
	return math.Pow(raw, norm)
}

// rawScore finds the cheapest approximate occurrence of pattern in text.
// It runs the Sellers variant of edit distance (free leading text) while
// tracking where each alignment starts.
func (x *FuzzyIndex) rawScore(pattern, text []rune) float64 {
	m, n := len(pattern), len(text)
	prevD := make([]int, n+1)
	prevS := make([]int, n+1)
	curD := make([]int, n+1)
	curS := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prevD[j], prevS[j] = 0, j
	}
	for i := 1; i <= m; i++ {
		curD[0], curS[0] = i, 0
		for j := 1; j <= n; j++ {
			cost := 1
			if pattern[i-1] == text[j-1] {
				cost = 0
			}
			d, s := prevD[j-1]+cost, prevS[j-1]
			if v := prevD[j] + 1; v < d {
				d, s = v, prevS[j]
			}
			if v := curD[j-1] + 1; v < d {
				d, s = v, curS[j-1]
			}
			curD[j], curS[j] = d, s
		}
		prevD, curD = curD, prevD
		prevS, curS = curS, prevS
	}

	best := math.Inf(1)
	for j := 0; j <= n; j++ {
		if sc := x.alignScore(prevD[j], m, prevS[j]); sc < best {
			best = sc
		}
	}
	return best
}

func (x *FuzzyIndex) alignScore(errs, patternLen, start int) float64 {
	accuracy := float64(errs) / float64(patternLen)
	if x.cfg.distance == 0 {
		if start > 0 {
			return 1
		}
		return accuracy
	}
	return accuracy + float64(start)/float64(x.cfg.distance)
}

// lengthNorm is 1/sqrt(word count), rounded to three decimals.
func lengthNorm(s string) float64 {
	words := len(strings.Fields(s))
	if words == 0 {
		words = 1
	}
	return math.Round(1000/math.Sqrt(float64(words))) / 1000
}
