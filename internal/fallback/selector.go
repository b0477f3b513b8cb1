// Package fallback picks a canned redirect reply when the model answer is
// empty or declines the question.
package fallback

import (
	"errors"
	"math/rand/v2"
	"strings"
)

// ErrEmptyPool is returned by New when no usable reply is supplied.
var ErrEmptyPool = errors.New("fallback: empty pool")

// Option configures a Selector.
type Option func(*Selector)

// WithIntN replaces the random source. fn must return a value in [0, n).
func WithIntN(fn func(n int) int) Option {
	return func(s *Selector) {
		if fn != nil {
			s.intN = fn
		}
	}
}

// Selector draws uniformly from a fixed pool. Safe for concurrent use when
// the random source is.
type Selector struct {
	pool []string
	intN func(n int) int
}

// New copies pool and returns a Selector over it.
func New(pool []string, opts ...Option) (*Selector, error) {
	cp := make([]string, 0, len(pool))
	for _, p := range pool {
		if strings.TrimSpace(p) != "" {
			cp = append(cp, p)
		}
	}
	if len(cp) == 0 {
		return nil, ErrEmptyPool
	}
	s := &Selector{pool: cp, intN: rand.IntN}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Pick returns one reply from the pool.
func (s *Selector) Pick() string {
	i := s.intN(len(s.pool))
	if i < 0 || i >= len(s.pool) {
		i = 0
	}
	return s.pool[i]
}

// Pool returns a copy of the configured replies.
func (s *Selector) Pool() []string {
	return append([]string(nil), s.pool...)
}
