package fallback

import (
	"errors"
	"testing"
)

func TestNew_EmptyPool(t *testing.T) {
	for _, pool := range [][]string{nil, {}, {" ", ""}} {
		if _, err := New(pool); !errors.Is(err, ErrEmptyPool) {
			t.Fatalf("New(%q) err = %v; want ErrEmptyPool", pool, err)
		}
	}
}

func TestPick_UsesInjectedSource(t *testing.T) {
	pool := []string{"a", "b", "c"}
	next := 2
	s, err := New(pool, WithIntN(func(n int) int {
		if n != 3 {
			t.Fatalf("IntN called with %d; want 3", n)
		}
		return next
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.Pick(); got != "c" {
		t.Fatalf("Pick = %q; want c", got)
	}
	next = 99 // out of range -> first element
	if got := s.Pick(); got != "a" {
		t.Fatalf("Pick with bad index = %q; want a", got)
	}
}

func TestPick_AlwaysFromPool(t *testing.T) {
	pool := []string{"x", "y", "z", "w"}
	s, _ := New(pool)
	seen := map[string]int{}
	for i := 0; i < 2000; i++ {
		seen[s.Pick()]++
	}
	for k := range seen {
		found := false
		for _, p := range pool {
			if p == k {
				found = true
			}
		}
		if !found {
			t.Fatalf("Pick returned %q outside the pool", k)
		}
	}
	if len(seen) != len(pool) {
		t.Fatalf("expected every reply to be drawn at least once in 2000 picks, got %v", seen)
	}
}

func TestPool_IsCopy(t *testing.T) {
	src := []string{"a"}
	s, _ := New(src)
	src[0] = "mutated"
	p := s.Pool()
	p[0] = "also mutated"
	if got := s.Pick(); got != "a" {
		t.Fatalf("selector must own its pool, got %q", got)
	}
}
