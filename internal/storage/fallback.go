package storage

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Fallback wraps a primary Store and mirrors every value into memory. The
// first backend failure switches the wrapper into degraded mode for the rest
// of the process: reads and writes are then served from memory only and the
// caller never sees a storage error.
//
// Writes reach the primary detached from the caller's cancellation, bounded
// by WriteTimeout, so an abandoned request cannot leave the primary behind the
// mirror. Any failed write degrades. Cancelled or timed-out reads are served
// from memory without degrading.
type Fallback struct {
	primary  Store
	mem      *Memory
	log      zerolog.Logger
	degraded atomic.Bool

	// WriteTimeout bounds each primary Set or Delete. Defaults to
	// DefaultWriteTimeout.
	WriteTimeout time.Duration
}

// DefaultWriteTimeout is the primary write bound used when WriteTimeout is 0.
const DefaultWriteTimeout = 5 * time.Second

// NewFallback returns a degrading wrapper around primary.
func NewFallback(primary Store, log zerolog.Logger) *Fallback {
	return &Fallback{primary: primary, mem: NewMemory(), log: log}
}

// Degraded reports whether the primary backend has been abandoned.
func (f *Fallback) Degraded() bool { return f.degraded.Load() }

// fail degrades on a read error unless the caller gave up.
func (f *Fallback) fail(op, key string, err error) {
	if isCtxErr(err) {
		return
	}
	f.degrade(op, key, err)
}

func (f *Fallback) degrade(op, key string, err error) {
	if f.degraded.CompareAndSwap(false, true) {
		f.log.Warn().
			Err(err).
			Str("op", op).
			Str("key", key).
			Msg("storage unavailable, continuing in memory")
	}
}

// Get reads from the primary while healthy, falling back to the mirror.
func (f *Fallback) Get(ctx context.Context, key string) ([]byte, error) {
	if !f.Degraded() {
		v, err := f.primary.Get(ctx, key)
		switch {
		case err == nil:
			_ = f.mem.Set(ctx, key, v)
			return v, nil
		case errors.Is(err, ErrNotFound):
			return nil, ErrNotFound
		default:
			f.fail("get", key, err)
		}
	}
	return f.mem.Get(ctx, key)
}

// Set always updates the mirror and, while healthy, the primary.
func (f *Fallback) Set(ctx context.Context, key string, value []byte) error {
	_ = f.mem.Set(ctx, key, value)
	if f.Degraded() {
		return nil
	}
	wctx, cancel := f.writeCtx(ctx)
	defer cancel()
	if err := f.primary.Set(wctx, key, value); err != nil {
		f.degrade("set", key, err)
	}
	return nil
}

// Delete always updates the mirror and, while healthy, the primary.
func (f *Fallback) Delete(ctx context.Context, key string) error {
	_ = f.mem.Delete(ctx, key)
	if f.Degraded() {
		return nil
	}
	wctx, cancel := f.writeCtx(ctx)
	defer cancel()
	if err := f.primary.Delete(wctx, key); err != nil {
		f.degrade("delete", key, err)
	}
	return nil
}

func (f *Fallback) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	d := f.WriteTimeout
	if d <= 0 {
		d = DefaultWriteTimeout
	}
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func isCtxErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
