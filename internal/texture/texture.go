// Package texture loads node sources into textures and shares them by
// symbol identity.
//
// A Cache hands out Futures. Shared futures are keyed by symbol id and
// reference counted: the first Acquire for a key starts exactly one decode,
// later Acquires for the same key receive the same future, and the texture
// is destroyed when the last reference is released. Private futures from
// Load belong to a single owner, who discards them.
//
// Decoding runs on its own goroutine. Futures are polled with Result and
// never block the caller; Wait is available for tests and export.
package texture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compose/internal/image"
)

// Errors returned by futures and the cache.
var (
	// ErrDecodeFailure wraps every error that prevented a source from
	// becoming a texture.
	ErrDecodeFailure = errors.New("texture: decode failure")

	// ErrPending is returned by Future.Result while the decode is running.
	ErrPending = errors.New("texture: pending")

	// ErrDiscarded is returned by Future.Result after Discard.
	ErrDiscarded = errors.New("texture: discarded")
)

// nextID numbers textures for diagnostics.
var nextID atomic.Uint64

// Texture is a decoded, device-resident source image.
//
// The pixel data is float straight-alpha RGBA. A Texture is immutable once
// created; Destroy releases its pixels.
type Texture struct {
	id     uint64
	width  int
	height int
	buf    atomic.Pointer[image.Buf]
}

// NewTexture wraps buf as a texture.
func NewTexture(buf *image.Buf) *Texture {
	t := &Texture{
		id:     nextID.Add(1),
		width:  buf.Width(),
		height: buf.Height(),
	}
	t.buf.Store(buf)
	return t
}

// ID returns the texture's unique id.
func (t *Texture) ID() uint64 { return t.id }

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Buf returns the pixel data, or nil after Destroy.
func (t *Texture) Buf() *image.Buf { return t.buf.Load() }

// Destroy releases the pixel data. It is safe to call more than once.
func (t *Texture) Destroy() { t.buf.Store(nil) }

// Destroyed reports whether Destroy has been called.
func (t *Texture) Destroyed() bool { return t.buf.Load() == nil }

// Future is the eventual result of one decode.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	tex       *Texture
	err       error
	discarded bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Ready returns an already resolved future holding tex.
func Ready(tex *Texture) *Future {
	f := newFuture()
	f.resolve(tex, nil)
	return f
}

// Done returns a channel that is closed when the decode finishes.
func (f *Future) Done() <-chan struct{} { return f.done }

// Result returns the decoded texture without blocking.
// It returns ErrPending while the decode is running and ErrDiscarded once
// the future was discarded.
func (f *Future) Result() (*Texture, error) {
	select {
	case <-f.done:
	default:
		return nil, ErrPending
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.discarded {
		return nil, ErrDiscarded
	}
	return f.tex, f.err
}

// Wait blocks until the decode finishes or ctx is done.
func (f *Future) Wait(ctx context.Context) (*Texture, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Discard gives up the future. A resolved texture is destroyed now; a
// pending one is destroyed when its decode completes.
func (f *Future) Discard() {
	f.mu.Lock()
	if f.discarded {
		f.mu.Unlock()
		return
	}
	f.discarded = true
	tex := f.tex
	f.mu.Unlock()

	if tex != nil {
		tex.Destroy()
	}
}

// resolve stores the decode result and wakes waiters.
func (f *Future) resolve(tex *Texture, err error) {
	f.mu.Lock()
	f.tex, f.err = tex, err
	discarded := f.discarded
	f.mu.Unlock()
	close(f.done)

	if discarded && tex != nil {
		tex.Destroy()
	}
}
