package texture

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/compose/internal/cache"
)

// Resolver fetches the raw bytes behind a source reference.
type Resolver interface {
	Resolve(ctx context.Context, sourceRef string) ([]byte, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, sourceRef string) ([]byte, error)

// Resolve calls f(ctx, sourceRef).
func (f ResolverFunc) Resolve(ctx context.Context, sourceRef string) ([]byte, error) {
	return f(ctx, sourceRef)
}

// Stats describes cache activity.
type Stats struct {
	// Decodes is the number of decodes started.
	Decodes uint64
	// Failures is the number of decodes that resolved with an error.
	Failures uint64
	// Resident is the number of shared symbol ids currently held.
	Resident int
}

// Config configures a Cache.
type Config struct {
	// Resolver fetches source bytes. Required.
	Resolver Resolver
	// Decoder turns bytes into pixels. Nil means ImageDecoder{}.
	Decoder Decoder
	// OnDecode, if set, is called after every finished decode with its error.
	OnDecode func(err error)
}

// Cache shares textures by symbol id and runs decodes off the caller's
// goroutine. All methods are safe for concurrent use.
type Cache struct {
	shared   *cache.RefCache[string, *Future]
	resolver Resolver
	decoder  Decoder
	onDecode func(error)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	inflight int
	idle     chan struct{} // closed while inflight is zero

	decodes  atomic.Uint64
	failures atomic.Uint64
}

// NewCache creates a texture cache.
func NewCache(cfg Config) *Cache {
	dec := cfg.Decoder
	if dec == nil {
		dec = ImageDecoder{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	idle := make(chan struct{})
	close(idle)
	return &Cache{
		idle:     idle,
		shared:   cache.NewRef[string, *Future](),
		resolver: cfg.Resolver,
		decoder:  dec,
		onDecode: cfg.OnDecode,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Acquire takes a reference to the shared texture for symbolID.
// The first reference creates the future and starts one decode of
// sourceRef; later references share that future whether it is still
// in flight or already resolved.
func (c *Cache) Acquire(symbolID, sourceRef string) *Future {
	f, created := c.shared.Acquire(symbolID, newFuture)
	if created {
		slogger().Debug("texture: decode started", "symbol", symbolID, "source", sourceRef)
		c.start(f, sourceRef)
	}
	return f
}

// Release drops one reference to symbolID. The last release removes the
// key and destroys the texture, now or when its decode completes.
func (c *Cache) Release(symbolID string) {
	f, freed := c.shared.Release(symbolID)
	if !freed {
		return
	}
	slogger().Debug("texture: released", "symbol", symbolID)
	f.Discard()
}

// Load starts a private decode of sourceRef. The caller owns the future
// and must Discard it when done.
func (c *Cache) Load(sourceRef string) *Future {
	f := newFuture()
	c.start(f, sourceRef)
	return f
}

// Contains reports whether symbolID is resident (decoded or in flight).
func (c *Cache) Contains(symbolID string) bool {
	_, ok := c.shared.Get(symbolID)
	return ok
}

// Refs returns the reference count of symbolID.
func (c *Cache) Refs(symbolID string) int {
	return c.shared.Refs(symbolID)
}

// Stats returns decode counters and the number of resident keys.
func (c *Cache) Stats() Stats {
	return Stats{
		Decodes:  c.decodes.Load(),
		Failures: c.failures.Load(),
		Resident: c.shared.Len(),
	}
}

// Purge drops every shared texture regardless of its reference count.
// Used when the device is lost; outstanding references become invalid.
func (c *Cache) Purge() {
	for _, f := range c.shared.Drain() {
		f.Discard()
	}
}

// Close purges the cache and cancels the context handed to resolvers.
// Decodes already running still resolve their futures.
func (c *Cache) Close() {
	c.Purge()
	c.cancel()
}

// Idle blocks until no decode is in flight or ctx ends. Decodes started
// while waiting are waited for too.
func (c *Cache) Idle(ctx context.Context) error {
	c.mu.Lock()
	idle := c.idle
	c.mu.Unlock()
	select {
	case <-idle:
		return nil
	default:
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start runs one decode on its own goroutine.
func (c *Cache) start(f *Future, sourceRef string) {
	c.decodes.Add(1)
	c.mu.Lock()
	if c.inflight == 0 {
		c.idle = make(chan struct{})
	}
	c.inflight++
	c.mu.Unlock()
	go func() {
		defer c.finish()
		tex, err := c.decode(sourceRef)
		if err != nil {
			c.failures.Add(1)
			slogger().Warn("texture: decode failed", "source", sourceRef, "err", err)
		}
		f.resolve(tex, err)
		if c.onDecode != nil {
			c.onDecode(err)
		}
	}()
}

// finish marks one decode as done.
func (c *Cache) finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	if c.inflight == 0 {
		close(c.idle)
	}
}

func (c *Cache) decode(sourceRef string) (tex *Texture, err error) {
	defer func() {
		if r := recover(); r != nil {
			tex, err = nil, fmt.Errorf("%w: %q: panic: %v", ErrDecodeFailure, sourceRef, r)
		}
	}()
	if c.resolver == nil {
		return nil, fmt.Errorf("%w: no resolver for %q", ErrDecodeFailure, sourceRef)
	}
	data, err := c.resolver.Resolve(c.ctx, sourceRef)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %q: %w", ErrDecodeFailure, sourceRef, err)
	}
	buf, err := c.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrDecodeFailure, sourceRef, err)
	}
	return NewTexture(buf), nil
}
