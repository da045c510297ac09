package compose

import (
	stdimage "image"
	"log/slog"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gogpu/compose/internal/image"
	"github.com/gogpu/compose/internal/texture"
)

// Resolver fetches the bytes behind a node's Source.
type Resolver = texture.Resolver

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc = texture.ResolverFunc

// Decoder turns source bytes into an image.
type Decoder interface {
	Decode(data []byte) (stdimage.Image, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(data []byte) (stdimage.Image, error)

// Decode calls f(data).
func (f DecoderFunc) Decode(data []byte) (stdimage.Image, error) { return f(data) }

// Option configures a Compositor during creation.
//
// Example:
//
//	c, err := compose.New(vp,
//	    compose.WithResolver(resolver),
//	    compose.WithSurfaceFormat(gputypes.TextureFormatRGBA16Float),
//	    compose.WithRegisterer(prometheus.DefaultRegisterer),
//	)
type Option func(*options)

// options holds optional configuration for Compositor creation.
type options struct {
	logger         *slog.Logger
	resolver       Resolver
	decoder        Decoder
	maxTextureSize int
	clock          func() time.Time
	format         gputypes.TextureFormat
	registerer     prometheus.Registerer
	device         hal.Device
	queue          hal.Queue
	workers        int
}

// defaultOptions returns the default compositor options.
func defaultOptions() options {
	return options{
		clock:          time.Now,
		format:         gputypes.TextureFormatRGBA8Unorm,
		maxTextureSize: texture.DefaultMaxTextureSize,
	}
}

// WithLogger sets the logger of one compositor. Without it the package
// logger configured by SetLogger is used.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithResolver sets the source resolver. Without a resolver every texture
// decode fails with ErrDecodeFailure.
func WithResolver(r Resolver) Option {
	return func(o *options) {
		o.resolver = r
	}
}

// WithDecoder replaces the built-in image decoder.
func WithDecoder(d Decoder) Option {
	return func(o *options) {
		o.decoder = d
	}
}

// WithMaxTextureSize sets the largest texture edge of the built-in decoder.
// Larger sources are downscaled.
func WithMaxTextureSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTextureSize = n
		}
	}
}

// WithClock sets the clock sampled for the grading time uniform.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithSurfaceFormat sets the format of the shared surface.
// RGBA8Unorm and BGRA8Unorm quantize after every draw like an 8-bit render
// attachment; RGBA16Float and RGBA32Float keep full precision.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithRegisterer exports the compositor's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithHALDevice compiles the WGSL grading and blend programs on device.
// With a non-nil queue every frame also records its grading and blend
// passes on the device and submits them to queue. The host keeps ownership
// of both.
func WithHALDevice(device hal.Device, queue hal.Queue) Option {
	return func(o *options) {
		o.device = device
		o.queue = queue
	}
}

// WithWorkers bounds the goroutines used to shade one filter pass.
// Zero means GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.workers = n
		}
	}
}

// textureDecoder builds the decoder handed to the texture cache.
func (o *options) textureDecoder() texture.Decoder {
	if o.decoder == nil {
		return texture.ImageDecoder{MaxSize: o.maxTextureSize}
	}
	d := o.decoder
	return texture.DecoderFunc(func(data []byte) (*image.Buf, error) {
		img, err := d.Decode(data)
		if err != nil {
			return nil, err
		}
		return image.FromImage(img)
	})
}

// quantizes reports whether format stores 8 bits per channel.
func quantizes(format gputypes.TextureFormat) bool {
	return format == gputypes.TextureFormatRGBA8Unorm || format == gputypes.TextureFormatBGRA8Unorm
}

// supportedFormat reports whether the software device can back format.
func supportedFormat(format gputypes.TextureFormat) bool {
	switch format {
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatBGRA8Unorm,
		gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA32Float:
		return true
	}
	return false
}
