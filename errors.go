package compose

import (
	"errors"
	"fmt"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/texture"
)

// Sentinel errors.
var (
	// ErrDecodeFailure wraps every error that kept a source from becoming a
	// texture. The affected node stays non-renderable.
	ErrDecodeFailure = texture.ErrDecodeFailure

	// ErrPending is returned while a texture is still decoding.
	ErrPending = texture.ErrPending

	// ErrMissingMaskParent describes a ClippingParentID that names no live,
	// ready node. The child is drawn unmasked.
	ErrMissingMaskParent = errors.New("compose: missing mask parent")

	// ErrGPUContextLost is returned by RenderFrame after LoseContext until
	// Recover succeeds.
	ErrGPUContextLost = errors.New("compose: GPU context lost")

	// ErrInvalidNode is wrapped by every node validation error.
	ErrInvalidNode = errors.New("compose: invalid node")

	// ErrStaleBackdrop is returned when a backdrop capture from another
	// frame reaches the blend stage.
	ErrStaleBackdrop = filter.ErrStaleBackdrop

	// ErrResolutionMismatch is returned when an output size differs from
	// the surface and no resampler was supplied.
	ErrResolutionMismatch = errors.New("compose: resolution mismatch")

	// ErrInvalidViewport is returned for viewports with a non-positive size
	// or scale.
	ErrInvalidViewport = errors.New("compose: invalid viewport")

	// ErrUnsupportedFormat is returned for surface formats the software
	// device cannot store.
	ErrUnsupportedFormat = errors.New("compose: unsupported surface format")

	// ErrUnsupportedTarget is returned by Present for targets without CPU
	// pixel access.
	ErrUnsupportedTarget = errors.New("compose: render target has no CPU pixels")

	// ErrClosed is returned by operations on a closed compositor.
	ErrClosed = errors.New("compose: compositor closed")
)

// NodeError reports a failure tied to one node.
type NodeError struct {
	ID  NodeID
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("node <no id>: %v", e.Err)
	}
	return fmt.Sprintf("node %q: %v", e.ID, e.Err)
}

// Unwrap returns the underlying error.
func (e *NodeError) Unwrap() error {
	return e.Err
}
