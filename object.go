package compose

import (
	"fmt"

	"github.com/gogpu/compose/internal/filter"
	"github.com/gogpu/compose/internal/image"
	"github.com/gogpu/compose/internal/texture"
)

// ObjectState is the lifecycle state of a RenderObject.
type ObjectState uint8

// Object states.
const (
	// StatePending objects are waiting for a texture or hold an invalid node.
	StatePending ObjectState = iota
	// StateRenderable objects are drawn this frame.
	StateRenderable
	// StateCulled objects are ready but outside the viewport.
	StateCulled
	// StateDestroyed objects have been removed and hold no resources.
	StateDestroyed
)

// String returns the state name.
func (s ObjectState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRenderable:
		return "renderable"
	case StateCulled:
		return "culled"
	case StateDestroyed:
		return "destroyed"
	default:
		return fmt.Sprintf("ObjectState(%d)", uint8(s))
	}
}

// FilterKind names one stage of an object's filter stack.
type FilterKind uint8

// Filter stages, in the order they run.
const (
	FilterGrading FilterKind = iota
	FilterBlend
)

// String returns the stage name.
func (k FilterKind) String() string {
	switch k {
	case FilterGrading:
		return "grading"
	case FilterBlend:
		return "blend"
	default:
		return fmt.Sprintf("FilterKind(%d)", uint8(k))
	}
}

// textureBinding identifies where an object's texture comes from.
type textureBinding struct {
	symbolID string
	source   string
}

// shared reports whether the binding goes through the shared cache.
func (b textureBinding) shared() bool { return b.symbolID != "" }

// none reports whether the binding has no texture at all.
func (b textureBinding) none() bool { return b.source == "" && b.symbolID == "" }

// AdjustmentBuffer is the private render-to-texture target of an
// adjustment node. It is sized to the visible part of the node.
type AdjustmentBuffer struct {
	capture *image.Buf
	output  *image.Buf
	frame   uint64
}

// Output returns the graded result of the last frame the node was drawn in.
func (a *AdjustmentBuffer) Output() *image.Buf { return a.output }

// Frame returns the frame number the output was produced in.
func (a *AdjustmentBuffer) Frame() uint64 { return a.frame }

// ensure resizes the buffer pair, returning old buffers to pool.
func (a *AdjustmentBuffer) ensure(pool *image.Pool, w, h int) error {
	if a.capture != nil && a.capture.Width() == w && a.capture.Height() == h {
		return nil
	}
	a.free(pool)
	capture, err := pool.Get(w, h)
	if err != nil {
		return err
	}
	output, err := pool.Get(w, h)
	if err != nil {
		pool.Put(capture)
		return err
	}
	a.capture, a.output = capture, output
	return nil
}

// free returns both buffers to pool.
func (a *AdjustmentBuffer) free(pool *image.Pool) {
	pool.Put(a.capture)
	pool.Put(a.output)
	a.capture, a.output = nil, nil
}

// RenderObject is the compositor's per-node state. It is owned by the
// Registry and lives from the node's addition until its removal.
type RenderObject struct {
	node    SceneNode
	invalid error

	state     ObjectState
	transform Transform
	filters   []FilterKind

	binding   textureBinding
	future    *texture.Future
	tex       *texture.Texture
	decodeErr error

	adjustment *AdjustmentBuffer
	uniforms   filter.GradingUniforms
	graded     bool

	maskReported bool
}

// ID returns the node id.
func (o *RenderObject) ID() NodeID { return o.node.ID }

// Node returns the node values the object was last synced with.
func (o *RenderObject) Node() SceneNode { return o.node }

// State returns the lifecycle state.
func (o *RenderObject) State() ObjectState { return o.state }

// Renderable reports whether the object is drawn in the current frame.
func (o *RenderObject) Renderable() bool { return o.state == StateRenderable }

// Valid reports whether the last synced node passed validation.
func (o *RenderObject) Valid() bool { return o.invalid == nil }

// Err returns the validation or decode error that keeps the object from
// rendering, if any.
func (o *RenderObject) Err() error {
	if o.invalid != nil {
		return o.invalid
	}
	return o.decodeErr
}

// Texture returns the attached texture, or nil while none is ready.
func (o *RenderObject) Texture() *texture.Texture { return o.tex }

// Transform returns the placement computed in the last frame.
func (o *RenderObject) Transform() Transform { return o.transform }

// Filters returns the object's filter stack.
func (o *RenderObject) Filters() []FilterKind { return o.filters }

// Adjustment returns the private buffer of an adjustment node, or nil.
func (o *RenderObject) Adjustment() *AdjustmentBuffer { return o.adjustment }

// textureReady reports whether everything the object draws is available.
func (o *RenderObject) textureReady() bool {
	return o.binding.none() || o.tex != nil
}

// drawable reports whether the object may be drawn if visible.
func (o *RenderObject) drawable() bool {
	return o.invalid == nil && o.textureReady()
}

// rebuildFilters derives the filter stack from the node.
func (o *RenderObject) rebuildFilters() {
	o.filters = o.filters[:0]
	if _, ok := o.node.grading(); ok {
		o.filters = append(o.filters, FilterGrading)
	}
	if !o.node.BlendMode.IsNormal() {
		o.filters = append(o.filters, FilterBlend)
	}
}

// desiredBinding returns the texture binding the node asks for.
// Adjustment nodes never draw a source.
func desiredBinding(n *SceneNode) textureBinding {
	if n.Source == "" || n.Kind == KindAdjustment {
		return textureBinding{}
	}
	return textureBinding{symbolID: n.SymbolID, source: n.Source}
}
