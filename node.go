package compose

import (
	"fmt"
	"math"

	"github.com/gogpu/compose/internal/filter"
)

// NodeID identifies a scene node. It is assigned by the scene store and
// stays stable for the node's lifetime.
type NodeID string

// Kind is the kind of a scene node.
type Kind string

// Node kinds.
const (
	// KindImage draws a decoded source texture.
	KindImage Kind = "image"
	// KindAdjustment grades everything drawn below it inside its bounds.
	KindAdjustment Kind = "adjustment"
	// KindGroup is a mask container. A group with a source also draws it.
	KindGroup Kind = "group"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindImage, KindAdjustment, KindGroup:
		return true
	}
	return false
}

// BlendMode selects how a node combines with what is below it.
type BlendMode string

// Blend modes. The empty string is treated as BlendNormal.
const (
	BlendNormal     BlendMode = "normal"
	BlendOverlay    BlendMode = "overlay"
	BlendSoftLight  BlendMode = "soft-light"
	BlendHardLight  BlendMode = "hard-light"
	BlendVividLight BlendMode = "vivid-light"
	BlendDifference BlendMode = "difference"
)

// filterMode maps the mode onto the blend stage selector.
func (m BlendMode) filterMode() (filter.BlendMode, bool) {
	switch m {
	case BlendNormal, "":
		return filter.BlendNormal, true
	case BlendOverlay:
		return filter.BlendOverlay, true
	case BlendSoftLight:
		return filter.BlendSoftLight, true
	case BlendHardLight:
		return filter.BlendHardLight, true
	case BlendVividLight:
		return filter.BlendVividLight, true
	case BlendDifference:
		return filter.BlendDifference, true
	}
	return filter.BlendNormal, false
}

// IsNormal reports whether m draws without the blend stage.
func (m BlendMode) IsNormal() bool {
	return m == BlendNormal || m == ""
}

// Rect is an axis-aligned rectangle in scene space.
// Min is inclusive and Max exclusive.
type Rect struct {
	MinX float64 `mapstructure:"min_x" yaml:"min_x" toml:"min_x"`
	MinY float64 `mapstructure:"min_y" yaml:"min_y" toml:"min_y"`
	MaxX float64 `mapstructure:"max_x" yaml:"max_x" toml:"max_x"`
	MaxY float64 `mapstructure:"max_y" yaml:"max_y" toml:"max_y"`
}

// NewRect creates a rectangle from an origin and a size.
func NewRect(x, y, w, h float64) Rect {
	return Rect{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width returns the width of the rectangle.
func (r Rect) Width() float64 { return r.MaxX - r.MinX }

// Height returns the height of the rectangle.
func (r Rect) Height() float64 { return r.MaxY - r.MinY }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return !(r.MaxX > r.MinX && r.MaxY > r.MinY) }

// Intersects reports whether r and o share any area.
func (r Rect) Intersects(o Rect) bool {
	return r.MinX < o.MaxX && o.MinX < r.MaxX && r.MinY < o.MaxY && o.MinY < r.MaxY
}

// Intersect returns the intersection of r and o, which may be empty.
func (r Rect) Intersect(o Rect) Rect {
	return Rect{
		MinX: math.Max(r.MinX, o.MinX),
		MinY: math.Max(r.MinY, o.MinY),
		MaxX: math.Min(r.MaxX, o.MaxX),
		MaxY: math.Min(r.MaxY, o.MaxY),
	}
}

// finite reports whether all coordinates are finite.
func (r Rect) finite() bool {
	return isFinite(r.MinX) && isFinite(r.MinY) && isFinite(r.MaxX) && isFinite(r.MaxY)
}

// GradingParams are the per-node grading controls. All fields are always
// present; DefaultGrading returns the neutral values.
type GradingParams struct {
	Exposure            float64 `mapstructure:"exposure" yaml:"exposure" toml:"exposure"`
	Contrast            float64 `mapstructure:"contrast" yaml:"contrast" toml:"contrast"`
	Saturation          float64 `mapstructure:"saturation" yaml:"saturation" toml:"saturation"`
	Temperature         float64 `mapstructure:"temperature" yaml:"temperature" toml:"temperature"`
	ChromaticAberration float64 `mapstructure:"chromatic_aberration" yaml:"chromatic_aberration" toml:"chromatic_aberration"`
	Grain               float64 `mapstructure:"grain" yaml:"grain" toml:"grain"`
	GrainSize           float64 `mapstructure:"grain_size" yaml:"grain_size" toml:"grain_size"`
	Vignette            float64 `mapstructure:"vignette" yaml:"vignette" toml:"vignette"`
	Bloom               float64 `mapstructure:"bloom" yaml:"bloom" toml:"bloom"`
	Sharpness           float64 `mapstructure:"sharpness" yaml:"sharpness" toml:"sharpness"`

	// CenterX and CenterY place the chromatic aberration and vignette
	// center in normalized node coordinates.
	CenterX float64 `mapstructure:"center_x" yaml:"center_x" toml:"center_x"`
	CenterY float64 `mapstructure:"center_y" yaml:"center_y" toml:"center_y"`

	// VignetteInner and VignetteOuter are the normalized radii where the
	// vignette starts and reaches full strength.
	VignetteInner float64 `mapstructure:"vignette_inner" yaml:"vignette_inner" toml:"vignette_inner"`
	VignetteOuter float64 `mapstructure:"vignette_outer" yaml:"vignette_outer" toml:"vignette_outer"`
}

// DefaultGrading returns neutral grading parameters.
func DefaultGrading() GradingParams {
	n := filter.NeutralGrading()
	return GradingParams{
		Contrast:      float64(n.Contrast),
		Saturation:    float64(n.Saturation),
		GrainSize:     float64(n.GrainSize),
		CenterX:       float64(n.CenterX),
		CenterY:       float64(n.CenterY),
		VignetteInner: float64(n.VignetteInner),
		VignetteOuter: float64(n.VignetteOuter),
	}
}

// uniforms converts the parameters into the grading uniform block.
// Region, input mapping and time are filled in at draw time.
func (g GradingParams) uniforms() filter.GradingUniforms {
	u := filter.NeutralGrading()
	u.Exposure = float32(g.Exposure)
	u.Contrast = float32(g.Contrast)
	u.Saturation = float32(g.Saturation)
	u.Temperature = float32(g.Temperature)
	u.ChromaticAberration = float32(g.ChromaticAberration)
	u.Grain = float32(g.Grain)
	u.GrainSize = float32(g.GrainSize)
	u.Vignette = float32(g.Vignette)
	u.Bloom = float32(g.Bloom)
	u.Sharpness = float32(g.Sharpness)
	u.CenterX = float32(g.CenterX)
	u.CenterY = float32(g.CenterY)
	u.VignetteInner = float32(g.VignetteInner)
	u.VignetteOuter = float32(g.VignetteOuter)
	return u
}

// validate checks that every parameter is usable by the grading stage.
func (g GradingParams) validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"exposure", g.Exposure},
		{"contrast", g.Contrast},
		{"saturation", g.Saturation},
		{"temperature", g.Temperature},
		{"chromatic_aberration", g.ChromaticAberration},
		{"grain", g.Grain},
		{"grain_size", g.GrainSize},
		{"vignette", g.Vignette},
		{"bloom", g.Bloom},
		{"sharpness", g.Sharpness},
		{"center_x", g.CenterX},
		{"center_y", g.CenterY},
		{"vignette_inner", g.VignetteInner},
		{"vignette_outer", g.VignetteOuter},
	}
	for _, f := range fields {
		if !isFinite(f.v) {
			return fmt.Errorf("grading %s is not finite", f.name)
		}
	}
	if g.GrainSize <= 0 {
		return fmt.Errorf("grading grain_size %v must be positive", g.GrainSize)
	}
	if g.VignetteOuter < g.VignetteInner {
		return fmt.Errorf("grading vignette_outer %v is below vignette_inner %v", g.VignetteOuter, g.VignetteInner)
	}
	return nil
}

// DefaultOpacity is the opacity DecodeNode assigns when none is given.
const DefaultOpacity = 1.0

// SceneNode is one node as owned by the scene store.
type SceneNode struct {
	ID     NodeID `mapstructure:"id" yaml:"id" toml:"id"`
	ZOrder int64  `mapstructure:"z_order" yaml:"z_order" toml:"z_order"`
	Bounds Rect   `mapstructure:"bounds" yaml:"bounds" toml:"bounds"`
	Kind   Kind   `mapstructure:"kind" yaml:"kind" toml:"kind"`

	// SymbolID groups nodes that display the same source. Nodes with the
	// same SymbolID share one texture.
	SymbolID string `mapstructure:"symbol_id" yaml:"symbol_id" toml:"symbol_id"`

	// Source is the reference handed to the resolver. Required for images.
	Source string `mapstructure:"source" yaml:"source" toml:"source"`

	BlendMode BlendMode `mapstructure:"blend_mode" yaml:"blend_mode" toml:"blend_mode"`

	// Opacity in [0, 1]. Go callers must set it explicitly; DecodeNode
	// defaults a missing value to DefaultOpacity.
	Opacity float64 `mapstructure:"opacity" yaml:"opacity" toml:"opacity"`

	// ClippingParentID names the node whose alpha masks this node.
	ClippingParentID NodeID `mapstructure:"clipping_parent_id" yaml:"clipping_parent_id" toml:"clipping_parent_id"`

	// Grading is nil when the node has no grading stage. Adjustment nodes
	// always grade; nil means DefaultGrading for them.
	Grading *GradingParams `mapstructure:"grading" yaml:"grading" toml:"grading"`
}

// Validate reports the first problem that makes the node unrenderable.
// The returned error wraps ErrInvalidNode.
func (n *SceneNode) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidNode)
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNode, n.Kind)
	}
	if !n.Bounds.finite() || n.Bounds.Empty() {
		return fmt.Errorf("%w: bounds %+v must be finite with positive size", ErrInvalidNode, n.Bounds)
	}
	if _, ok := n.BlendMode.filterMode(); !ok {
		return fmt.Errorf("%w: unknown blend mode %q", ErrInvalidNode, n.BlendMode)
	}
	if !(n.Opacity >= 0 && n.Opacity <= 1) {
		return fmt.Errorf("%w: opacity %v outside [0, 1]", ErrInvalidNode, n.Opacity)
	}
	if n.ClippingParentID == n.ID {
		return fmt.Errorf("%w: node clips itself", ErrInvalidNode)
	}
	if n.Kind == KindImage && n.Source == "" {
		return fmt.Errorf("%w: image without source", ErrInvalidNode)
	}
	if n.Grading != nil {
		if err := n.Grading.validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidNode, err)
		}
	}
	return nil
}

// grading returns the grading parameters in effect and whether the node
// has a grading stage at all.
func (n *SceneNode) grading() (GradingParams, bool) {
	if n.Grading != nil {
		return *n.Grading, true
	}
	if n.Kind == KindAdjustment {
		return DefaultGrading(), true
	}
	return GradingParams{}, false
}

// Batch is one change set from the scene store.
type Batch struct {
	Added   []SceneNode
	Updated []SceneNode
	Removed []NodeID
}

// Empty reports whether the batch carries no changes.
func (b Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.Updated) == 0 && len(b.Removed) == 0
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
