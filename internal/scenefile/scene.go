package scenefile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/compose"
)

// Format is the syntax of a scene document.
type Format int

// Supported formats.
const (
	FormatYAML Format = iota
	FormatTOML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatYAML:
		return "yaml"
	case FormatTOML:
		return "toml"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Errors returned while loading documents.
var (
	// ErrUnknownFormat is returned for file extensions other than
	// .yaml, .yml and .toml.
	ErrUnknownFormat = errors.New("scenefile: unknown document format")

	// ErrDuplicateID is returned when two nodes of one document share an id.
	ErrDuplicateID = errors.New("scenefile: duplicate node id")
)

// Scene is one loaded scene document.
type Scene struct {
	// Viewport is the document's viewport. Scale defaults to 1.
	Viewport compose.Viewport
	// Nodes holds every node that carries an id, valid or not, in
	// document order.
	Nodes []compose.SceneNode
	// Dir is the directory relative sources are resolved against.
	Dir string
}

type document struct {
	Viewport viewportDoc      `yaml:"viewport" toml:"viewport"`
	Nodes    []map[string]any `yaml:"nodes" toml:"nodes"`
}

type viewportDoc struct {
	X      float64 `yaml:"x" toml:"x"`
	Y      float64 `yaml:"y" toml:"y"`
	Scale  float64 `yaml:"scale" toml:"scale"`
	Width  int     `yaml:"width" toml:"width"`
	Height int     `yaml:"height" toml:"height"`
}

// FormatOf returns the format implied by path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, path)
}

// Load reads and parses the document at path. See Parse for the error
// contract.
func Load(path string) (*Scene, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("scenefile: %w", err)
	}
	return Parse(data, format, filepath.Dir(abs))
}

// Parse parses a document. dir becomes Scene.Dir.
//
// Syntax and viewport errors return a nil scene. Node errors do not: the
// scene is returned together with the joined *compose.NodeError values, and
// invalid nodes that carry an id stay in Scene.Nodes so a compositor can
// track them.
func Parse(data []byte, format Format, dir string) (*Scene, error) {
	var doc document
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("scenefile: parse yaml: %w", err)
		}
	case FormatTOML:
		md, err := toml.Decode(string(data), &doc)
		if err != nil {
			return nil, fmt.Errorf("scenefile: parse toml: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("scenefile: parse toml: unknown key %q", undecoded[0].String())
		}
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownFormat, format)
	}

	vp := compose.Viewport{
		X:      doc.Viewport.X,
		Y:      doc.Viewport.Y,
		Scale:  doc.Viewport.Scale,
		Width:  doc.Viewport.Width,
		Height: doc.Viewport.Height,
	}
	if vp.Scale == 0 {
		vp.Scale = 1
	}
	if err := vp.Validate(); err != nil {
		return nil, fmt.Errorf("scenefile: viewport %+v: %w", doc.Viewport, err)
	}

	sc := &Scene{Viewport: vp, Dir: dir}
	seen := make(map[compose.NodeID]bool, len(doc.Nodes))
	var errs []error
	for i, raw := range doc.Nodes {
		n, err := compose.DecodeNode(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("nodes[%d]: %w", i, err))
		}
		if n.ID == "" {
			continue
		}
		if seen[n.ID] {
			errs = append(errs, fmt.Errorf("nodes[%d]: %w: %q", i, ErrDuplicateID, n.ID))
			continue
		}
		seen[n.ID] = true
		sc.Nodes = append(sc.Nodes, n)
	}
	return sc, errors.Join(errs...)
}

// Diff returns the batch that turns prev into next. A nil prev yields a
// batch adding every node of next.
func Diff(prev, next *Scene) compose.Batch {
	var b compose.Batch
	old := make(map[compose.NodeID]*compose.SceneNode)
	if prev != nil {
		for i := range prev.Nodes {
			old[prev.Nodes[i].ID] = &prev.Nodes[i]
		}
	}
	current := make(map[compose.NodeID]bool)
	if next != nil {
		for _, n := range next.Nodes {
			current[n.ID] = true
			o, ok := old[n.ID]
			switch {
			case !ok:
				b.Added = append(b.Added, n)
			case !nodeEqual(o, &n):
				b.Updated = append(b.Updated, n)
			}
		}
	}
	if prev != nil {
		for _, n := range prev.Nodes {
			if !current[n.ID] {
				b.Removed = append(b.Removed, n.ID)
			}
		}
	}
	return b
}

// nodeEqual compares two nodes by value, including their grading.
func nodeEqual(a, b *compose.SceneNode) bool {
	ga, gb := a.Grading, b.Grading
	x, y := *a, *b
	x.Grading, y.Grading = nil, nil
	if x != y {
		return false
	}
	if ga == nil || gb == nil {
		return ga == gb
	}
	return *ga == *gb
}

// FileStore reloads the node set from a document on every call. It serves
// compositor recovery after a context loss.
type FileStore struct {
	Path string
}

// Nodes implements compose.Store. Invalid nodes are returned too; the
// compositor reports them again when it syncs.
func (s FileStore) Nodes(ctx context.Context) ([]compose.SceneNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sc, err := Load(s.Path)
	if sc == nil {
		return nil, err
	}
	return sc.Nodes, nil
}
