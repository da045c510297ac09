package scenefile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/gogpu/compose"
)

const yamlDoc = `
viewport:
  x: 10
  width: 64
  height: 32
nodes:
  - id: bg
    kind: image
    source: plate.png
    symbol_id: plate
    bounds: [0, 0, 64, 32]
  - id: look
    kind: adjustment
    z_order: 2
    bounds: {min_x: 0, min_y: 0, max_x: 64, max_y: 32}
    blend_mode: soft-light
    opacity: 0.5
    grading:
      saturation: 0.2
      vignette: 0.4
`

const tomlDoc = `
[viewport]
x = 10
width = 64
height = 32

[[nodes]]
id = "bg"
kind = "image"
source = "plate.png"
symbol_id = "plate"
bounds = [0, 0, 64, 32]

[[nodes]]
id = "look"
kind = "adjustment"
z_order = 2
bounds = { min_x = 0, min_y = 0, max_x = 64, max_y = 32 }
blend_mode = "soft-light"
opacity = 0.5

[nodes.grading]
saturation = 0.2
vignette = 0.4
`

func TestParseFormats(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", yamlDoc, FormatYAML},
		{"toml", tomlDoc, FormatTOML},
	}

	wantGrading := compose.DefaultGrading()
	wantGrading.Saturation = 0.2
	wantGrading.Vignette = 0.4

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.data), tt.format, "/scenes")
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if want := (compose.Viewport{X: 10, Scale: 1, Width: 64, Height: 32}); sc.Viewport != want {
				t.Errorf("Viewport = %+v, want %+v", sc.Viewport, want)
			}
			if sc.Dir != "/scenes" {
				t.Errorf("Dir = %q, want /scenes", sc.Dir)
			}
			if len(sc.Nodes) != 2 {
				t.Fatalf("len(Nodes) = %d, want 2", len(sc.Nodes))
			}

			bg := sc.Nodes[0]
			if bg.ID != "bg" || bg.Kind != compose.KindImage || bg.SymbolID != "plate" || bg.Opacity != 1 {
				t.Errorf("bg = %+v", bg)
			}
			if bg.Bounds != compose.NewRect(0, 0, 64, 32) {
				t.Errorf("bg bounds = %+v", bg.Bounds)
			}

			look := sc.Nodes[1]
			if look.ZOrder != 2 || look.BlendMode != compose.BlendSoftLight || look.Opacity != 0.5 {
				t.Errorf("look = %+v", look)
			}
			if look.Grading == nil || *look.Grading != wantGrading {
				t.Errorf("look grading = %+v, want %+v", look.Grading, wantGrading)
			}
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml syntax", "viewport: [", FormatYAML},
		{"yaml unknown key", "viewport: {width: 4, height: 4}\ncamera: 1\n", FormatYAML},
		{"toml syntax", "[viewport\n", FormatTOML},
		{"toml unknown key", "[viewport]\nwidth = 4\nheight = 4\ndepth = 2\n", FormatTOML},
		{"missing viewport", "nodes: []\n", FormatYAML},
		{"empty document", "", FormatYAML},
		{"unknown format", "", Format(9)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.data), tt.format, "")
			if err == nil {
				t.Fatal("Parse() error = nil")
			}
			if sc != nil {
				t.Errorf("Parse() scene = %+v, want nil", sc)
			}
		})
	}
}

func TestParseKeepsInvalidNodes(t *testing.T) {
	doc := `
viewport: {width: 8, height: 8}
nodes:
  - {id: a, kind: image, source: a.png, bounds: [0, 0, 8, 8]}
  - {id: bad, kind: image, bounds: [0, 0, 8, 8], opacity: 4}
  - {kind: image, source: anon.png, bounds: [0, 0, 8, 8]}
  - {id: a, kind: group, bounds: [0, 0, 1, 1]}
`
	sc, err := Parse([]byte(doc), FormatYAML, "")
	if sc == nil {
		t.Fatalf("Parse() scene = nil, error = %v", err)
	}
	if !errors.Is(err, compose.ErrInvalidNode) {
		t.Errorf("error = %v, want ErrInvalidNode", err)
	}
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("error = %v, want ErrDuplicateID", err)
	}
	if len(sc.Nodes) != 2 || sc.Nodes[0].ID != "a" || sc.Nodes[1].ID != "bad" {
		t.Errorf("Nodes = %+v, want a and bad", sc.Nodes)
	}
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"scene.yaml", FormatYAML, true},
		{"scene.YML", FormatYAML, true},
		{"dir/scene.toml", FormatTOML, true},
		{"scene.json", 0, false},
	}
	for _, tt := range tests {
		got, err := FormatOf(tt.path)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("FormatOf(%q) = %v, %v, want %v", tt.path, got, err, tt.want)
		}
		if !tt.ok && !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("FormatOf(%q) error = %v, want ErrUnknownFormat", tt.path, err)
		}
	}
	if FormatTOML.String() != "toml" || Format(7).String() != "Format(7)" {
		t.Error("Format.String()")
	}
}

func TestLoadAndFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.toml")
	if err := os.WriteFile(path, []byte(tomlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	sc, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sc.Dir != dir {
		t.Errorf("Dir = %q, want %q", sc.Dir, dir)
	}

	nodes, err := FileStore{Path: path}.Nodes(context.Background())
	if err != nil {
		t.Fatalf("Nodes() error = %v", err)
	}
	if len(nodes) != 2 {
		t.Errorf("len(Nodes()) = %d, want 2", len(nodes))
	}

	if _, err := (FileStore{Path: filepath.Join(dir, "gone.yaml")}).Nodes(context.Background()); err == nil {
		t.Error("Nodes() of a missing document succeeded")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (FileStore{Path: path}).Nodes(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Nodes(canceled) error = %v, want context.Canceled", err)
	}
}

func TestDiff(t *testing.T) {
	node := func(id compose.NodeID, z int64) compose.SceneNode {
		return compose.SceneNode{ID: id, ZOrder: z, Kind: compose.KindGroup, Bounds: compose.NewRect(0, 0, 1, 1), Opacity: 1}
	}
	graded := func(id compose.NodeID, sat float64) compose.SceneNode {
		n := node(id, 0)
		g := compose.DefaultGrading()
		g.Saturation = sat
		n.Grading = &g
		return n
	}

	prev := &Scene{Nodes: []compose.SceneNode{node("keep", 0), node("move", 1), node("drop", 2), graded("look", 0.5)}}
	next := &Scene{Nodes: []compose.SceneNode{node("keep", 0), node("move", 5), node("new", 3), graded("look", 0.5)}}

	b := Diff(prev, next)
	if len(b.Added) != 1 || b.Added[0].ID != "new" {
		t.Errorf("Added = %+v, want new", b.Added)
	}
	if len(b.Updated) != 1 || b.Updated[0].ID != "move" {
		t.Errorf("Updated = %+v, want move", b.Updated)
	}
	if len(b.Removed) != 1 || b.Removed[0] != "drop" {
		t.Errorf("Removed = %v, want [drop]", b.Removed)
	}

	next.Nodes[3] = graded("look", 0.1)
	if b := Diff(prev, next); len(b.Updated) != 2 {
		t.Errorf("Updated after grading change = %+v, want move and look", b.Updated)
	}

	if b := Diff(nil, prev); len(b.Added) != 4 || len(b.Removed) != 0 {
		t.Errorf("Diff(nil, prev) = %+v, want four additions", b)
	}
	if b := Diff(prev, prev); !b.Empty() {
		t.Errorf("Diff(prev, prev) = %+v, want empty", b)
	}
}
