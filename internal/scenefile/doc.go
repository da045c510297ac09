// Package scenefile loads scene documents for the gradecomp tool.
//
// A scene document holds a viewport and a list of nodes in YAML or TOML:
//
//	viewport:
//	  width: 640
//	  height: 360
//	nodes:
//	  - id: bg
//	    kind: image
//	    source: plate.jpg
//	    bounds: [0, 0, 640, 360]
//	  - id: look
//	    kind: adjustment
//	    z_order: 1
//	    bounds: [0, 0, 640, 360]
//	    grading: {saturation: 0.6, vignette: 0.4}
//
// Nodes use the keys of compose.DecodeNode. Sources are file paths relative
// to the document, or generated images: "color:#rrggbb[aa]" for a solid
// color and "gradient:#rrggbb,#rrggbb" for a horizontal gradient blended in
// CIE L*a*b*.
//
// Successive versions of a document are turned into compose change batches
// with Diff, which is how the watch mode feeds a running compositor.
package scenefile
