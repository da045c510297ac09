// Package compose turns a declarative set of visual nodes into one
// composited raster surface with per-node color grading and blend stages.
//
// # Overview
//
// An external scene store owns the nodes. It sends change batches to a
// [Compositor], which keeps one [RenderObject] per live node in its
// [Registry]. Every frame the compositor culls objects against the
// [Viewport], walks them in ascending z-order and draws each one onto a
// shared surface:
//
//   - Image nodes shade their texture through the grading stage and are
//     drawn source-over.
//   - Adjustment nodes capture the surface under their bounds, grade the
//     capture and write it back.
//   - Nodes with a non-normal blend mode run the two-input blend stage
//     against a backdrop captured in the same frame.
//
// Textures are decoded off the render thread. Nodes that share a
// SymbolID share one reference-counted texture, so a symbol is decoded once
// no matter how many instances exist.
//
// # Quick Start
//
//	c, err := compose.New(compose.Viewport{Scale: 1, Width: 1280, Height: 720},
//	    compose.WithResolver(compose.ResolverFunc(fetch)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	_ = c.Sync(compose.Batch{Added: nodes})
//	for running {
//	    if err := c.RenderFrame(ctx); err != nil {
//	        break // context lost; call Recover
//	    }
//	    _ = c.Present(target)
//	}
//
// # Execution
//
// Each stage exists as a WGSL program (see internal/gpu) and as a CPU
// evaluation of the same math on float32 buffers. The compositor renders
// with the CPU evaluation; when a HAL device is supplied with
// [WithHALDevice] the WGSL programs are compiled into pipelines on that
// device and rebuilt after context loss. Given a queue as well, every
// grading and blend stage of a frame is also recorded as a device pass and
// the frame is submitted once all nodes are drawn.
//
// # Thread Safety
//
// A Compositor belongs to a single render goroutine. Texture decodes run on
// their own goroutines and are polled, never awaited, by the frame.
package compose
