// Package filter implements the per-node shading stages on the software
// device.
//
// Two stages exist:
//   - Grading: the single-input color pipeline (chromatic aberration,
//     sharpening, exposure, contrast, saturation, white balance, bloom,
//     vignette, animated grain)
//   - Blend: the two-input stage that mixes a node over a captured backdrop
//     with a separable blend mode
//
// Both evaluate exactly the math of the WGSL programs in internal/gpu, on
// straight-alpha float buffers. Rows are shaded in parallel bands; a stage
// returns only after every band has finished.
package filter
