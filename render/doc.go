// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render defines the output targets a compositor presents into.
//
// # Key Principle
//
// The compositor RECEIVES its destination from the host application, it
// does NOT own windows or swapchains. A host hands a RenderTarget to
// Compositor.Present each frame.
//
// # RenderTarget Implementations
//
//   - PixmapTarget: CPU-backed 8-bit target (RGBA8Unorm or BGRA8Unorm)
//   - SurfaceTarget: window surface view from the host (GPU-only)
//
// # Usage
//
//	target := render.NewPixmapTarget(1280, 720)
//	if err := compositor.Present(target); err != nil {
//	    return err
//	}
//	png.Encode(w, target.Image())
//
// # Thread Safety
//
// Targets are NOT thread-safe. A target should be written by the render
// goroutine only, or external synchronization must be used.
package render
