// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package display shows compositor frames in a host window.
//
// A Display owns a CPU staging target and one host texture. Each frame it
// asks a Presenter (typically *compose.Compositor) to write the surface
// into the staging target, uploads the pixels and draws the texture
// through a gpucontext.TextureDrawer.
//
// # Usage
//
//	disp, err := display.New(1280, 720)
//	if err != nil {
//	    return err
//	}
//	defer disp.Close()
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    if err := comp.RenderFrame(ctx); err != nil {
//	        return
//	    }
//	    _ = disp.RenderTo(dc.AsTextureDrawer(), comp)
//	})
//
// The uploaded pixels are premultiplied RGBA8. Textures that expose
// SetPremultiplied(bool) are flagged accordingly.
//
// # Thread Safety
//
// Display is NOT safe for concurrent use. Use it from the render goroutine.
package display
