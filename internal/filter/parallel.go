package filter

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minBandRows is the smallest band worth handing to another goroutine.
const minBandRows = 16

// forEachBand splits [0, height) into contiguous row bands and calls fn for
// each band, at most workers at a time. If workers is 0 or negative,
// GOMAXPROCS is used. It returns after every band has finished.
func forEachBand(ctx context.Context, height, workers int, fn func(y0, y1 int)) error {
	if height <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers == 1 || height < 2*minBandRows {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn(0, height)
		return nil
	}

	band := max(minBandRows, (height+workers-1)/workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += band {
		y1 := min(y0+band, height)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(y0, y1)
			return nil
		})
	}
	return g.Wait()
}
