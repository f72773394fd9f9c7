package imaging

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FilterValid probes the candidate URLs on a bounded worker pool and returns
// the accepted ones in their original page order. Order matters downstream:
// detail images are stitched top to bottom as the page showed them.
func (v *Validator) FilterValid(ctx context.Context, urls []string, workers int) []string {
	if workers < 1 {
		workers = 1
	}

	verdicts := make([]bool, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			verdicts[i] = v.Validate(gctx, url)
			return nil
		})
	}
	// Workers never return errors; Wait is only a join point.
	_ = g.Wait()

	var out []string
	for i, url := range urls {
		if verdicts[i] {
			out = append(out, url)
		}
	}
	return out
}
