package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/gplan/internal/query"
)

// BatchItem is the outcome of one request of a batch. Exactly one of
// Result and Err is set.
type BatchItem struct {
	Result *Result
	Err    error
}

// CompileBatch compiles docs concurrently, at most Config.Parallelism at a
// time. Compile errors are reported per item and do not stop the batch;
// the returned error is only set when ctx is cancelled. Items are in the
// order of docs.
func (c *Compiler) CompileBatch(ctx context.Context, docs []*query.Document) ([]BatchItem, error) {
	items := make([]BatchItem, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.Parallelism > 0 {
		g.SetLimit(c.cfg.Parallelism)
	}
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := c.Compile(gctx, doc)
			items[i] = BatchItem{Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}
