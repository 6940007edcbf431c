package rangehttp

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchRequest is one resource's worth of work for FetchMany: its own
// IOChainContext and the ranges to read from it.
type BatchRequest struct {
	IOContext *IOChainContext
	Ranges    []RangeRequest
}

// BatchResult is paired 1:1 by index with the BatchRequest that produced it.
type BatchResult struct {
	Results []RangeResult
	Total   uint64
	Outcome MultirangeOutcome
	Err     error
}

// FetchMany runs PreadVec concurrently across independent resources, each
// call still single-threaded internally per the core's invariant. It's the
// concurrent counterpart to issuing N separate PreadVec calls in a loop: use
// it when fetching from several distinct URIs in one logical operation (e.g.
// resolving a manifest's several layers at once), not for parallelizing the
// ranges within a single resource.
//
// A per-resource error is recorded in that resource's BatchResult.Err rather
// than aborting the others; one resource failing does not cancel the rest.
func (o *Orchestrator) FetchMany(ctx context.Context, requests []BatchRequest) ([]BatchResult, error) {
	results := make([]BatchResult, len(requests))
	g, gctx := errgroup.WithContext(ctx)

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			outputs, total, outcome, err := o.PreadVec(gctx, req.IOContext, req.Ranges)
			results[i] = BatchResult{Results: outputs, Total: total, Outcome: outcome, Err: err}
			return nil
		})
	}

	_ = g.Wait() // never non-nil: each goroutine reports its error in-band
	return results, nil
}
