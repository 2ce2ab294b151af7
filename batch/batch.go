// Package batch splits remote work into fixed-size chunks and runs the
// chunk calls of one stage concurrently.
//
// Every remote call of the metadata API accepts at most Size names. A
// stage chunks its input, issues one call per chunk, waits for all of
// them and flattens the results back into input order. The first failing
// chunk cancels the others and fails the whole stage.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Size is the maximum number of names the metadata API accepts per call.
const Size = 10

// Chunk splits items into consecutive chunks of at most size elements.
// The last chunk may be shorter. An empty input yields no chunks.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = Size
	}
	if len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// Flatten concatenates chunks in order.
func Flatten[T any](chunks [][]T) []T {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]T, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Progress is called once per settled chunk.
type Progress func(done, total int)

// Tracker hands out a Progress callback for a named stage.
type Tracker interface {
	Track(stage string, chunks int) Progress
}

// Options controls chunking and concurrency of a stage.
type Options struct {
	// Size overrides the chunk size (default Size).
	Size int
	// Concurrency bounds in-flight chunk calls (0 = all at once).
	Concurrency int
	// Tracker receives per-chunk progress. May be nil.
	Tracker Tracker
}

func (o Options) size() int {
	if o.Size <= 0 {
		return Size
	}
	return o.Size
}

// FanOut calls fn for every chunk concurrently and returns the results in
// chunk order. The first error cancels the context passed to the remaining
// calls and is returned; no partial results are returned on failure.
func FanOut[In, Out any](ctx context.Context, chunks [][]In, limit int, progress Progress, fn func(context.Context, []In) ([]Out, error)) ([][]Out, error) {
	results := make([][]Out, len(chunks))
	if len(chunks) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	settled := make(chan struct{}, len(chunks))
	done := make(chan struct{})
	go func() {
		defer close(done)
		n := 0
		for range settled {
			n++
			if progress != nil {
				progress(n, len(chunks))
			}
		}
	}()

	for i, chunk := range chunks {
		g.Go(func() error {
			defer func() { settled <- struct{}{} }()
			out, err := fn(gctx, chunk)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	err := g.Wait()
	close(settled)
	<-done
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Do chunks items, fans the chunks out and flattens the results. stage
// names the work for the options' Tracker.
func Do[In, Out any](ctx context.Context, stage string, items []In, opts Options, fn func(context.Context, []In) ([]Out, error)) ([]Out, error) {
	chunks := Chunk(items, opts.size())
	var progress Progress
	if opts.Tracker != nil {
		progress = opts.Tracker.Track(stage, len(chunks))
	}
	results, err := FanOut(ctx, chunks, opts.Concurrency, progress, fn)
	if err != nil {
		return nil, err
	}
	return Flatten(results), nil
}
