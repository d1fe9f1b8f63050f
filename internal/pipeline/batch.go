package pipeline

import (
	"context"
	"fmt"
	"sync"
)

type job struct {
	doc   Document
	index int
}

// ProcessBatch processes docs on a fixed pool of workers. Results are returned in input
// order. Once ctx is done no further documents are dispatched, and those left over are
// reported with ErrCanceled.
func (p *Processor) ProcessBatch(ctx context.Context, docs []Document, workers int) []*Result {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	jobs := make(chan job)
	results := make([]*Result, len(docs))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for j := range jobs {
				p.log.Debug().
					Int("worker", workerID).
					Str("document", j.doc.Name).
					Int("index", j.index+1).
					Msg("Worker processing document")

				result, _ := p.Process(ctx, j.doc)
				if result == nil {
					result = canceledResult(j.doc, ctx.Err())
				}
				result.Index = j.index
				results[j.index] = result

				mu.Lock()
				processedCount++
				if p.progress != nil {
					p.progress(processedCount, len(docs), result)
				}
				mu.Unlock()
			}
		}(w)
	}

dispatch:
	for i, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- job{doc: doc, index: i}:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	for i, r := range results {
		if r == nil {
			r = canceledResult(docs[i], ctx.Err())
			r.Index = i
			results[i] = r
		}
	}

	done, failed := 0, 0
	for _, r := range results {
		if r.Status == StatusError {
			failed++
		} else {
			done++
		}
	}
	p.log.Info().
		Int("total", len(docs)).
		Int("workers", workers).
		Int("ok", done).
		Int("errors", failed).
		Msg("Batch processed")

	return results
}

func canceledResult(doc Document, cause error) *Result {
	err := ErrCanceled
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrCanceled, cause)
	}
	return &Result{
		Document: doc.Name,
		City:     doc.City,
		Status:   StatusError,
		Error:    WrapProcessingError("ProcessBatch", doc.Name, err),
	}
}
