package workers

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultBatchSize = 10

// RunBatches applies fn to items batchSize at a time. Every call in a batch is
// started before any is awaited; batches run in order with delay between
// them but not after the last. Items for which fn reports false are dropped,
// and input order is kept for the rest. A cancelled ctx stops before the
// next batch.
func RunBatches[T, R any](ctx context.Context, clock clockwork.Clock, items []T, batchSize int, delay time.Duration, fn func(context.Context, T) (R, bool)) []R {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	out := make([]R, 0, len(items))
	for start := 0; start < len(items); start += batchSize {
		if start > 0 && delay > 0 {
			select {
			case <-clock.After(delay):
			case <-ctx.Done():
				return out
			}
		}

		end := min(start+batchSize, len(items))
		batch := items[start:end]
		results := make([]R, len(batch))
		oks := make([]bool, len(batch))

		var wg sync.WaitGroup
		for i, item := range batch {
			wg.Add(1)
			go func(i int, item T) {
				defer wg.Done()
				results[i], oks[i] = fn(ctx, item)
			}(i, item)
		}
		wg.Wait()

		for i := range batch {
			if oks[i] {
				out = append(out, results[i])
			}
		}
	}
	return out
}
