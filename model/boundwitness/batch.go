package boundwitness

import (
	"runtime"

	"github.com/gammazero/workerpool"
	"github.com/hashicorp/go-multierror"
)

// ValidateBatch validates records concurrently on a pool of workers. The result is index aligned
// with the input. A non-positive worker count uses one worker per CPU.
func ValidateBatch(bws []*BoundWitness, workers int) [][]error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results := make([][]error, len(bws))

	wp := workerpool.New(workers)
	for i, bw := range bws {
		i, bw := i, bw
		wp.Submit(func() {
			results[i] = Validate(bw)
		})
	}
	wp.StopWait()

	return results
}

// BatchError folds batch results into one error, or nil if every record is valid.
func BatchError(results [][]error) error {
	var merr *multierror.Error
	for _, errs := range results {
		merr = multierror.Append(merr, errs...)
	}
	return merr.ErrorOrNil()
}
