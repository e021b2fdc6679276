package testutil

import (
	"errors"
	"sync"

	dErrors "credreg/pkg/domain-errors"
	"credreg/pkg/platform/sentinel"
)

// ConcurrentResult tallies outcomes of concurrent test operations.
type ConcurrentResult struct {
	mu        sync.Mutex
	Successes int
	Conflicts int
	NotFounds int
	Errors    []error
	// Values holds what each successful call returned, in completion order.
	Values []uint64
}

func (r *ConcurrentResult) Total() int {
	return r.Successes + r.Conflicts + r.NotFounds + len(r.Errors)
}

func (r *ConcurrentResult) record(v uint64, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case err == nil:
		r.Successes++
		r.Values = append(r.Values, v)
	case errors.Is(err, sentinel.ErrConflict) || dErrors.HasCode(err, dErrors.CodeConflict):
		r.Conflicts++
	case errors.Is(err, sentinel.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound):
		r.NotFounds++
	default:
		r.Errors = append(r.Errors, err)
	}
}

// RunConcurrent starts n goroutines running fn and waits for all of them.
// Errors are classified by sentinel or domain code.
func RunConcurrent(n int, fn func(idx int) (uint64, error)) *ConcurrentResult {
	res := &ConcurrentResult{}
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range n {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			<-start
			v, err := fn(idx)
			res.record(v, err)
		}(i)
	}
	close(start)
	wg.Wait()
	return res
}
