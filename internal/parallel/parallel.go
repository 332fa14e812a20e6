// Package parallel splits invocation ranges across goroutines.
package parallel

import (
	"fmt"
	"runtime"
	"sync"
)

// Config controls parallel execution behavior.
type Config struct {
	NumWorkers   int // Number of worker goroutines to use.
	MinChunkSize int // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	return Config{
		NumWorkers:   runtime.GOMAXPROCS(0),
		MinChunkSize: 256,
	}
}

// chunks returns the chunk size and count covering [0, n).
func (c Config) chunks(n int) (size, count int) {
	workers := max(c.NumWorkers, 1)
	size = max((n+workers-1)/workers, c.MinChunkSize, 1)
	return size, (n + size - 1) / size
}

// Range calls f(lo, hi) for contiguous chunks covering [0, n) and waits for
// all of them. Chunks never overlap. A panic in f is recovered and returned
// as an error; when several chunks fail the lowest one is reported.
func Range(n int, cfg Config, f func(lo, hi int)) error {
	if n <= 0 {
		return nil
	}
	size, count := cfg.chunks(n)
	if count == 1 {
		return call(f, 0, n)
	}

	errs := make([]error, count)
	var wg sync.WaitGroup
	for w := 0; w < count; w++ {
		lo := w * size
		hi := min(lo+size, n)
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			errs[w] = call(f, lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func call(f func(lo, hi int), lo, hi int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("range [%d, %d): %v", lo, hi, r)
		}
	}()
	f(lo, hi)
	return nil
}
