package worker

import (
	"context"
	"fmt"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

// ErrorFunc receives every job whose processor failed or panicked.
type ErrorFunc[T any] func(job T, err error)

type WorkerPool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	onError    ErrorFunc[T]
	wg         sync.WaitGroup
}

func NewWorkerPool[T any](numWorkers int, bufferSize int, processor ProcessFunc[T]) *WorkerPool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &WorkerPool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

// OnError installs an error callback. Call before Start.
func (wp *WorkerPool[T]) OnError(fn ErrorFunc[T]) {
	wp.onError = fn
}

func (wp *WorkerPool[T]) Start(ctx context.Context) {
	for i := 1; i <= wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool[T]) worker(ctx context.Context, id int) {
	defer wp.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobs:
			if !ok {
				return
			}
			if err := wp.run(ctx, job); err != nil && wp.onError != nil {
				wp.onError(job, err)
			}
		}
	}
}

// run isolates one job: a panic becomes that job's error.
func (wp *WorkerPool[T]) run(ctx context.Context, job T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return wp.processor(ctx, job)
}

func (wp *WorkerPool[T]) Submit(job T) {
	wp.jobs <- job
}

// Stop closes the queue and waits for workers to drain it.
func (wp *WorkerPool[T]) Stop() {
	close(wp.jobs)
	wp.wg.Wait()
}
