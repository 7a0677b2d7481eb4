package work

import (
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
)

type WorkerPool struct {
	handlers     map[string]Handler
	queue        chan *job
	stopChan     chan struct{}
	concurrency  int
	maxFails     int
	retryBackoff time.Duration
	started      bool
	stopped      bool
	mu           sync.RWMutex
	wg           sync.WaitGroup
}

func newWorkerPool(options Options) *WorkerPool {
	return &WorkerPool{
		handlers:     make(map[string]Handler),
		queue:        make(chan *job, options.QueueSize),
		stopChan:     make(chan struct{}),
		concurrency:  options.Concurrency,
		maxFails:     options.MaxFails,
		retryBackoff: options.RetryBackoff,
	}
}

// registerHandler binds a name to a job handler for all workers in pool
func (wp *WorkerPool) registerHandler(name string, handler Handler) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if _, ok := wp.handlers[name]; ok {
		return ErrDuplicateHandler
	}
	wp.handlers[name] = handler

	return nil
}

func (wp *WorkerPool) handler(name string) (Handler, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	handler, ok := wp.handlers[name]
	return handler, ok
}

// enqueue adds a job to the queue without blocking the caller
func (wp *WorkerPool) enqueue(params JobParams) error {
	if strings.TrimSpace(params.Name) == "" || strings.TrimSpace(params.Handler) == "" {
		return errors.New("both a name & handler is required for a job")
	}

	if _, ok := wp.handler(params.Handler); !ok {
		return errors.Wrap(ErrUnknownHandler, params.Handler)
	}

	return wp.push(&job{params: params})
}

func (wp *WorkerPool) push(j *job) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.stopped {
		return ErrPoolStopped
	}

	select {
	case wp.queue <- j:
		return nil
	default:
		return ErrQueueFull
	}
}

func (wp *WorkerPool) retry(j *job, after time.Duration) {
	time.AfterFunc(after, func() {
		if err := wp.push(j); err != nil {
			logg.Errorf("dropping retry of job %v: %v", j.params.Name, err)
		}
	})
}

// start starts all workers in pool i.e the workers can start processing jobs
func (wp *WorkerPool) start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started || wp.stopped {
		return
	}
	wp.started = true

	for i := 0; i < wp.concurrency; i++ {
		wp.wg.Add(1)
		go newWorker(wp).loop()
	}
}

// stop refuses new jobs, lets workers finish the queued ones and waits for them
func (wp *WorkerPool) stop() {
	wp.mu.Lock()
	if !wp.started || wp.stopped {
		wp.stopped = true
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.stopChan)
	wp.mu.Unlock()

	wp.wg.Wait()
}
