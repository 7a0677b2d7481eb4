package work

import (
	"errors"
	"fmt"
	"time"

	"github.com/IMINABO1/Vault/colors"
	"github.com/IMINABO1/Vault/server/logger"
	"github.com/google/uuid"
)

const MAX_FAILS = 4

var (
	ErrDuplicateHandler = errors.New("handler with provided name already mapped")
	ErrUnknownHandler   = errors.New("no handler registered with provided name")
	ErrQueueFull        = errors.New("job queue is full")
	ErrPoolStopped      = errors.New("worker pool is stopped")

	logg = logger.NewLogger("work")
)

type JobParams struct {
	Name    string
	Handler string
	Args    map[string]interface{}
}

type Handler func(map[string]interface{}) error

type job struct {
	params JobParams
	fails  int
}

type worker struct {
	id   string
	pool *WorkerPool
}

func newWorker(pool *WorkerPool) *worker {
	return &worker{id: uuid.NewString()[:8], pool: pool}
}

// loop pulls jobs until the pool stops, then drains what is already queued.
func (w *worker) loop() {
	defer w.pool.wg.Done()

	w.logInfof("starting")
	for {
		select {
		case <-w.pool.stopChan:
			w.drain()
			w.logInfof("stopping")
			return
		case j := <-w.pool.queue:
			w.processJob(j)
		}
	}
}

func (w *worker) drain() {
	for {
		select {
		case j := <-w.pool.queue:
			w.processJob(j)
		default:
			return
		}
	}
}

func (w *worker) processJob(j *job) {
	handler, ok := w.pool.handler(j.params.Handler)
	if !ok {
		w.logError(fmt.Errorf("job %v: %w", j.params.Name, ErrUnknownHandler))
		return
	}

	err := runHandler(handler, j.params.Args)
	if err == nil {
		w.logInfof("job %v completed", j.params.Name)
		return
	}

	j.fails++
	w.logError(fmt.Errorf("job %v failed (attempt %d/%d): %w", j.params.Name, j.fails, w.pool.maxFails, err))

	if j.fails >= w.pool.maxFails {
		w.logError(fmt.Errorf("job %v is dead after %d attempts", j.params.Name, j.fails))
		return
	}

	w.pool.retry(j, time.Duration(j.fails)*w.pool.retryBackoff)
}

// runHandler keeps a panicking handler from taking its worker down.
func runHandler(handler Handler, args map[string]interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return handler(args)
}

func (w *worker) logInfof(template string, args ...interface{}) {
	prefix := colors.Yellow(fmt.Sprintf("[worker %v] ", w.id))
	logg.Infof(prefix+template, args...)
}

func (w *worker) logError(err error) {
	prefix := colors.Red(fmt.Sprintf("[worker %v] ", w.id))
	logg.Error(prefix, err)
}
