package service

import (
	"context"
	"sync"

	"github.com/ignatij/letterflow/pkg/models"
)

// PipelineRunner executes one fetch → normalize → generate → render run.
// Implementations must not panic; any internal failure is returned as an
// error-status result.
type PipelineRunner interface {
	Run(ctx context.Context, task models.Task) models.RunResult
}

type runHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Dispatcher launches pipeline runs in the background, one goroutine per
// submitted task run. It never queues or caps runs; single-flight per
// task is the caller's responsibility (checked before Submit).
type Dispatcher struct {
	ctx     context.Context
	runner  PipelineRunner
	results *ResultStore
	logger  Logger

	mu      sync.Mutex
	running map[string]*runHandle
}

func NewDispatcher(ctx context.Context, runner PipelineRunner, results *ResultStore, logger Logger) *Dispatcher {
	return &Dispatcher{
		ctx:     ctx,
		runner:  runner,
		results: results,
		running: make(map[string]*runHandle),
		logger:  logger,
	}
}

// Submit marks the task's result entry as running and starts the pipeline
// in a new goroutine. Non-blocking.
func (d *Dispatcher) Submit(task models.Task) {
	d.results.Record(task.ID, models.RunResult{Status: models.RunningRunStatus})

	runCtx, cancel := context.WithCancel(d.ctx)
	handle := &runHandle{cancel: cancel, done: make(chan struct{})}

	d.mu.Lock()
	d.running[task.ID] = handle
	d.mu.Unlock()

	d.logger.Infof("Dispatched run for task '%s' (%s)", task.Name, task.ID)

	go func() {
		defer func() {
			cancel()
			d.mu.Lock()
			delete(d.running, task.ID)
			d.mu.Unlock()
			close(handle.done)
		}()
		result := d.runner.Run(runCtx, task)
		d.results.Record(task.ID, result)
		d.logger.Infof("Run for task '%s' finished with status %s", task.Name, result.Status)
	}()
}

// InFlight reports the number of currently running pipeline executions.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.running)
}

// Wait blocks until every in-flight run has finished. Used on shutdown
// and in tests; runs are never cancelled mid-flight.
func (d *Dispatcher) Wait() {
	for {
		d.mu.Lock()
		var handle *runHandle
		for _, h := range d.running {
			handle = h
			break
		}
		d.mu.Unlock()
		if handle == nil {
			return
		}
		<-handle.done
	}
}
