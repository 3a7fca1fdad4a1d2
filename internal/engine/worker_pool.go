package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrPoolStopped is returned by Submit once the pool is shutting down.
var ErrPoolStopped = errors.New("worker pool is shutting down")

// RenderJob represents a render request to be processed by a worker
type RenderJob struct {
	Ctx     context.Context
	Request Request
	Result  chan *JobResult
}

// JobResult contains the result of a render job
type JobResult struct {
	Result *Result
	Error  error
}

// WorkerPool bounds the number of concurrent renders
type WorkerPool struct {
	workers  int
	jobQueue chan *RenderJob
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	engine   *Engine
	timeout  time.Duration

	// mu guards stopped; Submit holds it shared while queueing
	mu      sync.RWMutex
	stopped bool
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workers int, engine *Engine, timeout time.Duration, logger *zap.Logger) *WorkerPool {
	if workers <= 0 {
		workers = 4 // default to 4 workers
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:  workers,
		jobQueue: make(chan *RenderJob, workers*2), // buffer for 2x workers
		ctx:      ctx,
		cancel:   cancel,
		logger:   logger,
		engine:   engine,
		timeout:  timeout,
	}
}

// Start launches all worker goroutines
func (wp *WorkerPool) Start() {
	wp.logger.Info("Starting render worker pool",
		zap.Int("workers", wp.workers),
		zap.Int("queue_size", cap(wp.jobQueue)))

	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop gracefully shuts down the worker pool. The queue is never closed;
// workers exit on the pool context and jobs still queued are failed.
func (wp *WorkerPool) Stop() {
	wp.logger.Info("Stopping render worker pool")
	wp.cancel()

	wp.mu.Lock()
	wp.stopped = true
	wp.mu.Unlock()

	wp.wg.Wait()

	for {
		select {
		case job := <-wp.jobQueue:
			wp.engine.Release(job.Request)
			job.Result <- &JobResult{Error: ErrPoolStopped}
		default:
			wp.logger.Info("Render worker pool stopped")
			return
		}
	}
}

// Submit issues the request's generation token, queues it and waits for
// its result. The token is taken before queueing, so a request that waits
// for a worker still supersedes renders that are already running.
func (wp *WorkerPool) Submit(ctx context.Context, req Request) (*Result, error) {
	resultChan := make(chan *JobResult, 1)

	wp.mu.RLock()
	if wp.stopped {
		wp.mu.RUnlock()
		return nil, ErrPoolStopped
	}

	job := &RenderJob{
		Ctx:     ctx,
		Request: wp.engine.Issue(req),
		Result:  resultChan,
	}

	select {
	case wp.jobQueue <- job:
		// Job submitted
	case <-ctx.Done():
		wp.mu.RUnlock()
		wp.engine.Release(job.Request)
		return nil, ctx.Err()
	case <-wp.ctx.Done():
		wp.mu.RUnlock()
		wp.engine.Release(job.Request)
		return nil, ErrPoolStopped
	}
	wp.mu.RUnlock()

	// Wait for result
	select {
	case result := <-resultChan:
		return result.Result, result.Error
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// worker is the main loop for a single worker
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	wp.logger.Debug("Render worker started", zap.Int("worker_id", id))

	for {
		select {
		case <-wp.ctx.Done():
			wp.logger.Debug("Render worker stopping (context cancelled)", zap.Int("worker_id", id))
			return
		case job := <-wp.jobQueue:
			wp.processJob(id, job)
		}
	}
}

// processJob handles a single render job
func (wp *WorkerPool) processJob(workerID int, job *RenderJob) {
	wp.logger.Debug("Worker processing job",
		zap.Int("worker_id", workerID),
		zap.String("target", job.Request.Target),
		zap.Uint64("generation", job.Request.Generation),
		zap.String("quality", job.Request.Quality.String()))

	ctx := job.Ctx
	if ctx == nil {
		ctx = wp.ctx
	}
	if wp.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.timeout)
		defer cancel()
	}

	result, err := wp.engine.Render(ctx, job.Request)

	job.Result <- &JobResult{
		Result: result,
		Error:  err,
	}

	if err != nil {
		wp.logger.Debug("Worker completed job with error",
			zap.Int("worker_id", workerID),
			zap.String("target", job.Request.Target),
			zap.Error(err))
	} else {
		wp.logger.Debug("Worker completed job successfully",
			zap.Int("worker_id", workerID),
			zap.String("target", job.Request.Target),
			zap.Uint64("generation", result.Generation))
	}
}
