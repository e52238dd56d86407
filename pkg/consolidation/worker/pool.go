// Package worker provides an asynchronous pool for running consolidation
// jobs in the background.
//
// The pool decouples consolidation from the caller's hot path: storing a
// record returns immediately while promotion happens on pool goroutines.
package worker

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/mnemolabs/mnemo/pkg/consolidation"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is one consolidation pass for the pool to execute.
type Job struct {
	Domain    string
	BatchSize int
}

// Runner consumes jobs. *consolidation.Engine satisfies it; the engine's
// per-domain lock keeps concurrent same-domain jobs correct regardless of
// pool parallelism.
type Runner interface {
	Run(ctx context.Context, domain string, batchSize int) (consolidation.Summary, error)
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Runner executes enqueued jobs.
	Runner Runner

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// Logger is the provided zap logger.
	Logger *zap.Logger
}

// Pool runs consolidation jobs asynchronously via a worker pool.
type Pool struct {
	runner Runner
	queue  chan Job
	wg     sync.WaitGroup
	logger *zap.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Runner == nil {
		return nil, fmt.Errorf("worker pool requires a runner")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	p := &Pool{
		runner: c.Runner,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	p.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go p.worker(i)
	}

	return p, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job
// being dropped.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("consolidation job queued",
			zap.String("domain", job.Domain),
			zap.Int("batch_size", job.BatchSize),
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			zap.String("domain", job.Domain),
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker goroutine that continuously pulls jobs off the
// queue.
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("consolidation worker started", zap.Uint("worker_id", id))

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("consolidation worker stopped", zap.Uint("worker_id", id))
}

func (p *Pool) processJob(job Job) {
	ctx := context.Background()

	summary, err := p.runner.Run(ctx, job.Domain, job.BatchSize)
	if err != nil {
		p.logger.Error("background consolidation failed",
			zap.String("domain", job.Domain),
			zap.Error(err),
		)
		return
	}

	p.logger.Info("background consolidation finished",
		zap.String("domain", summary.Domain),
		zap.Int("considered", summary.Considered),
		zap.Int("promoted", summary.Promoted),
	)
}
