package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is one unit of deferred work, typically a notification fan-out
// batch. Payload is opaque to the queue; the handler knows its shape.
type Task struct {
	ID       string
	Kind     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// TaskFunc handles one task. A returned error triggers a delayed retry
// until the attempt budget runs out.
type TaskFunc func(context.Context, Task) error

// QueueConfig sizes the worker pool and the retry policy.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (cfg QueueConfig) withDefaults() QueueConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

// Queue dispatches tasks to a fixed pool of goroutines over a buffered
// channel. Tasks accepted before Stop may still be dropped on shutdown;
// callers that need durability must persist before enqueueing.
type Queue struct {
	name    string
	handle  TaskFunc
	cfg     QueueConfig
	logger  *zap.Logger
	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a queue around the handler. Zero config fields get
// conservative defaults.
func NewQueue(name string, handle TaskFunc, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:   name,
		handle: handle,
		cfg:    cfg,
		logger: cfg.Logger,
		tasks:  make(chan Task, cfg.BufferSize),
	}
}

// Start launches the workers. Calling Start twice is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.started = true
	q.logger.Info("queue started",
		zap.String("queue", q.name), zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and blocks until they exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped", zap.String("queue", q.name))
}

// Enqueue hands a task to the pool, blocking while the buffer is full.
func (q *Queue) Enqueue(task Task) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	if task.Enqueued.IsZero() {
		task.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.tasks <- task:
		return nil
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			if err := q.handle(q.ctx, task); err != nil {
				q.retry(task, err)
			}
		}
	}
}

// retry requeues a failed task after the configured delay. The delay
// runs off-worker so a burst of failures cannot stall the pool.
func (q *Queue) retry(task Task, cause error) {
	task.Attempt++
	if task.Attempt > q.cfg.MaxRetries {
		q.logger.Error("task dropped after retries",
			zap.String("queue", q.name), zap.String("task_id", task.ID),
			zap.String("kind", task.Kind), zap.Error(cause))
		return
	}
	q.logger.Warn("task failed, will retry",
		zap.String("queue", q.name), zap.String("task_id", task.ID),
		zap.String("kind", task.Kind), zap.Int("attempt", task.Attempt), zap.Error(cause))

	go func(t Task) {
		delay := time.NewTimer(q.cfg.RetryDelay)
		defer delay.Stop()
		select {
		case <-q.ctx.Done():
		case <-delay.C:
			if err := q.Enqueue(t); err != nil {
				q.logger.Error("failed to requeue task",
					zap.String("queue", q.name), zap.String("task_id", t.ID), zap.Error(err))
			}
		}
	}(task)
}
