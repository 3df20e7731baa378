package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/video-comb/app/feed"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

var ErrQueueFull = errors.New("task queue is full")

const (
	DefaultWorkerCount = 2
	DefaultTaskTimeout = 30 * time.Minute
	maxRetryDelay      = 30 * time.Second
	queueSize          = 300
)

type Options struct {
	// Interval between scheduled update runs; zero disables them.
	Interval    time.Duration
	WorkerCount int
	TaskTimeout time.Duration
	// UpdateLimit caps items per scheduled update run.
	UpdateLimit int
}

type Scheduler struct {
	catalog     *feed.Catalog
	newRunner   RunnerFactory
	runs        *Runs
	interval    time.Duration
	workerCount int
	taskTimeout time.Duration
	updateLimit int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	taskQueue   chan TaskInterface

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewScheduler(catalog *feed.Catalog, newRunner RunnerFactory, opts Options) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.WorkerCount <= 0 {
		opts.WorkerCount = DefaultWorkerCount
	}
	if opts.TaskTimeout <= 0 {
		opts.TaskTimeout = DefaultTaskTimeout
	}

	return &Scheduler{
		catalog:     catalog,
		newRunner:   newRunner,
		runs:        NewRuns(DefaultRunHistory),
		interval:    opts.Interval,
		workerCount: opts.WorkerCount,
		taskTimeout: opts.TaskTimeout,
		updateLimit: opts.UpdateLimit,
		ctx:         ctx,
		cancel:      cancel,
		taskQueue:   make(chan TaskInterface, queueSize),
		locks:       make(map[string]*sync.Mutex),
	}
}

func (s *Scheduler) Start() {
	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	if s.interval <= 0 {
		slog.Debug("Scheduled updates disabled")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.enqueueUpdates()
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) Runs() *Runs {
	return s.runs
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	select {
	case s.taskQueue <- task:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	default:
		return ErrQueueFull
	}
}

// Submit queues a synchronization and returns its run for tracking.
func (s *Scheduler) Submit(taskType TaskType, source string, limit int) (*Run, error) {
	var task *SyncTask
	switch taskType {
	case TaskTypeCreatePosts:
		task = NewCreatePostsTask(source, limit, s.newRunner)
	case TaskTypeUpdatePosts:
		task = NewUpdatePostsTask(source, limit, s.newRunner)
	case TaskTypeCleanPosts:
		task = NewCleanPostsTask(source, s.newRunner)
	default:
		return nil, fmt.Errorf("unknown task type %q", taskType)
	}

	if err := s.EnqueueTask(task); err != nil {
		return nil, err
	}
	s.runs.Add(task.Run())
	return task.Run(), nil
}

func (s *Scheduler) enqueueUpdates() {
	origins := s.catalog.Origins()
	if len(origins) == 0 {
		slog.Debug("No feeds found")
		return
	}

	for _, origin := range origins {
		if len(s.catalog.Enabled(origin)) == 0 {
			slog.Debug("Source has no enabled feeds, skipping", "source", origin)
			continue
		}
		if _, err := s.Submit(TaskTypeUpdatePosts, origin, s.updateLimit); err != nil {
			slog.Warn("Failed to enqueue UpdatePostsTask", "source", origin, "error", err)
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.taskQueue:
			s.executeTask(id, task)

		case <-s.ctx.Done():
			return
		}
	}
}

// sourceLock serializes runs of one source: its feed files live at fixed
// paths.
func (s *Scheduler) sourceLock(source string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	mu, ok := s.locks[source]
	if !ok {
		mu = &sync.Mutex{}
		s.locks[source] = mu
	}
	return mu
}

func (s *Scheduler) executeTask(workerID int, task TaskInterface) {
	lock := s.sourceLock(task.GetSource())
	lock.Lock()
	defer lock.Unlock()

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, s.taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		return
	}

	slog.Error("Worker task execution failed", "worker_id", workerID, "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() {
		slog.Error("Task failed permanently", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := RetryDelay(task.GetRetryCount())

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "source", task.GetSource(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(retryDelay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
		case <-timer.C:
			if retryErr := s.EnqueueTask(task); retryErr != nil {
				slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", retryErr)
			}
		}
	}()
}

// RetryDelay doubles from one second per retry, capped at 30 seconds.
func RetryDelay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	if retry > 6 {
		return maxRetryDelay
	}
	return min(time.Duration(1<<uint(retry-1))*time.Second, maxRetryDelay)
}
