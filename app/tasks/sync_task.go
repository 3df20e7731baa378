package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/video-comb/app/ingest"
	"github.com/lysyi3m/video-comb/app/provider"
)

// SyncTask runs one create, update or clean pass over a source and
// records the outcome on its Run.
type SyncTask struct {
	Task
	Limit     int
	run       *Run
	newRunner RunnerFactory
}

func newSyncTask(taskType TaskType, source string, limit int, newRunner RunnerFactory) *SyncTask {
	t := &SyncTask{
		Task:      NewTask(taskType, source),
		Limit:     limit,
		newRunner: newRunner,
	}
	t.run = newRun(t.ID, taskType, source, limit)
	return t
}

func NewCreatePostsTask(source string, limit int, newRunner RunnerFactory) *SyncTask {
	return newSyncTask(TaskTypeCreatePosts, source, limit, newRunner)
}

func NewUpdatePostsTask(source string, limit int, newRunner RunnerFactory) *SyncTask {
	return newSyncTask(TaskTypeUpdatePosts, source, limit, newRunner)
}

func NewCleanPostsTask(source string, newRunner RunnerFactory) *SyncTask {
	return newSyncTask(TaskTypeCleanPosts, source, 0, newRunner)
}

func (t *SyncTask) Run() *Run {
	return t.run
}

// CanRetry refuses retries after errors that another attempt cannot fix.
func (t *SyncTask) CanRetry() bool {
	return t.Task.CanRetry() && retryable(t.run.Err())
}

func (t *SyncTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	runner := t.newRunner(t.run.begin())

	var n int
	var err error
	switch t.Type {
	case TaskTypeCreatePosts:
		n, err = runner.Create(ctx, t.Source, t.Limit)
	case TaskTypeUpdatePosts:
		n, err = runner.Update(ctx, t.Source, t.Limit)
	case TaskTypeCleanPosts:
		n, err = runner.Clean(ctx, t.Source)
	default:
		err = fmt.Errorf("unknown task type %q", t.Type)
	}
	t.run.finish(n, err)

	if err != nil {
		return fmt.Errorf("failed to %s posts for %s: %w", t.Type.verb(), t.Source, err)
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"source", t.Source,
		"id", t.ID,
		"duration", t.GetDuration(),
		"count", n)

	return nil
}

func (tt TaskType) verb() string {
	switch tt {
	case TaskTypeCreatePosts:
		return "create"
	case TaskTypeUpdatePosts:
		return "update"
	case TaskTypeCleanPosts:
		return "clean"
	default:
		return string(tt)
	}
}

func retryable(err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, provider.ErrInvalidToken),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, ingest.ErrMissingFields),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
