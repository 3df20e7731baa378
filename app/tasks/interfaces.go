package tasks

import (
	"context"

	"github.com/lysyi3m/video-comb/app/progress"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the API to run synchronizations in the
// background.
// Example usage:
//
//	scheduler := NewScheduler(catalog, runners, Options{Interval: time.Hour, WorkerCount: 2})
//	scheduler.Start()
//	defer scheduler.Stop()
//	run, err := scheduler.Submit(TaskTypeCreatePosts, "kodik", 100)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Submit(taskType TaskType, source string, limit int) (*Run, error)
	Runs() *Runs
}

// Runner performs synchronizations. ingest.Orchestrator implements it.
type Runner interface {
	Create(ctx context.Context, origin string, limit int) (int, error)
	Update(ctx context.Context, origin string, limit int) (int, error)
	Clean(ctx context.Context, origin string) (int, error)
}

// RunnerFactory builds a runner reporting progress to sink. Every task
// attempt gets its own runner.
type RunnerFactory func(sink progress.Sink) Runner
