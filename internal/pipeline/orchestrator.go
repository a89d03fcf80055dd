package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Task is one long-running loop owned by the orchestrator.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Orchestrator runs every background loop of a mode: market pollers, the live
// ticker, the arbitrage detector, position revaluation and the archive cron.
type Orchestrator struct {
	tasks  []Task
	logger *slog.Logger
}

// NewOrchestrator creates an Orchestrator over tasks.
func NewOrchestrator(logger *slog.Logger, tasks ...Task) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		tasks:  tasks,
		logger: logger.With(slog.String("component", "orchestrator")),
	}
}

// Add appends a task. Call before Run.
func (o *Orchestrator) Add(name string, run func(ctx context.Context) error) {
	o.tasks = append(o.tasks, Task{Name: name, Run: run})
}

// Tasks returns the task names in start order.
func (o *Orchestrator) Tasks() []string {
	names := make([]string, 0, len(o.tasks))
	for _, t := range o.tasks {
		names = append(names, t.Name)
	}
	return names
}

// Run starts all tasks as concurrent goroutines using an errgroup. Each
// goroutine respects ctx cancellation. If any task returns a non-context
// error, the errgroup cancels the shared context and Run returns that error.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.InfoContext(ctx, "pipeline orchestrator starting", slog.Any("tasks", o.Tasks()))

	g, ctx := errgroup.WithContext(ctx)
	for _, t := range o.tasks {
		g.Go(func() error {
			o.logger.InfoContext(ctx, "starting task", slog.String("task", t.Name))
			err := t.Run(ctx)
			if ctx.Err() != nil || err == nil || errors.Is(err, context.Canceled) {
				return nil // clean shutdown
			}
			return fmt.Errorf("%s: %w", t.Name, err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.ErrorContext(ctx, "pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.InfoContext(ctx, "pipeline orchestrator stopped cleanly")
	return nil
}
