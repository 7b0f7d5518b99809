package automation

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs workflows that carry a schedule trigger.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(engine *Engine, logger *zap.Logger) *Scheduler {
	return &Scheduler{engine: engine, cron: cron.New(), logger: logger}
}

// Start registers every scheduled workflow and starts the cron loop.
// It returns the number of workflows scheduled.
func (s *Scheduler) Start() (int, error) {
	n := 0
	for _, w := range s.engine.List() {
		spec := w.Schedule()
		if spec == "" {
			continue
		}
		id := w.ID
		if _, err := s.cron.AddFunc(spec, func() { s.run(id) }); err != nil {
			return n, err
		}
		s.logger.Info("workflow scheduled", zap.String("workflow_id", id), zap.String("cron", spec))
		n++
	}
	s.cron.Start()
	return n, nil
}

func (s *Scheduler) run(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), asyncRunTimeout)
	defer cancel()
	_, err := s.engine.Execute(ctx, id, map[string]any{"trigger": TriggerSchedule})
	if errors.Is(err, ErrWorkflowUnavailable) {
		s.logger.Debug("scheduled workflow not active", zap.String("workflow_id", id))
	} else if err != nil {
		s.logger.Error("scheduled workflow error", zap.String("workflow_id", id), zap.Error(err))
	}
}

// Stop halts the cron loop and waits for running jobs up to ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("scheduler stop timed out")
	}
}

// Next reports the next run time of each scheduled workflow.
func (s *Scheduler) Next() map[string]time.Time {
	out := map[string]time.Time{}
	for _, w := range s.engine.List() {
		spec := w.Schedule()
		if spec == "" {
			continue
		}
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			continue
		}
		out[w.ID] = sched.Next(time.Now())
	}
	return out
}
