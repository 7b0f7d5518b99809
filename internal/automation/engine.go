package automation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	ErrWorkflowNotFound    = errors.New("workflow not found")
	ErrWorkflowUnavailable = errors.New("workflow not found or not active")
	ErrInvalidWorkflow     = errors.New("invalid workflow")
)

const (
	JobSucceeded = "succeeded"
	JobFailed    = "failed"
	JobSkipped   = "skipped"

	maxJobHistory   = 100
	asyncRunTimeout = 2 * time.Minute
)

var (
	workflowRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_workflow_executions_total",
		Help: "Workflow executions, by workflow and outcome.",
	}, []string{"workflow", "outcome"})
	workflowDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "spark_workflow_duration_seconds",
		Help:    "Workflow execution time.",
		Buckets: prometheus.DefBuckets,
	}, []string{"workflow"})
)

type ActionResult struct {
	Type     string         `json:"type"`
	Attempts int            `json:"attempts"`
	Skipped  bool           `json:"skipped,omitempty"`
	Output   map[string]any `json:"output,omitempty"`
	Error    string         `json:"error,omitempty"`
}

type Job struct {
	ID         string         `json:"job_id"`
	WorkflowID string         `json:"workflow_id"`
	Status     string         `json:"status"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	Results    []ActionResult `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

type Stats struct {
	TotalWorkflows  int   `json:"total_workflows"`
	ActiveWorkflows int   `json:"active_workflows"`
	PausedWorkflows int   `json:"paused_workflows"`
	JobsExecuted    int64 `json:"jobs_executed"`
}

type Engine struct {
	mu        sync.RWMutex
	workflows map[string]*Workflow
	actions   map[string]ActionFunc

	jobsMu   sync.Mutex
	jobs     []Job
	executed int64

	sleep  func(ctx context.Context, d time.Duration) error
	logger *zap.Logger
}

func NewEngine(deps Dependencies, logger *zap.Logger) *Engine {
	return &Engine{
		workflows: make(map[string]*Workflow),
		actions:   builtinActions(deps),
		sleep:     sleepCtx,
		logger:    logger,
	}
}

// NewDefaultEngine returns an engine with the default catalogue registered.
func NewDefaultEngine(deps Dependencies, logger *zap.Logger) (*Engine, error) {
	e := NewEngine(deps, logger)
	for _, w := range DefaultWorkflows() {
		if err := e.Register(w); err != nil {
			return nil, err
		}
	}
	return e, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterAction adds or replaces the handler for an action type.
func (e *Engine) RegisterAction(actionType string, fn ActionFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.actions[actionType] = fn
}

func (e *Engine) Register(w Workflow) error {
	if err := w.validate(); err != nil {
		return err
	}
	cp := w.clone()
	e.mu.Lock()
	e.workflows[w.ID] = &cp
	e.mu.Unlock()
	e.logger.Info("workflow registered", zap.String("workflow_id", w.ID), zap.String("name", w.Name))
	return nil
}

func (e *Engine) Get(id string) (Workflow, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	w, ok := e.workflows[id]
	if !ok {
		return Workflow{}, ErrWorkflowNotFound
	}
	return w.clone(), nil
}

// List returns all workflows ordered by id.
func (e *Engine) List() []Workflow {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Workflow, 0, len(e.workflows))
	for _, w := range e.workflows {
		out = append(out, w.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) setStatus(id, status string) (Workflow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, ok := e.workflows[id]
	if !ok {
		return Workflow{}, ErrWorkflowNotFound
	}
	w.Status = status
	e.logger.Info("workflow status changed", zap.String("workflow_id", id), zap.String("status", status))
	return w.clone(), nil
}

func (e *Engine) Pause(id string) (Workflow, error)  { return e.setStatus(id, StatusPaused) }
func (e *Engine) Resume(id string) (Workflow, error) { return e.setStatus(id, StatusActive) }

// Execute runs an active workflow synchronously. Only an unknown or
// inactive workflow is an error; a failing action is reported on the job.
func (e *Engine) Execute(ctx context.Context, id string, data map[string]any) (*Job, error) {
	e.mu.RLock()
	w, ok := e.workflows[id]
	var wf Workflow
	if ok {
		wf = w.clone()
	}
	e.mu.RUnlock()
	if !ok || wf.Status != StatusActive {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowUnavailable, id)
	}
	if data == nil {
		data = map[string]any{}
	}

	start := time.Now()
	job := &Job{
		ID:         fmt.Sprintf("%s-%d", id, start.UnixMilli()),
		WorkflowID: id,
		Results:    []ActionResult{},
		StartedAt:  start.UTC(),
	}

	for _, c := range wf.Conditions {
		if !c.Match(data) {
			job.Status = JobSkipped
			job.Success = true
			job.FinishedAt = time.Now().UTC()
			e.record(job, false)
			workflowRuns.WithLabelValues(id, JobSkipped).Inc()
			e.logger.Debug("workflow skipped by condition",
				zap.String("workflow_id", id), zap.String("field", c.Field), zap.String("operator", c.Operator))
			return job, nil
		}
	}

	e.logger.Info("executing workflow", zap.String("workflow_id", id), zap.String("job_id", job.ID))
	job.Status = JobSucceeded
	job.Success = true
	for _, a := range wf.Actions {
		res := e.runAction(ctx, a, data)
		job.Results = append(job.Results, res)
		if res.Error != "" {
			job.Status = JobFailed
			job.Success = false
			job.Error = fmt.Sprintf("%s: %s", a.Type, res.Error)
			break
		}
	}
	job.FinishedAt = time.Now().UTC()
	e.record(job, true)

	workflowRuns.WithLabelValues(id, job.Status).Inc()
	workflowDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
	if job.Success {
		e.logger.Info("workflow completed", zap.String("job_id", job.ID), zap.Duration("took", time.Since(start)))
	} else {
		e.logger.Warn("workflow failed", zap.String("job_id", job.ID), zap.String("error", job.Error))
	}
	return job, nil
}

func (e *Engine) runAction(ctx context.Context, a Action, data map[string]any) ActionResult {
	e.mu.RLock()
	fn, ok := e.actions[a.Type]
	e.mu.RUnlock()
	res := ActionResult{Type: a.Type}
	if !ok {
		e.logger.Warn("unknown action type", zap.String("action", a.Type))
		res.Skipped = true
		return res
	}

	retries, backoff := 0, time.Duration(0)
	if a.RetryPolicy != nil {
		retries = a.RetryPolicy.MaxRetries
		backoff = time.Duration(a.RetryPolicy.BackoffMS) * time.Millisecond
	}

	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		res.Attempts = attempt + 1
		res.Output, err = fn(ctx, data, a.Config)
		if err == nil {
			return res
		}
		e.logger.Warn("action failed", zap.String("action", a.Type), zap.Int("attempt", res.Attempts), zap.Error(err))
		if attempt < retries {
			if serr := e.sleep(ctx, backoff); serr != nil {
				err = serr
				break
			}
		}
	}
	res.Output = nil
	res.Error = err.Error()
	return res
}

func (e *Engine) record(job *Job, executed bool) {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if executed {
		e.executed++
	}
	e.jobs = append(e.jobs, *job)
	if len(e.jobs) > maxJobHistory {
		e.jobs = append([]Job(nil), e.jobs[len(e.jobs)-maxJobHistory:]...)
	}
}

// Trigger is Execute under the name used by the HTTP API.
func (e *Engine) Trigger(ctx context.Context, id string, data map[string]any) (*Job, error) {
	return e.Execute(ctx, id, data)
}

// TriggerAsync runs the workflow in the background. Unavailable workflows are ignored.
func (e *Engine) TriggerAsync(id string, data map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), asyncRunTimeout)
		defer cancel()
		if _, err := e.Execute(ctx, id, data); err != nil {
			e.logger.Debug("async workflow not run", zap.String("workflow_id", id), zap.Error(err))
		}
	}()
}

// Jobs returns recent jobs, newest first.
func (e *Engine) Jobs(limit int) []Job {
	e.jobsMu.Lock()
	defer e.jobsMu.Unlock()
	if limit <= 0 || limit > len(e.jobs) {
		limit = len(e.jobs)
	}
	out := make([]Job, 0, limit)
	for i := len(e.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, e.jobs[i])
	}
	return out
}

func (e *Engine) Stats() Stats {
	e.mu.RLock()
	s := Stats{TotalWorkflows: len(e.workflows)}
	for _, w := range e.workflows {
		switch w.Status {
		case StatusActive:
			s.ActiveWorkflows++
		case StatusPaused:
			s.PausedWorkflows++
		}
	}
	e.mu.RUnlock()

	e.jobsMu.Lock()
	s.JobsExecuted = e.executed
	e.jobsMu.Unlock()
	return s
}
