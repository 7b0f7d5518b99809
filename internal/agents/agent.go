package agents

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
	ErrAgentNotFound = errors.New("agent not found")
	ErrUnknownAction = errors.New("unknown action")
	ErrMissingInput  = errors.New("missing input")
)

var agentTasks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "spark_agent_tasks_total",
	Help: "Agent tasks processed, by agent, action and result.",
}, []string{"agent", "action", "result"})

// Agent is a simulated assistant that handles a fixed set of actions.
type Agent interface {
	Name() string
	Role() string
	Actions() []string
	Process(ctx context.Context, task Task) (any, error)
}

type Task struct {
	Action string         `json:"action"`
	Input  map[string]any `json:"input,omitempty"`
}

func (t Task) Param(key string) string {
	v, _ := t.Input[key].(string)
	return v
}

func (t Task) require(keys ...string) error {
	for _, k := range keys {
		if t.Param(k) == "" {
			return fmt.Errorf("%w: %s", ErrMissingInput, k)
		}
	}
	return nil
}

func unknownAction(agent, action string) error {
	return fmt.Errorf("%w: %s does not handle %q", ErrUnknownAction, agent, action)
}

type Info struct {
	Name    string   `json:"name"`
	Role    string   `json:"role"`
	Actions []string `json:"actions"`
}

// Step is one entry of a multi-agent workflow.
type Step struct {
	Agent string `json:"agent"`
	Task
}

type StepResult struct {
	Agent  string `json:"agent"`
	Action string `json:"action"`
	Output any    `json:"output"`
}

type Orchestrator struct {
	mu     sync.RWMutex
	agents map[string]Agent
	logger *zap.Logger
}

func NewOrchestrator(logger *zap.Logger, agents ...Agent) *Orchestrator {
	o := &Orchestrator{agents: make(map[string]Agent), logger: logger}
	for _, a := range agents {
		o.Register(a)
	}
	return o
}

func (o *Orchestrator) Register(a Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.Name()] = a
}

func (o *Orchestrator) Get(name string) (Agent, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	a, ok := o.agents[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return a, nil
}

// List returns the registered agents ordered by name.
func (o *Orchestrator) List() []Info {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Info, 0, len(o.agents))
	for _, a := range o.agents {
		out = append(out, Info{Name: a.Name(), Role: a.Role(), Actions: a.Actions()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (o *Orchestrator) Execute(ctx context.Context, agentName string, task Task) (any, error) {
	a, err := o.Get(agentName)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	out, err := a.Process(ctx, task)
	result := "ok"
	if err != nil {
		result = "error"
	}
	agentTasks.WithLabelValues(agentName, task.Action, result).Inc()
	o.logger.Debug("agent task",
		zap.String("agent", agentName),
		zap.String("action", task.Action),
		zap.String("result", result),
		zap.Duration("took", time.Since(start)))
	return out, err
}

// RunWorkflow executes steps in order and stops at the first failure,
// returning the results gathered so far.
func (o *Orchestrator) RunWorkflow(ctx context.Context, steps []Step) ([]StepResult, error) {
	results := make([]StepResult, 0, len(steps))
	for i, s := range steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		out, err := o.Execute(ctx, s.Agent, s.Task)
		if err != nil {
			return results, fmt.Errorf("step %d (%s/%s): %w", i, s.Agent, s.Action, err)
		}
		results = append(results, StepResult{Agent: s.Agent, Action: s.Action, Output: out})
	}
	return results, nil
}
