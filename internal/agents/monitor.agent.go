package agents

import (
	"context"

	"spark-service/internal/health"
)

type HealthChecker interface {
	Check(ctx context.Context) health.Report
}

type MonitorAgent struct {
	checker HealthChecker
}

func NewMonitorAgent(c HealthChecker) *MonitorAgent {
	return &MonitorAgent{checker: c}
}

func (a *MonitorAgent) Name() string      { return "monitor" }
func (a *MonitorAgent) Role() string      { return "System health monitoring" }
func (a *MonitorAgent) Actions() []string { return []string{"health_check"} }

func (a *MonitorAgent) Process(ctx context.Context, t Task) (any, error) {
	if t.Action != "health_check" {
		return nil, unknownAction(a.Name(), t.Action)
	}
	return a.checker.Check(ctx), nil
}
