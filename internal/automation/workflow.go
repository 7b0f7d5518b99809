package automation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusPaused   = "paused"
)

const (
	TriggerWebhook        = "webhook"
	TriggerSchedule       = "schedule"
	TriggerDatabase       = "database"
	TriggerEmail          = "email"
	TriggerDocumentUpload = "document_upload"
)

const (
	OpEquals      = "equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
)

type Trigger struct {
	Type   string         `json:"type"`
	Config map[string]any `json:"config,omitempty"`
}

type RetryPolicy struct {
	MaxRetries int `json:"max_retries"`
	BackoffMS  int `json:"backoff_ms"`
}

type Action struct {
	Type        string         `json:"type"`
	Config      map[string]any `json:"config,omitempty"`
	RetryPolicy *RetryPolicy   `json:"retry_policy,omitempty"`
}

type Condition struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

type Workflow struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Type       string      `json:"type"`
	Status     string      `json:"status"`
	Triggers   []Trigger   `json:"triggers"`
	Actions    []Action    `json:"actions"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Schedule returns the cron spec of the first schedule trigger, if any.
func (w *Workflow) Schedule() string {
	for _, t := range w.Triggers {
		if t.Type == TriggerSchedule {
			if spec, ok := t.Config["cron"].(string); ok {
				return spec
			}
		}
	}
	return ""
}

func (w *Workflow) validate() error {
	if strings.TrimSpace(w.ID) == "" {
		return fmt.Errorf("%w: id required", ErrInvalidWorkflow)
	}
	switch w.Status {
	case "":
		w.Status = StatusActive
	case StatusActive, StatusInactive, StatusPaused:
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidWorkflow, w.Status)
	}
	for _, a := range w.Actions {
		if a.Type == "" {
			return fmt.Errorf("%w: action without type", ErrInvalidWorkflow)
		}
	}
	for _, c := range w.Conditions {
		switch c.Operator {
		case OpEquals, OpContains, OpGreaterThan, OpLessThan:
		default:
			return fmt.Errorf("%w: operator %q", ErrInvalidWorkflow, c.Operator)
		}
	}
	return nil
}

func (w *Workflow) clone() Workflow {
	cp := *w
	cp.Triggers = append([]Trigger(nil), w.Triggers...)
	cp.Actions = append([]Action(nil), w.Actions...)
	cp.Conditions = append([]Condition(nil), w.Conditions...)
	return cp
}

// Match evaluates the condition against trigger data. A missing field never matches.
func (c Condition) Match(data map[string]any) bool {
	got, ok := data[c.Field]
	if !ok {
		return false
	}
	switch c.Operator {
	case OpEquals:
		if a, aok := toFloat(got); aok {
			if b, bok := toFloat(c.Value); bok {
				return a == b
			}
		}
		return fmt.Sprint(got) == fmt.Sprint(c.Value)
	case OpContains:
		return contains(got, c.Value)
	case OpGreaterThan, OpLessThan:
		a, aok := toFloat(got)
		b, bok := toFloat(c.Value)
		if !aok || !bok {
			return false
		}
		if c.Operator == OpGreaterThan {
			return a > b
		}
		return a < b
	}
	return false
}

func contains(haystack, needle any) bool {
	if s, ok := haystack.(string); ok {
		return strings.Contains(s, fmt.Sprint(needle))
	}
	v := reflect.ValueOf(haystack)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if fmt.Sprint(v.Index(i).Interface()) == fmt.Sprint(needle) {
			return true
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
