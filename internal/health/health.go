package health

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type Probe struct {
	Connected bool    `json:"connected"`
	LatencyMS float64 `json:"latency_ms"`
	Error     string  `json:"error,omitempty"`
}

type Report struct {
	Status        string    `json:"status"`
	Database      Probe     `json:"database"`
	Redis         Probe     `json:"redis"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	Goroutines    int       `json:"goroutines"`
	CheckedAt     time.Time `json:"checked_at"`
}

func (r Report) Healthy() bool {
	return r.Status == "healthy"
}

type Checker struct {
	db      Pinger
	redis   Pinger
	started time.Time
	timeout time.Duration
}

func NewChecker(db, redis Pinger) *Checker {
	return &Checker{db: db, redis: redis, started: time.Now(), timeout: 3 * time.Second}
}

func probe(ctx context.Context, p Pinger, timeout time.Duration) Probe {
	if p == nil {
		return Probe{Error: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	pr := Probe{Connected: err == nil, LatencyMS: float64(time.Since(start).Microseconds()) / 1000}
	if err != nil {
		pr.Error = err.Error()
	}
	return pr
}

func (c *Checker) Database(ctx context.Context) Probe {
	return probe(ctx, c.db, c.timeout)
}

// Check probes the database and redis in parallel. The service is degraded
// without redis and unhealthy without the database.
func (c *Checker) Check(ctx context.Context) Report {
	var rep Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rep.Database = probe(gctx, c.db, c.timeout)
		return nil
	})
	g.Go(func() error {
		rep.Redis = probe(gctx, c.redis, c.timeout)
		return nil
	})
	_ = g.Wait()

	switch {
	case !rep.Database.Connected:
		rep.Status = "unhealthy"
	case !rep.Redis.Connected:
		rep.Status = "degraded"
	default:
		rep.Status = "healthy"
	}
	rep.UptimeSeconds = int64(time.Since(c.started).Seconds())
	rep.Goroutines = runtime.NumGoroutine()
	rep.CheckedAt = time.Now().UTC()
	return rep
}
