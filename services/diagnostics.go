package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"repairer-discovery/utils"
)

var errNotConfigured = errors.New("not configured")

// Pinger is anything whose reachability can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// CheckResult is the outcome of one connectivity check.
type CheckResult struct {
	OK      bool          `json:"ok"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency"`
}

// ConnectionReport holds the independent result of each collaborator check.
type ConnectionReport struct {
	Source   CheckResult `json:"source"`
	AI       CheckResult `json:"ai"`
	Database CheckResult `json:"database"`
}

// AllOK reports whether every check passed.
func (r *ConnectionReport) AllOK() bool {
	return r.Source.OK && r.AI.OK && r.Database.OK
}

// Diagnostics checks reachability of the pipeline's external collaborators.
type Diagnostics struct {
	source   Pinger
	ai       Pinger
	database Pinger
	timeout  time.Duration
	logger   *utils.Logger
}

// NewDiagnostics creates Diagnostics. A nil Pinger reports as not configured.
func NewDiagnostics(source, ai, database Pinger, timeout time.Duration, logger *utils.Logger) *Diagnostics {
	return &Diagnostics{source: source, ai: ai, database: database, timeout: timeout, logger: logger}
}

// TestConnection runs the three checks concurrently. Each check reports on
// its own; one failing never skips or fails another.
func (d *Diagnostics) TestConnection(ctx context.Context) *ConnectionReport {
	report := &ConnectionReport{}

	var g errgroup.Group
	g.Go(func() error { report.Source = d.check(ctx, "source", d.source); return nil })
	g.Go(func() error { report.AI = d.check(ctx, "ai", d.ai); return nil })
	g.Go(func() error { report.Database = d.check(ctx, "database", d.database); return nil })
	_ = g.Wait()

	return report
}

func (d *Diagnostics) check(ctx context.Context, name string, p Pinger) (res CheckResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = CheckResult{Error: "check panicked"}
		}
		res.Latency = time.Since(start)
		if res.OK {
			d.logger.Info("[diagnostics] %s reachable (%v)", name, res.Latency.Round(time.Millisecond))
		} else {
			d.logger.Warn("[diagnostics] %s check failed: %s", name, res.Error)
		}
	}()

	if p == nil {
		return CheckResult{Error: errNotConfigured.Error()}
	}
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := p.Ping(ctx); err != nil {
		return CheckResult{Error: err.Error()}
	}
	return CheckResult{OK: true}
}
