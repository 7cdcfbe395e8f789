package syncd

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubJob counts its runs and optionally fails.
type stubJob struct {
	name string
	runs atomic.Int64
	err  error
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	return j.err
}

func TestRunAll(t *testing.T) {
	d := New(DefaultConfig(zap.NewNop()))

	a := &stubJob{name: "a"}
	b := &stubJob{name: "b"}
	d.Register(a, time.Minute)
	d.Register(b, time.Minute)

	if err := d.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if a.runs.Load() != 1 || b.runs.Load() != 1 {
		t.Errorf("expected each job to run once, got a=%d b=%d", a.runs.Load(), b.runs.Load())
	}

	runs, failures := d.Stats()
	if runs["a"] != 1 || failures["a"] != 0 {
		t.Errorf("unexpected stats: runs=%v failures=%v", runs, failures)
	}
}

func TestRunAllReportsFailureButContinues(t *testing.T) {
	d := New(DefaultConfig(zap.NewNop()))

	bad := &stubJob{name: "bad", err: errors.New("boom")}
	good := &stubJob{name: "good"}
	d.Register(bad, time.Minute)
	d.Register(good, time.Minute)

	err := d.RunAll(context.Background())
	if err == nil {
		t.Fatal("expected failure to be reported")
	}
	if good.runs.Load() != 1 {
		t.Error("expected remaining jobs to still run")
	}

	// A later clean pass must not report the stale failure.
	bad.err = nil
	if err := d.RunAll(context.Background()); err != nil {
		t.Errorf("expected clean pass, got %v", err)
	}
}

func TestOfflineGateSkipsRuns(t *testing.T) {
	cfg := DefaultConfig(zap.NewNop())
	cfg.Online = func(ctx context.Context) error { return errors.New("no network") }
	d := New(cfg)

	job := &stubJob{name: "gated"}
	d.Register(job, time.Minute)

	// Offline is a skip, not a failure.
	if err := d.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if job.runs.Load() != 0 {
		t.Errorf("expected no runs while offline, got %d", job.runs.Load())
	}
}

func TestOnRunCompleteObservesOutcomes(t *testing.T) {
	cfg := DefaultConfig(zap.NewNop())
	var seen []string
	cfg.OnRunComplete = func(job string, err error) {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		seen = append(seen, job+":"+outcome)
	}
	d := New(cfg)

	d.Register(&stubJob{name: "bad", err: errors.New("boom")}, time.Minute)
	_ = d.RunAll(context.Background())

	if len(seen) != 1 || seen[0] != "bad:failed" {
		t.Errorf("expected failure observed, got %v", seen)
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	d := New(DefaultConfig(zap.NewNop()))

	job := &stubJob{name: "once"}
	d.Register(job, time.Minute)
	d.Register(job, time.Minute)

	if err := d.RunAll(context.Background()); err != nil {
		t.Fatalf("RunAll failed: %v", err)
	}
	if job.runs.Load() != 1 {
		t.Errorf("expected a single registration, got %d runs", job.runs.Load())
	}
}

func TestStartRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	d := New(DefaultConfig(zap.NewNop()))

	job := &stubJob{name: "periodic"}
	d.Register(job, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for job.runs.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for startup run")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for daemon to stop")
	}
}
