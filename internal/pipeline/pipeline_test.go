package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduleNext(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 17, 30, 0, time.UTC) // Saturday

	tests := []struct {
		expr string
		want time.Time
	}{
		{"* * * * *", time.Date(2026, 3, 14, 10, 18, 0, 0, time.UTC)},
		{"0 3 1 * *", time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)},
		{"*/15 * * * *", time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)},
		{"0 9-17 * * 1-5", time.Date(2026, 3, 16, 9, 0, 0, 0, time.UTC)},
		{"5,45 10 * * *", time.Date(2026, 3, 14, 10, 45, 0, 0, time.UTC)},
		{"0-30/10 11 * * *", time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			s, err := ParseCron(tt.expr)
			if err != nil {
				t.Fatalf("ParseCron: %v", err)
			}
			got, err := s.Next(base)
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Next = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseCronRejects(t *testing.T) {
	for _, expr := range []string{"", "* * * *", "60 * * * *", "* 24 * * *", "*/0 * * * *", "5-1 * * * *", "a * * * *"} {
		if _, err := ParseCron(expr); err == nil {
			t.Errorf("ParseCron(%q) succeeded, want error", expr)
		}
	}
}

type stubArchiver struct {
	before time.Time
	oppErr error
}

func (s *stubArchiver) ArchiveTrades(_ context.Context, before time.Time) (int64, error) {
	s.before = before
	return 3, nil
}

func (s *stubArchiver) ArchiveOpportunities(context.Context, time.Time) (int64, error) {
	return 0, s.oppErr
}

func (s *stubArchiver) ArchiveAudit(context.Context, time.Time) (int64, error) {
	return 7, nil
}

func TestArchiverRun(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	stub := &stubArchiver{oppErr: errors.New("s3 unavailable")}
	a := NewArchiver(stub, 30, testLogger()).WithClock(func() time.Time { return now })

	report, err := a.Run(context.Background())
	if err == nil {
		t.Fatal("expected the opportunities failure to be reported")
	}
	if want := now.Add(-30 * 24 * time.Hour); !stub.before.Equal(want) || !report.Cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", stub.before, want)
	}
	if report.Trades != 3 || report.Audit != 7 || report.Opportunities != 0 {
		t.Errorf("report = %+v, want the other kinds archived", report)
	}
}

func TestOrchestratorStopsOnFailure(t *testing.T) {
	var stopped atomic.Bool
	o := NewOrchestrator(testLogger(),
		Task{Name: "loop", Run: func(ctx context.Context) error {
			<-ctx.Done()
			stopped.Store(true)
			return ctx.Err()
		}},
		Task{Name: "broken", Run: func(context.Context) error { return errors.New("boom") }},
	)

	err := o.Run(context.Background())
	if err == nil || err.Error() != "broken: boom" {
		t.Fatalf("Run err = %v, want broken: boom", err)
	}
	if !stopped.Load() {
		t.Error("sibling task was not cancelled")
	}
}

func TestOrchestratorCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	o := NewOrchestrator(testLogger())
	o.Add("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run err = %v, want nil on cancel", err)
	}
}
