package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/angelmondragon/resellr-backend/pkg/logger"
)

type fakeSessionCleaner struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeSessionCleaner) CleanupExpired(context.Context) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func TestSessionCleanupJobRunsCleanup(t *testing.T) {
	cleaner := &fakeSessionCleaner{deleted: 3}
	job, err := NewSessionCleanupJob(SessionCleanupJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Sessions: cleaner,
	})
	if err != nil {
		t.Fatalf("NewSessionCleanupJob: %v", err)
	}
	if job.Name() != "sell-session-cleanup" {
		t.Fatalf("unexpected job name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if cleaner.calls != 1 {
		t.Fatalf("expected one cleanup call, got %d", cleaner.calls)
	}
}

func TestSessionCleanupJobWrapsError(t *testing.T) {
	boom := errors.New("db down")
	job, err := NewSessionCleanupJob(SessionCleanupJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Sessions: &fakeSessionCleaner{err: boom},
	})
	if err != nil {
		t.Fatalf("NewSessionCleanupJob: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestSessionCleanupJobRequiresDeps(t *testing.T) {
	if _, err := NewSessionCleanupJob(SessionCleanupJobParams{}); err == nil {
		t.Fatal("expected error without logger")
	}
}
