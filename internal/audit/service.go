package audit

import (
	"context"
	"log/slog"
	"time"
)

// Publisher hands entries to the background outbox. Implemented by the jobs
// client; retries belong to the queue, not the caller.
type Publisher interface {
	PublishActivity(ctx context.Context, entry Entry) error
}

// Recorder is the write side of the activity log as seen by other modules.
type Recorder interface {
	Record(ctx context.Context, entry Entry)
}

// Service records activity entries and serves the timeline.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
}

// NewService constructs a Service. publisher may be nil, in which case
// entries are written synchronously.
func NewService(repo Repository, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, publisher: publisher, logger: logger}
}

// Record persists an entry best-effort. Failures are logged and swallowed so
// the primary operation is never aborted by its audit trail.
func (s *Service) Record(ctx context.Context, entry Entry) {
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	var err error
	if s.publisher != nil {
		err = s.publisher.PublishActivity(ctx, entry)
	} else {
		err = s.repo.Insert(ctx, entry)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("record activity",
			slog.String("action", entry.Action),
			slog.String("entity", entry.Entity),
			slog.Any("error", err))
	}
}

// Write persists an entry synchronously. Used by the worker when draining
// the outbox; the returned error drives the queue's retry policy.
func (s *Service) Write(ctx context.Context, entry Entry) error {
	return s.repo.Insert(ctx, entry)
}

// Timeline lists activity rows with paging.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) ([]Row, int, error) {
	return s.repo.Timeline(ctx, filters)
}

var _ Recorder = (*Service)(nil)
