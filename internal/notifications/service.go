package notifications

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/meridian-erp/meridian/internal/platform/httpx"
)

// Fanout is a notification addressed to several users at once.
type Fanout struct {
	UserIDs []int64 `json:"user_ids"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Type    string  `json:"type"`
}

// Publisher hands fan-outs to the background outbox.
type Publisher interface {
	PublishNotification(ctx context.Context, f Fanout) error
}

// Service dispatches and serves notifications.
type Service struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
	printer   *message.Printer
}

// NewService constructs a Service. publisher may be nil, in which case
// fan-outs are written synchronously.
func NewService(repo Repository, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		printer:   message.NewPrinter(language.English),
	}
}

// Notify dispatches a fan-out best-effort; failures are logged and swallowed.
func (s *Service) Notify(ctx context.Context, f Fanout) {
	if len(f.UserIDs) == 0 {
		return
	}
	if f.Type == "" {
		f.Type = TypeInfo
	}
	var err error
	if s.publisher != nil {
		err = s.publisher.PublishNotification(ctx, f)
	} else {
		err = s.Deliver(ctx, f)
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("dispatch notification", slog.String("title", f.Title), slog.Any("error", err))
	}
}

// FormatAmount renders a monetary amount with thousands separators for use
// in notification messages.
func (s *Service) FormatAmount(amount float64) string {
	return s.printer.Sprintf("%.2f", amount)
}

// Deliver writes one inbox row per recipient. Used by the worker when
// draining the outbox; a failed recipient fails the task so the queue
// retries.
func (s *Service) Deliver(ctx context.Context, f Fanout) error {
	for _, userID := range f.UserIDs {
		n := Notification{UserID: userID, Title: f.Title, Message: f.Message, Type: f.Type}
		if err := s.repo.Insert(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// ListForUser returns a user's inbox.
func (s *Service) ListForUser(ctx context.Context, userID int64, unreadOnly bool, limit int) ([]Notification, error) {
	return s.repo.ListForUser(ctx, userID, unreadOnly, limit)
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	ok, err := s.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if !ok {
		return httpx.ErrNotFound
	}
	return nil
}
