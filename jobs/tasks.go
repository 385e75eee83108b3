// Package jobs carries the background side of the application: the outbox
// tasks for activity log entries and notification fan-outs, and the nightly
// invoice purge.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/notifications"
)

const (
	// QueueDefault is the queue all tasks run on.
	QueueDefault = "default"
	// TaskActivityRecord persists one activity log entry.
	TaskActivityRecord = "activity:record"
	// TaskNotificationFanout delivers a notification to a set of users.
	TaskNotificationFanout = "notification:fanout"
	// TaskInvoicePurge hard-deletes invoices past the retention window.
	TaskInvoicePurge = "invoice:purge"
)

// InvoicePurgePayload parameterizes the purge task.
type InvoicePurgePayload struct {
	RetentionHours int `json:"retention_hours"`
}

// NewActivityRecordTask wraps an activity entry for the queue.
func NewActivityRecordTask(entry audit.Entry) (*asynq.Task, error) {
	data, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityRecord, data), nil
}

// NewNotificationFanoutTask wraps a notification fan-out for the queue.
func NewNotificationFanoutTask(f notifications.Fanout) (*asynq.Task, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationFanout, data), nil
}

// NewInvoicePurgeTask wraps the purge parameters for the scheduler.
func NewInvoicePurgeTask(payload InvoicePurgePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvoicePurge, data), nil
}

// ActivityWriter is the synchronous write side of the activity log.
type ActivityWriter interface {
	Write(ctx context.Context, entry audit.Entry) error
}

// NotificationDeliverer is the synchronous delivery side of notifications.
type NotificationDeliverer interface {
	Deliver(ctx context.Context, f notifications.Fanout) error
}

// InvoicePurger removes soft-deleted invoices past the retention window.
type InvoicePurger interface {
	PurgeSoftDeleted(ctx context.Context, retention time.Duration) (int64, error)
}

// HandleActivityRecord builds the handler persisting queued activity
// entries. A malformed payload is dropped, not retried.
func HandleActivityRecord(writer ActivityWriter) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var entry audit.Entry
		if err := json.Unmarshal(t.Payload(), &entry); err != nil {
			return asynq.SkipRetry
		}
		return writer.Write(ctx, entry)
	}
}

// HandleNotificationFanout builds the handler delivering queued fan-outs.
func HandleNotificationFanout(deliverer NotificationDeliverer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var f notifications.Fanout
		if err := json.Unmarshal(t.Payload(), &f); err != nil {
			return asynq.SkipRetry
		}
		return deliverer.Deliver(ctx, f)
	}
}

// HandleInvoicePurge builds the nightly retention handler.
func HandleInvoicePurge(purger InvoicePurger, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload InvoicePurgePayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		purged, err := purger.PurgeSoftDeleted(ctx, time.Duration(payload.RetentionHours)*time.Hour)
		if err != nil {
			return err
		}
		if logger != nil {
			logger.Info("invoice purge", slog.Int64("purged", purged))
		}
		return nil
	}
}
