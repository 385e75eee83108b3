package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/audit"
	"github.com/meridian-erp/meridian/internal/notifications"
)

type recordingWriter struct{ entries []audit.Entry }

func (r *recordingWriter) Write(_ context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

type recordingDeliverer struct{ fanouts []notifications.Fanout }

func (r *recordingDeliverer) Deliver(_ context.Context, f notifications.Fanout) error {
	r.fanouts = append(r.fanouts, f)
	return nil
}

type recordingPurger struct{ retention time.Duration }

func (r *recordingPurger) PurgeSoftDeleted(_ context.Context, retention time.Duration) (int64, error) {
	r.retention = retention
	return 2, nil
}

func TestActivityRecordRoundTrip(t *testing.T) {
	actor := int64(5)
	entry := audit.Entry{
		ActorID:  &actor,
		Action:   "quotation.create",
		Entity:   "quotation",
		EntityID: "12",
		Meta:     map[string]any{"number": "QUO-2025-0001"},
		At:       time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC),
	}
	task, err := NewActivityRecordTask(entry)
	require.NoError(t, err)
	assert.Equal(t, TaskActivityRecord, task.Type())

	writer := &recordingWriter{}
	require.NoError(t, HandleActivityRecord(writer)(context.Background(), task))
	require.Len(t, writer.entries, 1)
	assert.Equal(t, "quotation.create", writer.entries[0].Action)
	require.NotNil(t, writer.entries[0].ActorID)
	assert.Equal(t, actor, *writer.entries[0].ActorID)
}

func TestActivityRecordSkipsMalformedPayload(t *testing.T) {
	writer := &recordingWriter{}
	err := HandleActivityRecord(writer)(context.Background(),
		asynq.NewTask(TaskActivityRecord, []byte("not json")))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, writer.entries)
}

func TestNotificationFanoutRoundTrip(t *testing.T) {
	task, err := NewNotificationFanoutTask(notifications.Fanout{
		UserIDs: []int64{1, 2},
		Title:   "Quotation converted",
		Message: "Quotation QUO-2025-0001 became sales order SO-2025-0042",
		Type:    notifications.TypeSuccess,
	})
	require.NoError(t, err)

	deliverer := &recordingDeliverer{}
	require.NoError(t, HandleNotificationFanout(deliverer)(context.Background(), task))
	require.Len(t, deliverer.fanouts, 1)
	assert.Equal(t, []int64{1, 2}, deliverer.fanouts[0].UserIDs)
}

func TestInvoicePurgePassesRetention(t *testing.T) {
	task, err := NewInvoicePurgeTask(InvoicePurgePayload{RetentionHours: 48})
	require.NoError(t, err)

	purger := &recordingPurger{}
	require.NoError(t, HandleInvoicePurge(purger, nil)(context.Background(), task))
	assert.Equal(t, 48*time.Hour, purger.retention)
}
