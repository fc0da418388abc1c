package notification

import (
	"context"
	"testing"
	"time"

	"github.com/flexprice/planshift/internal/config"
	"github.com/flexprice/planshift/internal/logger"
	"github.com/flexprice/planshift/internal/pubsub/memory"
	"github.com/flexprice/planshift/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisherPublishesEvent(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := logger.NewNoopLogger()
	ps := memory.NewPubSub(log)
	defer ps.Close()

	cfg := config.GetDefaultConfig()
	cfg.Notification.Enabled = true

	messages, err := ps.Subscribe(ctx, cfg.Notification.Topic)
	require.NoError(t, err)

	sender := NewPublisher(ps, cfg, log)
	err = sender.Notify(ctx, "sub_1", types.NotificationEventPlanMigrated, map[string]any{
		"migration_id": "mig_1",
	})
	require.NoError(t, err)

	select {
	case msg := <-messages:
		msg.Ack()
		var event Event
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		assert.Equal(t, "sub_1", event.SubscriptionID)
		assert.Equal(t, types.NotificationEventPlanMigrated, event.EventType)
		assert.Equal(t, "mig_1", event.Payload["migration_id"])
		assert.Equal(t, types.NotificationEventPlanMigrated, msg.Metadata.Get("event_type"))
	case <-ctx.Done():
		t.Fatal("notification was not published")
	}
}

func TestDisabledPublisherDropsEvents(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Notification.Enabled = false

	sender := NewPublisher(nil, cfg, logger.NewNoopLogger())
	assert.NoError(t, sender.Notify(context.Background(), "sub_1", types.NotificationEventPlanMigrated, nil))
}
