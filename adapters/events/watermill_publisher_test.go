package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gladiston-Porto/Trading-APP-sub001/adapters/events"
	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

func TestWatermillPublisher_Publish(t *testing.T) {
	pubSub := events.NewInProcessPubSub(watermill.NopLogger{})
	publisher := events.NewWatermillPublisher(pubSub, "")
	t.Cleanup(func() { _ = publisher.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	topic := publisher.Topic(core.EventUserLoggedIn)
	assert.Equal(t, "tradeauth.user.logged_in", topic)

	messages, err := pubSub.Subscribe(ctx, topic)
	require.NoError(t, err)

	event := core.Event{
		Type:       core.EventUserLoggedIn,
		IdentityID: "user-1",
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, string(core.EventUserLoggedIn), msg.Metadata.Get("event_type"))

		var got core.Event
		require.NoError(t, json.Unmarshal(msg.Payload, &got))
		assert.Equal(t, event.IdentityID, got.IdentityID)
		assert.True(t, event.OccurredAt.Equal(got.OccurredAt))
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestWatermillPublisher_CustomPrefix(t *testing.T) {
	publisher := events.NewWatermillPublisher(events.NewInProcessPubSub(watermill.NopLogger{}), "audit.")
	assert.Equal(t, "audit.token.refreshed", publisher.Topic(core.EventTokenRefreshed))
}
