package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/auth-service/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(UserRegistered, UserEvent{UserID: "u-1", Role: models.RoleStudent})

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, UserRegistered, event.Type)
	assert.Equal(t, EventSource, event.Source)
	assert.Equal(t, EventVersion, event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestWatermillEventPublisher_InProcess(t *testing.T) {
	publisher, pubSub := NewInProcessEventPublisher("auth.events", testLogger())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "auth.events")
	require.NoError(t, err)

	event := NewEvent(UserRoleChanged, UserEvent{UserID: "u-1", Role: models.RoleEducator, PreviousRole: models.RoleStudent})
	require.NoError(t, publisher.Publish(ctx, event))

	select {
	case msg := <-messages:
		msg.Ack()
		assert.Equal(t, event.ID, msg.UUID)
		assert.Equal(t, UserRoleChanged, msg.Metadata.Get("event_type"))

		var decoded struct {
			Type string    `json:"type"`
			Data UserEvent `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, UserRoleChanged, decoded.Type)
		assert.Equal(t, models.RoleEducator, decoded.Data.Role)
		assert.Equal(t, models.RoleStudent, decoded.Data.PreviousRole)
	case <-ctx.Done():
		t.Fatal("event was not delivered")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	require.NoError(t, mock.Publish(ctx, NewEvent(UserLoggedIn, UserEvent{UserID: "u-1"})))
	require.NoError(t, mock.Publish(ctx, NewEvent(UserLoginFailed, UserEvent{Reason: "invalid_credentials"})))

	assert.Len(t, mock.GetPublishedEvents(), 2)
	assert.Len(t, mock.EventsOfType(UserLoggedIn), 1)

	mock.ClearEvents()
	assert.Empty(t, mock.GetPublishedEvents())

	boom := errors.New("broker down")
	mock.FailWith(boom)
	assert.ErrorIs(t, mock.Publish(ctx, NewEvent(UserDeleted, nil)), boom)
}
