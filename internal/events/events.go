package events

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/SAP-F-2025/auth-service/internal/models"
)

const (
	EventSource  = "auth-service"
	EventVersion = "1.0"
)

// Auth audit event types
const (
	UserRegistered     = "user.registered"
	UserLoggedIn       = "user.logged_in"
	UserLoginFailed    = "user.login_failed"
	UserTokenRefreshed = "user.token_refreshed"
	UserLoggedOut      = "user.logged_out"
	UserRoleChanged    = "user.role_changed"
	UserStatusChanged  = "user.status_changed"
	UserDeleted        = "user.deleted"
)

type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// UserEvent is the payload of every user.* event. Credentials are never included.
type UserEvent struct {
	UserID         string            `json:"userId,omitempty"`
	Email          string            `json:"email,omitempty"`
	Role           models.UserRole   `json:"role,omitempty"`
	Status         models.UserStatus `json:"status,omitempty"`
	PreviousRole   models.UserRole   `json:"previousRole,omitempty"`
	PreviousStatus models.UserStatus `json:"previousStatus,omitempty"`
	ActorID        string            `json:"actorId,omitempty"`
	Reason         string            `json:"reason,omitempty"`
}

func NewEvent(eventType string, data interface{}) *Event {
	return &Event{
		ID:        watermill.NewUUID(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventPublisher publishes audit events. Implementations must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
