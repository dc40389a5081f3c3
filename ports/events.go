package ports

import (
	"context"

	"github.com/Gladiston-Porto/Trading-APP-sub001/core"
)

// EventPublisher publishes authentication events for other services
type EventPublisher interface {
	Publish(ctx context.Context, event core.Event) error
}
