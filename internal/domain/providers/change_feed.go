package providers

import (
	"context"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
)

// ChangeFeed defines the interface to the remote document feed. Subscribers
// receive full snapshots, never diffs; the feed may redeliver or reorder
// snapshots freely, and the synchronizer is responsible for making that
// safe. Publish methods are the write half used by the store adapters to
// echo authoritative state back to every subscriber.
type ChangeFeed interface {
	// SubscribeQueue subscribes to full-collection snapshots for a scope.
	// The returned channel closes when the subscription ends; closure
	// without context cancellation means a subscription fault.
	SubscribeQueue(ctx context.Context, scope entities.Scope) (<-chan *entities.QueueSnapshot, error)

	// SubscribeOrderPointer subscribes to the scope's pointer document.
	SubscribeOrderPointer(ctx context.Context, scope entities.Scope) (<-chan *entities.OrderPointerSnapshot, error)

	// SubscribeMessages subscribes to the doctor-to-assistant message feed
	// for one assistant.
	SubscribeMessages(ctx context.Context, assistantID string) (<-chan *entities.DoctorMessage, error)

	// PublishQueue broadcasts a scope's refreshed full snapshot.
	PublishQueue(ctx context.Context, snapshot *entities.QueueSnapshot) error

	// PublishOrderPointer broadcasts a scope's pointer document.
	PublishOrderPointer(ctx context.Context, scope entities.Scope, snapshot *entities.OrderPointerSnapshot) error

	// PublishMessage broadcasts a doctor-to-assistant message.
	PublishMessage(ctx context.Context, msg *entities.DoctorMessage) error

	// Close tears down every subscription.
	Close() error
}

// Channel name prefixes for the feed
const (
	queueChannelPrefix   = "queue:"
	pointerChannelPrefix = "order:"
	messageChannelPrefix = "messages:"
)

// QueueChannel returns the channel name for a scope's entry collection.
func QueueChannel(scope entities.Scope) string {
	return queueChannelPrefix + scope.Key()
}

// OrderPointerChannel returns the channel name for a scope's pointer.
func OrderPointerChannel(scope entities.Scope) string {
	return pointerChannelPrefix + scope.Key()
}

// MessageChannel returns the channel name for an assistant's message feed.
func MessageChannel(assistantID string) string {
	return messageChannelPrefix + assistantID
}
