package services

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
	apperrors "github.com/nowaiting/clinic-console/pkg/errors"
)

// UpdateKind discriminates the updates a console session receives
type UpdateKind string

const (
	// UpdateKindQueue carries a freshly ordered queue generation
	UpdateKindQueue UpdateKind = "queue"

	// UpdateKindPointer carries the echoed "now serving" number
	UpdateKindPointer UpdateKind = "pointer"

	// UpdateKindNotification carries a doctor message notification
	UpdateKindNotification UpdateKind = "notification"
)

// ConsoleUpdate is one derived-state update emitted by a synchronizer
// session toward the rendering layer.
type ConsoleUpdate struct {
	Kind         UpdateKind             `json:"kind"`
	Entries      []*entities.QueueEntry `json:"entries,omitempty"`
	Stats        QueueStats             `json:"stats,omitempty"`
	Events       []*entities.QueueEvent `json:"events,omitempty"`
	CurrentOrder int                    `json:"currentOrder,omitempty"`
	Notification *entities.QueueEvent   `json:"notification,omitempty"`
}

// QueueLister is the slice of the queue repository a session needs to load
// the scope's current entries when it connects.
type QueueLister interface {
	ListByScope(ctx context.Context, scope entities.Scope) ([]*entities.QueueEntry, error)
}

// QueueSynchronizer owns one console session: a live subscription to a
// scope's entry collection, order pointer and the operator's message feed.
// All session state (previous-generation baseline, seen-set) lives on the
// instance, so concurrent sessions for different scopes never
// cross-contaminate. All derived-state mutation happens sequentially inside
// Run's event loop; no locks guard the baseline.
type QueueSynchronizer struct {
	feed        providers.ChangeFeed
	store       QueueLister
	scope       entities.Scope
	assistantID string

	baseline map[string]*entities.QueueEntry
	seen     *SeenSet

	updates chan *ConsoleUpdate
	logger  zerolog.Logger
}

// NewQueueSynchronizer creates a session for one scope and operator. The
// assistant id may be empty, in which case the message feed is not
// subscribed.
func NewQueueSynchronizer(feed providers.ChangeFeed, store QueueLister, scope entities.Scope, assistantID string) *QueueSynchronizer {
	return &QueueSynchronizer{
		feed:        feed,
		store:       store,
		scope:       scope,
		assistantID: assistantID,
		seen:        NewSeenSet(),
		updates:     make(chan *ConsoleUpdate, 16),
		logger: observability.GetLogger().With().
			Str("component", "queue_synchronizer").
			Str("scope", scope.Key()).
			Logger(),
	}
}

// Updates returns the channel of derived-state updates. It closes when Run
// returns; a closed channel with a non-nil Run error means the session died
// on a subscription fault and the caller should re-subscribe from scratch.
func (s *QueueSynchronizer) Updates() <-chan *ConsoleUpdate {
	return s.updates
}

// Run subscribes the three feeds and processes them in one event loop until
// the context is cancelled or a subscription faults. Faults are fatal for
// the scope: partial data is never presented, the whole session ends.
func (s *QueueSynchronizer) Run(ctx context.Context) error {
	defer close(s.updates)

	queueCh, err := s.feed.SubscribeQueue(ctx, s.scope)
	if err != nil {
		return apperrors.NewSubscriptionError("failed to subscribe to queue feed", err)
	}

	pointerCh, err := s.feed.SubscribeOrderPointer(ctx, s.scope)
	if err != nil {
		return apperrors.NewSubscriptionError("failed to subscribe to order pointer feed", err)
	}

	// A nil channel blocks forever in select, which is exactly what we
	// want when no assistant is attached to the session.
	var messageCh <-chan *entities.DoctorMessage
	if s.assistantID != "" {
		messageCh, err = s.feed.SubscribeMessages(ctx, s.assistantID)
		if err != nil {
			return apperrors.NewSubscriptionError("failed to subscribe to message feed", err)
		}
	}

	// Subscriptions are open before the initial load, so a write landing in
	// between is seen by its echo and the redundant re-observation is
	// absorbed by the delta rules. The load establishes the baseline: bills
	// already pending at connect time render without notifying, and the
	// first post-connect echo is diffed against real prior state.
	entries, err := s.store.ListByScope(ctx, s.scope)
	if err != nil {
		return apperrors.NewSubscriptionError("failed to load initial queue state", err)
	}
	initial := &entities.QueueSnapshot{Scope: s.scope, Entries: entries}
	if !s.emit(ctx, s.applySnapshot(initial)) {
		return nil
	}

	s.logger.Info().Msg("console session started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("console session closed")
			return nil

		case snapshot, ok := <-queueCh:
			if !ok {
				return apperrors.NewSubscriptionError("queue feed closed unexpectedly", nil)
			}
			if !s.emit(ctx, s.applySnapshot(snapshot)) {
				return nil
			}

		case pointer, ok := <-pointerCh:
			if !ok {
				return apperrors.NewSubscriptionError("order pointer feed closed unexpectedly", nil)
			}
			update := &ConsoleUpdate{Kind: UpdateKindPointer, CurrentOrder: pointer.CurrentOrder}
			if !s.emit(ctx, update) {
				return nil
			}

		case msg, ok := <-messageCh:
			if !ok {
				return apperrors.NewSubscriptionError("message feed closed unexpectedly", nil)
			}
			update := s.applyMessage(msg)
			if update != nil && !s.emit(ctx, update) {
				return nil
			}
		}
	}
}

// applySnapshot derives the ordered generation and its delta events, then
// replaces the baseline unconditionally (including on first observation).
func (s *QueueSynchronizer) applySnapshot(snapshot *entities.QueueSnapshot) *ConsoleUpdate {
	ordered := OrderEntries(snapshot.Entries)

	var fresh []*entities.QueueEvent
	for _, event := range DetectBillAdded(s.baseline, ordered) {
		if s.seen.MarkSeen(event.DedupKey()) {
			continue
		}
		fresh = append(fresh, event)
	}

	s.baseline = Baseline(ordered)

	if len(fresh) > 0 {
		s.logger.Info().Int("events", len(fresh)).Msg("new pending bills detected")
	}

	return &ConsoleUpdate{
		Kind:    UpdateKindQueue,
		Entries: ordered,
		Stats:   Stats(ordered),
		Events:  fresh,
	}
}

// applyMessage filters and dedups one doctor message; nil means suppressed.
func (s *QueueSynchronizer) applyMessage(msg *entities.DoctorMessage) *ConsoleUpdate {
	if !msg.Notifiable() {
		return nil
	}

	event := entities.NewDoctorMessageEvent(msg)
	if s.seen.MarkSeen(event.DedupKey()) {
		return nil
	}

	s.logger.Info().Str("doctor", msg.DoctorName).Msg("doctor message received")
	return &ConsoleUpdate{Kind: UpdateKindNotification, Notification: event}
}

// emit delivers an update; false means the context ended mid-delivery.
func (s *QueueSynchronizer) emit(ctx context.Context, update *ConsoleUpdate) bool {
	select {
	case s.updates <- update:
		return true
	case <-ctx.Done():
		return false
	}
}
