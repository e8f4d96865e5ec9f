package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nowaiting/clinic-console/internal/domain/entities"
	"github.com/nowaiting/clinic-console/internal/domain/providers"
	redisclient "github.com/nowaiting/clinic-console/internal/infrastructure/clients/redis"
	"github.com/nowaiting/clinic-console/internal/infrastructure/observability"
)

// RedisChangeFeed implements the ChangeFeed interface over Redis Pub/Sub.
// Writers publish full documents; every subscriber of a channel receives
// every message. Delivery is at-most-once per connection but the broker may
// still hand a reconnecting client overlapping history, so consumers treat
// the stream as replayable.
type RedisChangeFeed struct {
	client        *redisclient.Client
	subscriptions map[string]*redis.PubSub
	subscribers   map[string]map[chan []byte]struct{}
	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	logger        zerolog.Logger
}

// NewRedisChangeFeed creates a new Redis-backed change feed.
func NewRedisChangeFeed(client *redisclient.Client) *RedisChangeFeed {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisChangeFeed{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
		subscribers:   make(map[string]map[chan []byte]struct{}),
		ctx:           ctx,
		cancel:        cancel,
		logger:        observability.GetLogger().With().Str("component", "change_feed").Logger(),
	}
}

// SubscribeQueue subscribes to a scope's full-collection snapshots.
func (f *RedisChangeFeed) SubscribeQueue(ctx context.Context, scope entities.Scope) (<-chan *entities.QueueSnapshot, error) {
	raw, err := f.subscribeRaw(ctx, providers.QueueChannel(scope))
	if err != nil {
		return nil, err
	}

	out := make(chan *entities.QueueSnapshot, 100)
	go decodeLoop(ctx, raw, out, f.logger)
	return out, nil
}

// SubscribeOrderPointer subscribes to a scope's pointer document.
func (f *RedisChangeFeed) SubscribeOrderPointer(ctx context.Context, scope entities.Scope) (<-chan *entities.OrderPointerSnapshot, error) {
	raw, err := f.subscribeRaw(ctx, providers.OrderPointerChannel(scope))
	if err != nil {
		return nil, err
	}

	out := make(chan *entities.OrderPointerSnapshot, 100)
	go decodeLoop(ctx, raw, out, f.logger)
	return out, nil
}

// SubscribeMessages subscribes to an assistant's doctor message feed.
func (f *RedisChangeFeed) SubscribeMessages(ctx context.Context, assistantID string) (<-chan *entities.DoctorMessage, error) {
	raw, err := f.subscribeRaw(ctx, providers.MessageChannel(assistantID))
	if err != nil {
		return nil, err
	}

	out := make(chan *entities.DoctorMessage, 100)
	go decodeLoop(ctx, raw, out, f.logger)
	return out, nil
}

// PublishQueue broadcasts a scope's refreshed full snapshot.
func (f *RedisChangeFeed) PublishQueue(ctx context.Context, snapshot *entities.QueueSnapshot) error {
	return f.publishRaw(ctx, providers.QueueChannel(snapshot.Scope), snapshot)
}

// PublishOrderPointer broadcasts a scope's pointer document.
func (f *RedisChangeFeed) PublishOrderPointer(ctx context.Context, scope entities.Scope, snapshot *entities.OrderPointerSnapshot) error {
	return f.publishRaw(ctx, providers.OrderPointerChannel(scope), snapshot)
}

// PublishMessage broadcasts a doctor-to-assistant message.
func (f *RedisChangeFeed) PublishMessage(ctx context.Context, msg *entities.DoctorMessage) error {
	return f.publishRaw(ctx, providers.MessageChannel(msg.AssistantID), msg)
}

// decodeLoop turns raw payloads into typed documents until the raw channel
// closes, then closes the typed channel so consumers observe the fault.
func decodeLoop[T any](ctx context.Context, raw <-chan []byte, out chan<- *T, logger zerolog.Logger) {
	defer close(out)
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-raw:
			if !ok {
				return
			}
			doc := new(T)
			if err := json.Unmarshal(data, doc); err != nil {
				logger.Error().Err(err).Msg("dropping undecodable feed document")
				continue
			}
			select {
			case out <- doc:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (f *RedisChangeFeed) publishRaw(ctx context.Context, channel string, doc interface{}) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal feed document: %w", err)
	}

	if err := f.client.Client().Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	f.logger.Debug().Str("channel", channel).Msg("published feed document")
	return nil
}

func (f *RedisChangeFeed) subscribeRaw(ctx context.Context, channel string) (<-chan []byte, error) {
	f.mu.Lock()

	if _, exists := f.subscriptions[channel]; !exists {
		pubsub := f.client.Subscribe(f.ctx, channel)
		f.subscriptions[channel] = pubsub
		go f.receiveMessages(channel, pubsub)
	}

	if f.subscribers[channel] == nil {
		f.subscribers[channel] = make(map[chan []byte]struct{})
	}

	rawChan := make(chan []byte, 100)
	f.subscribers[channel][rawChan] = struct{}{}
	subscriberCount := len(f.subscribers[channel])
	f.mu.Unlock()

	f.logger.Debug().Str("channel", channel).Int("subscribers", subscriberCount).Msg("subscribed")

	go func() {
		<-ctx.Done()
		f.removeSubscriber(channel, rawChan)
	}()

	return rawChan, nil
}

// receiveMessages fans one Redis subscription out to local subscribers.
func (f *RedisChangeFeed) receiveMessages(channel string, pubsub *redis.PubSub) {
	defer func() {
		if err := f.cleanupChannel(channel); err != nil {
			f.logger.Error().Err(err).Str("channel", channel).Msg("failed to cleanup channel")
		}
	}()

	ch := pubsub.Channel()
	for {
		select {
		case <-f.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			f.mu.RLock()
			for subscriber := range f.subscribers[channel] {
				select {
				case subscriber <- []byte(msg.Payload):
				default:
					// Subscriber channel full, skip document
					f.logger.Warn().Str("channel", channel).Msg("subscriber channel full, skipping document")
				}
			}
			f.mu.RUnlock()
		}
	}
}

func (f *RedisChangeFeed) removeSubscriber(channel string, rawChan chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers, exists := f.subscribers[channel]
	if !exists {
		return
	}

	if _, ok := subscribers[rawChan]; !ok {
		return
	}

	delete(subscribers, rawChan)
	close(rawChan)

	if len(subscribers) == 0 {
		delete(f.subscribers, channel)
		if pubsub, ok := f.subscriptions[channel]; ok {
			_ = pubsub.Close()
			delete(f.subscriptions, channel)
			f.logger.Debug().Str("channel", channel).Msg("closed channel subscription")
		}
	}
}

func (f *RedisChangeFeed) cleanupChannel(channel string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	subscribers, exists := f.subscribers[channel]
	if exists {
		for subscriber := range subscribers {
			close(subscriber)
		}
		delete(f.subscribers, channel)
	}

	if pubsub, ok := f.subscriptions[channel]; ok {
		if err := pubsub.Close(); err != nil {
			return fmt.Errorf("failed to close subscription %s: %w", channel, err)
		}
		delete(f.subscriptions, channel)
	}

	return nil
}

// Close tears down every subscription.
func (f *RedisChangeFeed) Close() error {
	f.cancel()

	f.mu.RLock()
	channels := make([]string, 0, len(f.subscriptions))
	for channel := range f.subscriptions {
		channels = append(channels, channel)
	}
	f.mu.RUnlock()

	var errs []error
	for _, channel := range channels {
		if err := f.cleanupChannel(channel); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing change feed: %v", errs)
	}

	f.logger.Info().Msg("change feed closed")
	return nil
}
