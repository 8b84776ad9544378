package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"main/utils"

	"github.com/redis/go-redis/v9"
)

// ChangeFeed is the realtime notification channel for session row changes,
// scoped per user. Publishing is best-effort: a lost event degrades to a
// stale list, never to a correctness problem.
type ChangeFeed interface {
	Publish(ctx context.Context, userID string, msg ChangeMessage) error
	Subscribe(ctx context.Context, userID string) (FeedSubscription, error)
}

type FeedSubscription interface {
	Messages() <-chan ChangeMessage
	Close() error
}

// GlobalSessionFeed is consulted by the session repository after every write.
var GlobalSessionFeed ChangeFeed

// RedisSessionFeed carries session change events over Redis pub/sub, one
// channel per user.
type RedisSessionFeed struct {
	client *redis.Client
}

func NewRedisSessionFeed(redisURL string) (*RedisSessionFeed, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}

	return &RedisSessionFeed{client: client}, nil
}

func feedChannel(userID string) string {
	return fmt.Sprintf("session_events:%s", userID)
}

func (f *RedisSessionFeed) Publish(ctx context.Context, userID string, msg ChangeMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal change message: %w", err)
	}

	if err := f.client.Publish(ctx, feedChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish change message: %w", err)
	}

	utils.TrackSessionEvent(msg.Op)
	return nil
}

func (f *RedisSessionFeed) Subscribe(ctx context.Context, userID string) (FeedSubscription, error) {
	pubsub := f.client.Subscribe(ctx, feedChannel(userID))

	// Force the subscription to be established before returning so callers
	// don't miss events published right after Subscribe.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	sub := &redisFeedSubscription{
		pubsub: pubsub,
		out:    make(chan ChangeMessage, 16),
		done:   make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

func (f *RedisSessionFeed) Close() error {
	return f.client.Close()
}

type redisFeedSubscription struct {
	pubsub *redis.PubSub
	out    chan ChangeMessage
	done   chan struct{}
	once   sync.Once
}

func (s *redisFeedSubscription) pump() {
	defer close(s.out)
	forwardChangeMessages(s.pubsub.Channel(), s.out, s.done)
}

// forwardChangeMessages decodes raw pub/sub payloads onto out until the
// input closes. A consumer that stopped draining must not park this
// goroutine forever, so a blocked send gives up as soon as done closes.
func forwardChangeMessages(in <-chan *redis.Message, out chan<- ChangeMessage, done <-chan struct{}) {
	for raw := range in {
		var msg ChangeMessage
		if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
			log.Printf("Warning: dropping malformed session event: %v", err)
			continue
		}
		select {
		case out <- msg:
		case <-done:
			return
		}
	}
}

func (s *redisFeedSubscription) Messages() <-chan ChangeMessage {
	return s.out
}

func (s *redisFeedSubscription) Close() error {
	s.once.Do(func() { close(s.done) })
	return s.pubsub.Close()
}

// PublishChange sends a change message through the global feed, logging
// failures instead of surfacing them.
func PublishChange(ctx context.Context, userID string, msg ChangeMessage) {
	if GlobalSessionFeed == nil {
		return
	}
	if err := GlobalSessionFeed.Publish(ctx, userID, msg); err != nil {
		utils.TrackError("feed", "publish_failed")
		log.Printf("Warning: failed to publish session event: %v", err)
	}
}
