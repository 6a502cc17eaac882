package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campus-insight/student-records-api/pkg/config"
	"github.com/campus-insight/student-records-api/pkg/jobs"
)

// Topics, one per record-store table.
const (
	TopicStudents         = "students"
	TopicApprovalRequests = "approval_requests"
	TopicProfiles         = "profiles"
)

// AllTopics returns every known topic.
func AllTopics() []string {
	return []string{TopicStudents, TopicApprovalRequests, TopicProfiles}
}

// Handler reacts to a change notification. The notification carries no
// payload beyond the topic: consumers re-query the full data set.
type Handler func(topic string)

// Publisher pushes a topic ping onto the transport.
type Publisher interface {
	Publish(ctx context.Context, channel string) error
}

type redisPublisher struct {
	client *redis.Client
}

func (p redisPublisher) Publish(ctx context.Context, channel string) error {
	return p.client.Publish(ctx, channel, "1").Err()
}

// Notifier fans out coarse change notifications over Redis pub/sub. Publishes
// go through a worker queue so a transient Redis failure retries off the
// request path; delivery is therefore at-least-once and handlers must be
// idempotent (a full re-fetch qualifies).
type Notifier struct {
	client    *redis.Client
	publisher Publisher
	queue     *jobs.Queue
	prefix    string
	enabled   bool
	logger    *zap.Logger
}

// Option configures the notifier.
type Option func(*Notifier)

// WithPublisher overrides the transport, used by tests.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) {
		if p != nil {
			n.publisher = p
		}
	}
}

// NewNotifier constructs a notifier backed by the given Redis client.
func NewNotifier(client *redis.Client, cfg config.NotifierConfig, logger *zap.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := cfg.ChannelPrefix
	if prefix == "" {
		prefix = "changes"
	}
	n := &Notifier{
		client:  client,
		prefix:  prefix,
		enabled: cfg.Enabled,
		logger:  logger,
	}
	if client != nil {
		n.publisher = redisPublisher{client: client}
	}
	for _, opt := range opts {
		if opt != nil {
			opt(n)
		}
	}
	n.queue = jobs.NewQueue("notifier", n.dispatch, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.PublishRetries,
		Logger:     logger,
	})
	return n
}

// Start launches the publish workers.
func (n *Notifier) Start(ctx context.Context) {
	n.queue.Start(ctx)
}

// Stop drains the publish workers.
func (n *Notifier) Stop() {
	n.queue.Stop()
}

// Publish schedules a change ping for the topic. Errors enqueueing are
// logged, not returned: a missed notification degrades freshness, never
// correctness, because consumers re-query on their own navigation anyway.
func (n *Notifier) Publish(ctx context.Context, topic string) {
	if !n.enabled || n.publisher == nil {
		return
	}
	err := n.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    "publish",
		Payload: topic,
	})
	if err != nil {
		n.logger.Warn("failed to enqueue change notification", zap.String("topic", topic), zap.Error(err))
	}
}

func (n *Notifier) dispatch(ctx context.Context, job jobs.Job) error {
	topic, ok := job.Payload.(string)
	if !ok {
		return fmt.Errorf("notifier job %s has non-string payload", job.ID)
	}
	return n.publisher.Publish(ctx, n.channel(topic))
}

func (n *Notifier) channel(topic string) string {
	return n.prefix + ":" + topic
}

// Subscription is a handle for one active topic subscription.
type Subscription struct {
	topic  string
	pubsub *redis.PubSub
	cancel context.CancelFunc
	once   sync.Once
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() string {
	return s.topic
}

// Close stops delivery and releases the underlying channel.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.pubsub.Close()
	})
	return err
}

// Subscribe registers a handler for a topic. The handler runs on a dedicated
// goroutine until the subscription is closed or the context ends.
func (n *Notifier) Subscribe(ctx context.Context, topic string, handler Handler) (*Subscription, error) {
	if n.client == nil {
		return nil, fmt.Errorf("notifier has no subscription transport")
	}
	subCtx, cancel := context.WithCancel(ctx)
	pubsub := n.client.Subscribe(subCtx, n.channel(topic))

	sub := &Subscription{topic: topic, pubsub: pubsub, cancel: cancel}
	go func() {
		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				handler(topic)
			}
		}
	}()
	return sub, nil
}
