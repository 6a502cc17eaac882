package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campus-insight/student-records-api/pkg/config"
)

type publisherStub struct {
	mu       sync.Mutex
	channels []string
	failures int
}

func (p *publisherStub) Publish(ctx context.Context, channel string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("transport down")
	}
	p.channels = append(p.channels, channel)
	return nil
}

func (p *publisherStub) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.channels...)
}

func TestNotifierPublishesPrefixedChannel(t *testing.T) {
	stub := &publisherStub{}
	n := NewNotifier(nil, config.NotifierConfig{Enabled: true, ChannelPrefix: "changes"}, nil, WithPublisher(stub))
	n.Start(context.Background())
	defer n.Stop()

	n.Publish(context.Background(), TopicStudents)

	require.Eventually(t, func() bool {
		got := stub.published()
		return len(got) == 1 && got[0] == "changes:students"
	}, time.Second, 10*time.Millisecond)
}

func TestNotifierRetriesFailedPublish(t *testing.T) {
	stub := &publisherStub{failures: 1}
	n := NewNotifier(nil, config.NotifierConfig{Enabled: true, PublishRetries: 3}, nil, WithPublisher(stub))
	n.Start(context.Background())
	defer n.Stop()

	n.Publish(context.Background(), TopicApprovalRequests)

	require.Eventually(t, func() bool {
		got := stub.published()
		return len(got) == 1 && got[0] == "changes:approval_requests"
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNotifierDisabledDropsPublishes(t *testing.T) {
	stub := &publisherStub{}
	n := NewNotifier(nil, config.NotifierConfig{Enabled: false}, nil, WithPublisher(stub))
	n.Start(context.Background())
	defer n.Stop()

	n.Publish(context.Background(), TopicStudents)
	time.Sleep(50 * time.Millisecond)
	require.Empty(t, stub.published())
}

func TestNotifierSubscribeRequiresTransport(t *testing.T) {
	n := NewNotifier(nil, config.NotifierConfig{Enabled: true}, nil)
	_, err := n.Subscribe(context.Background(), TopicStudents, func(string) {})
	require.Error(t, err)
}
