package dispatch

import (
	"fmt"

	"github.com/dmitrymomot/notifykit/pkg/notification"
	"github.com/dmitrymomot/notifykit/pkg/queue"
)

// QueueManager owns one enqueuer per delivery channel. Queue names are
// the channel names, so a job's Queue field always identifies the
// effective channel it will be delivered on.
type QueueManager struct {
	enqueuers map[notification.Channel]*queue.Enqueuer
}

// NewQueueManager creates enqueuers for all supported channels on top of
// one shared job repository.
func NewQueueManager(repo queue.EnqueuerRepository) (*QueueManager, error) {
	if repo == nil {
		return nil, queue.ErrRepositoryNil
	}

	channels := []notification.Channel{
		notification.ChannelEmail,
		notification.ChannelSMS,
		notification.ChannelPush,
	}

	enqueuers := make(map[notification.Channel]*queue.Enqueuer, len(channels))
	for _, ch := range channels {
		enq, err := queue.NewEnqueuer(repo, string(ch))
		if err != nil {
			return nil, fmt.Errorf("failed to create enqueuer for channel %s: %w", ch, err)
		}
		enqueuers[ch] = enq
	}

	return &QueueManager{enqueuers: enqueuers}, nil
}

// Enqueuer returns the enqueuer for a channel.
func (m *QueueManager) Enqueuer(ch notification.Channel) (*queue.Enqueuer, error) {
	enq, ok := m.enqueuers[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
	return enq, nil
}
