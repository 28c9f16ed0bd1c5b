package events

import (
	"workshop/internal/logger"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const memoryBuffer = 100

// NewMemoryFeed keeps events inside the process. Subscribers only see events
// published after they subscribed.
func NewMemoryFeed(topic string, log *logger.Logger) Feed {
	ps := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer: memoryBuffer,
		},
		newLogAdapter(log),
	)

	return &watermillFeed{
		publisher:  ps,
		subscriber: ps,
		topic:      topic,
		logger:     log,
	}
}
