package remote

import (
	"fmt"
	"sync"

	"github.com/nerrad567/devspace-core/internal/infrastructure/mqtt"
)

// Subscriber is the part of *mqtt.Client the Feed needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Feed receives board output published over MQTT, for boards that push
// their console instead of running under a Runner. Each message payload
// is one chunk.
type Feed struct {
	sub     Subscriber
	topic   string
	qos     byte
	handler ChunkHandler
	logger  Logger

	mu       sync.Mutex
	active   bool
	messages int
}

// NewFeed creates a feed on topic that passes payloads to handler.
func NewFeed(sub Subscriber, topic string, qos byte, handler ChunkHandler) *Feed {
	if handler == nil {
		handler = func(string) {}
	}
	return &Feed{
		sub:     sub,
		topic:   topic,
		qos:     qos,
		handler: handler,
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the feed.
func (f *Feed) SetLogger(logger Logger) {
	f.logger = logger
}

// Start subscribes to the feed topic.
func (f *Feed) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.active {
		return nil
	}

	if err := f.sub.Subscribe(f.topic, f.qos, f.onMessage); err != nil {
		return fmt.Errorf("subscribing to %s: %w", f.topic, err)
	}
	f.active = true
	f.logger.Info("remote output feed subscribed", "topic", f.topic)
	return nil
}

// Stop unsubscribes. It is safe to call more than once.
func (f *Feed) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return nil
	}
	f.active = false
	if err := f.sub.Unsubscribe(f.topic); err != nil {
		return fmt.Errorf("unsubscribing from %s: %w", f.topic, err)
	}
	return nil
}

// Messages returns the number of chunks received.
func (f *Feed) Messages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}

func (f *Feed) onMessage(topic string, payload []byte) error {
	f.mu.Lock()
	f.messages++
	f.mu.Unlock()

	if len(payload) == 0 {
		return nil
	}
	f.logger.Debug("remote output received", "topic", topic, "bytes", len(payload))
	f.handler(string(payload))
	return nil
}
