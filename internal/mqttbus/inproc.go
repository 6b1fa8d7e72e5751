package mqttbus

import (
	"strings"
	"sync"
)

// InProcBus is an in-process Bus with no real network transport, used in
// tests and for the single-process tools that replay frames without a
// broker. Publishing a topic invokes every handler whose subscription
// topic matches, synchronously, on the publisher's goroutine. Subscription
// topics may use the standard MQTT wildcards ("+" for a single level, "#"
// as a trailing multi-level match) exactly as a real broker would.
type InProcBus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// NewInProcBus creates an empty in-process bus.
func NewInProcBus() *InProcBus {
	return &InProcBus{handlers: make(map[string][]Handler)}
}

// topicMatches reports whether topic satisfies the MQTT subscription
// pattern, supporting "+" (single level) and a trailing "#" (remaining
// levels).
func topicMatches(pattern, topic string) bool {
	pl := strings.Split(pattern, "/")
	tl := strings.Split(topic, "/")

	for i, p := range pl {
		if p == "#" {
			return true
		}
		if i >= len(tl) {
			return false
		}
		if p != "+" && p != tl[i] {
			return false
		}
	}
	return len(pl) == len(tl)
}

func (b *InProcBus) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	var hs []Handler
	for pattern, handlers := range b.handlers {
		if topicMatches(pattern, topic) {
			hs = append(hs, handlers...)
		}
	}
	b.mu.Unlock()

	for _, h := range hs {
		h(topic, payload)
	}
	return nil
}

func (b *InProcBus) Subscribe(topic string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], h)
	return nil
}

func (b *InProcBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, topic)
	return nil
}
