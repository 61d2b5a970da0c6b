package events

import (
	"context"
	"sync"
)

// MockPublisher is a mock implementation of Publisher for testing.
type MockPublisher struct {
	mu              sync.RWMutex
	publishedEvents []*ReferralEvent
	publishError    error
	closed          bool
}

// NewMockPublisher creates a new mock publisher for testing.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{
		publishedEvents: make([]*ReferralEvent, 0),
	}
}

// PublishReferralEvent records the event and returns any configured error.
func (m *MockPublisher) PublishReferralEvent(ctx context.Context, event *ReferralEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.publishError != nil {
		return m.publishError
	}

	m.publishedEvents = append(m.publishedEvents, event)
	return nil
}

// Close marks the publisher as closed.
func (m *MockPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// PublishedEvents returns a copy of all published events.
func (m *MockPublisher) PublishedEvents() []*ReferralEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ReferralEvent, len(m.publishedEvents))
	copy(events, m.publishedEvents)
	return events
}

// EventsForReferrer returns events published for a specific referrer wallet.
func (m *MockPublisher) EventsForReferrer(address string) []*ReferralEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()

	events := make([]*ReferralEvent, 0)
	for _, event := range m.publishedEvents {
		if event.ReferrerAddress == address {
			events = append(events, event)
		}
	}
	return events
}

// SetPublishError configures the mock to return an error on publish.
func (m *MockPublisher) SetPublishError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishError = err
}

// IsClosed returns whether the publisher has been closed.
func (m *MockPublisher) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
