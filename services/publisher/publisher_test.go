package publisher

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// MockPublisher implements the Publisher interface for testing
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	err      error
	closed   bool
}

var _ Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(key string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages[key] = append(m.messages[key], message)
	return nil
}

func (m *MockPublisher) TrimStreams() error { return nil }

func (m *MockPublisher) Close() error {
	m.closed = true
	return nil
}

func TestMultiPublisherFansOut(t *testing.T) {
	a := NewMockPublisher()
	b := NewMockPublisher()
	multi := NewMultiPublisher(a, nil, b)

	assert.NoError(t, multi.Publish(PriceUpdateEvent, []byte(`{"id":"1"}`)))
	assert.Len(t, a.messages[PriceUpdateEvent], 1)
	assert.Len(t, b.messages[PriceUpdateEvent], 1)

	assert.NoError(t, multi.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiPublisherKeepsGoingAfterFailure(t *testing.T) {
	failing := NewMockPublisher()
	failing.err = fmt.Errorf("connection refused")
	ok := NewMockPublisher()

	err := NewMultiPublisher(failing, ok).Publish(PriceUpdateEvent, []byte("x"))
	assert.ErrorContains(t, err, "connection refused")
	assert.Len(t, ok.messages[PriceUpdateEvent], 1)
}
