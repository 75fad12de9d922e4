package publisher

import (
	stderrors "errors"
)

// PriceUpdateEvent is the key under which price change summaries are published.
const PriceUpdateEvent = "priceUpdate"

// Publisher represents a service for publishing messages
type Publisher interface {
	// Publish publishes a message under the given event key
	Publish(key string, message []byte) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}

// MultiPublisher fans a message out to several publishers
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a publisher that forwards to every non-nil publisher
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	m := &MultiPublisher{}
	for _, p := range publishers {
		if p != nil {
			m.publishers = append(m.publishers, p)
		}
	}
	return m
}

// Publish forwards the message to every publisher, even after a failure
func (m *MultiPublisher) Publish(key string, message []byte) error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Publish(key, message); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// TrimStreams trims every publisher's streams
func (m *MultiPublisher) TrimStreams() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.TrimStreams(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

// Close closes every publisher
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
