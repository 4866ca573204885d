package bridge

import "errors"

var (
	// ErrInvalidMessage is returned when a payload cannot be decoded.
	ErrInvalidMessage = errors.New("bridge: invalid message")

	// ErrTopicMismatch is returned when a payload names a different device than its topic.
	ErrTopicMismatch = errors.New("bridge: device id does not match topic")

	// ErrUnknownService is returned for service calls the bridge does not handle.
	ErrUnknownService = errors.New("bridge: unknown service")

	// ErrStopped is returned for service calls that arrive after Stop.
	ErrStopped = errors.New("bridge: stopped")
)
