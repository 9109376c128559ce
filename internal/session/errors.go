package session

import "errors"

// Local errors are returned synchronously before any side effect.
var (
	ErrInvalidConfig         = errors.New("invalid config")
	ErrDuplicateSubscription = errors.New("already subscribed")
	ErrInvalidPayload        = errors.New("invalid payload")
	ErrInvalidState          = errors.New("invalid state")
	ErrUnknownSubscription   = errors.New("not subscribed")
)

// Transport-originated errors are never returned to a caller; they are
// recorded in the traffic log.
var (
	ErrProtocol        = errors.New("stomp error")
	ErrTransportClosed = errors.New("WebSocket connection closed")
	ErrUnsubscribe     = errors.New("unsubscribe failed")
)
