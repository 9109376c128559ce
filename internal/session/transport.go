package session

import "time"

// Message is an inbound MESSAGE frame delivered to a subscription.
type Message struct {
	Destination string
	Headers     map[string]string
	Body        string
}

// Subscription is the transport-level handle returned by Transport.Subscribe.
type Subscription interface {
	Unsubscribe() error
}

// Transport is the STOMP connection capability the controller drives.
// Activate must not block on the network; connection outcomes arrive
// through Hooks.
type Transport interface {
	Activate() error
	Deactivate() error
	Subscribe(destination string, onMessage func(Message)) (Subscription, error)
	Publish(destination, body string) error
}

// Hooks are the transport callbacks. A transport invokes them for one
// handle from a single goroutine, in the order events occur.
type Hooks struct {
	OnConnect        func()
	OnStompError     func(message string)
	OnWebSocketClose func(err error)
}

// TransportConfig describes the handle to build on connect.
type TransportConfig struct {
	URL               string
	Headers           map[string]string
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
}

// Factory builds a transport handle. It must not dial.
type Factory func(cfg TransportConfig, hooks Hooks) Transport
