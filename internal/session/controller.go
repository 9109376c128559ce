// Package session owns the single STOMP session: the connect/disconnect
// state machine, the subscription registry and the publish path. Every
// observable event is recorded in a logbuf.Buffer.
package session

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
	"github.com/stomp-debugger/tui/internal/endpoint"
	"github.com/stomp-debugger/tui/internal/logbuf"
)

// State is the connection phase of the session.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Disconnecting
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Disconnecting:
		return "disconnecting"
	default:
		return "disconnected"
	}
}

// DefaultDisconnectGrace is how long Disconnect waits after unsubscribing
// before the transport is deactivated.
const DefaultDisconnectGrace = 500 * time.Millisecond

// Form holds the user-editable fields. The controller keeps them for the
// lifetime of the process only.
type Form struct {
	URL                  string
	Token                string
	SubscribeDestination string
	SendDestination      string
	Body                 string
}

// Options configures a Controller.
type Options struct {
	Factory           Factory
	DisconnectGrace   time.Duration
	ConfirmDisconnect bool
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
	Metrics           gometrics.Registry
	Form              Form
}

// Snapshot is a consistent copy of the session as seen by the UI.
type Snapshot struct {
	State          State
	URL            string
	ConfirmPending bool
	Subscriptions  []SubscriptionState
	Log            []logbuf.Entry
	Counters       Counters
}

// Controller drives the session. All mutations happen under one mutex, so
// commands and transport events are applied strictly one at a time.
type Controller struct {
	mu sync.Mutex

	state     State
	url       string
	token     string
	transport Transport
	gen       uint64 // generation of the live transport handle

	confirmPending bool
	disconnectDone chan struct{}

	form    Form
	log     *logbuf.Buffer
	subs    *Registry
	pub     *Publisher
	metrics metrics
	opts    Options

	changes chan struct{}
}

// NewController creates a disconnected controller.
func NewController(opts Options) *Controller {
	if opts.DisconnectGrace <= 0 {
		opts.DisconnectGrace = DefaultDisconnectGrace
	}
	buf := logbuf.New()
	return &Controller{
		form:    opts.Form,
		log:     buf,
		subs:    NewRegistry(buf),
		pub:     NewPublisher(buf),
		metrics: newMetrics(opts.Metrics),
		opts:    opts,
		changes: make(chan struct{}, 1),
	}
}

// Changes delivers a value after every state or log change. Notifications
// coalesce; receivers should take a fresh Snapshot on each one.
func (c *Controller) Changes() <-chan struct{} {
	return c.changes
}

func (c *Controller) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

// State returns the current connection phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns a consistent copy of the session.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		State:          c.state,
		URL:            c.url,
		ConfirmPending: c.confirmPending,
		Subscriptions:  c.subs.List(),
		Log:            c.log.Entries(),
		Counters:       c.metrics.snapshot(),
	}
}

// Form returns the current form fields.
func (c *Controller) Form() Form {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form
}

// SetForm replaces the form fields.
func (c *Controller) SetForm(f Form) {
	c.mu.Lock()
	c.form = f
	c.mu.Unlock()
}

// Connect validates url and opens a new transport handle, tearing down any
// existing one first. It returns once activation has been requested.
// Surrounding whitespace in url is ignored.
func (c *Controller) Connect(url, token string) error {
	url = strings.TrimSpace(url)
	if res := endpoint.Validate(url); !res.Valid {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, res.Error)
	}
	if c.opts.Factory == nil {
		return fmt.Errorf("%w: no transport configured", ErrInvalidConfig)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.notify()

	if c.state == Disconnecting {
		return fmt.Errorf("%w: disconnect in progress", ErrInvalidState)
	}

	if c.transport != nil {
		if n := c.subs.Len(); n > 0 {
			c.log.Append(logbuf.KindInfo, "", fmt.Sprintf("Reconnecting: dropped %d subscription(s)", n))
		}
		c.dropTransportLocked()
	}
	c.subs.Clear()
	c.confirmPending = false

	headers := make(map[string]string)
	if token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	c.gen++
	c.state = Connecting
	c.url = url
	c.token = token
	c.transport = c.opts.Factory(TransportConfig{
		URL:               url,
		Headers:           headers,
		HeartbeatIncoming: c.opts.HeartbeatIncoming,
		HeartbeatOutgoing: c.opts.HeartbeatOutgoing,
	}, c.hooks(c.gen))

	via := "WebSocket"
	if endpoint.ModeOf(url) == endpoint.Fallback {
		via = "HTTP fallback"
	}
	c.log.Append(logbuf.KindInfo, "", fmt.Sprintf("Connecting to %s via %s...", url, via))
	c.metrics.incr(metricConnects, 1)

	if err := c.transport.Activate(); err != nil {
		c.dropTransportLocked()
		c.state = Disconnected
		c.log.Append(logbuf.KindError, "", fmt.Sprintf("Activation failed: %v", err))
		c.metrics.incr(metricErrors, 1)
		return fmt.Errorf("activate: %w", err)
	}
	return nil
}

// dropTransportLocked deactivates the live handle and retires its
// generation so late events from it are ignored.
func (c *Controller) dropTransportLocked() {
	t := c.transport
	c.transport = nil
	c.gen++
	if t == nil {
		return
	}
	if err := t.Deactivate(); err != nil {
		log.Printf("session: deactivate: %v", err)
	}
}

func (c *Controller) hooks(gen uint64) Hooks {
	return Hooks{
		OnConnect:        func() { c.handleConnected(gen) },
		OnStompError:     func(msg string) { c.handleProtocolError(gen, msg) },
		OnWebSocketClose: func(err error) { c.handleClosed(gen, err) },
	}
}

// liveLocked reports whether gen is the current handle.
func (c *Controller) liveLocked(gen uint64) bool {
	return c.transport != nil && gen == c.gen
}

func (c *Controller) handleConnected(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(gen) || c.state != Connecting {
		return
	}
	c.state = Connected
	c.log.Append(logbuf.KindInfo, "", "Connected to "+c.url)
	c.notify()
}

func (c *Controller) handleProtocolError(gen uint64, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(gen) {
		return
	}
	if c.state != Connected && c.state != Connecting {
		return
	}
	c.log.Append(logbuf.KindError, "", fmt.Sprintf("%v: %s", ErrProtocol, msg))
	c.metrics.incr(metricErrors, 1)
	c.notify()
}

func (c *Controller) handleClosed(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(gen) || c.state == Disconnected {
		return
	}
	c.dropTransportLocked()
	msg := ErrTransportClosed.Error()
	if err != nil {
		msg = fmt.Sprintf("%v: %v", ErrTransportClosed, err)
	}
	c.finishLocked(msg)
}

// finishLocked moves to Disconnected, clearing subscriptions in the same
// critical section.
func (c *Controller) finishLocked(msg string) {
	c.subs.Clear()
	c.state = Disconnected
	c.confirmPending = false
	c.log.Append(logbuf.KindInfo, "", msg)
	if c.disconnectDone != nil {
		close(c.disconnectDone)
		c.disconnectDone = nil
	}
	c.notify()
}

func (c *Controller) handleMessage(gen uint64, destination string, m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(gen) {
		return
	}
	if c.state != Connected && c.state != Disconnecting {
		return
	}
	if c.subs.Deliver(destination, m.Body) {
		c.metrics.incr(metricReceived, 1)
		c.notify()
	}
}

// Subscribe starts receiving messages for destination.
func (c *Controller) Subscribe(destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return fmt.Errorf("%w: subscribe requires a connected session", ErrInvalidState)
	}
	gen := c.gen
	err := c.subs.Subscribe(c.transport, destination, func(m Message) {
		c.handleMessage(gen, destination, m)
	})
	c.notify()
	return err
}

// Unsubscribe stops receiving messages for destination. It is valid in any
// phase as long as destination is tracked.
func (c *Controller) Unsubscribe(destination string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.subs.Unsubscribe(destination)
	c.notify()
	return err
}

// AcknowledgeRead resets the unread counter of destination.
func (c *Controller) AcknowledgeRead(destination string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs.Acknowledge(destination) {
		c.notify()
	}
}

// Publish validates body as JSON and sends it to destination.
func (c *Controller) Publish(destination, body string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return fmt.Errorf("%w: publish requires a connected session", ErrInvalidState)
	}
	if err := c.pub.Publish(c.transport, destination, body); err != nil {
		return err
	}
	c.metrics.incr(metricSent, 1)
	c.notify()
	return nil
}

// ClearLog empties the traffic log regardless of the session state.
func (c *Controller) ClearLog() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log.Clear()
	c.notify()
}

// RequestDisconnect starts a user-initiated disconnect. When confirmation
// is required it only marks the request pending and returns true; the
// caller resolves it with ConfirmDisconnect or CancelDisconnect. Otherwise
// it disconnects straight away and returns the completion channel.
func (c *Controller) RequestDisconnect() (needsConfirm bool, done <-chan struct{}, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Connected {
		return false, nil, fmt.Errorf("%w: not connected", ErrInvalidState)
	}
	if c.opts.ConfirmDisconnect {
		c.confirmPending = true
		c.notify()
		return true, nil, nil
	}
	return false, c.disconnectLocked(), nil
}

// ConfirmDisconnect resolves a pending request by disconnecting.
func (c *Controller) ConfirmDisconnect() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.confirmPending {
		return closedChan()
	}
	return c.disconnectLocked()
}

// CancelDisconnect drops a pending request.
func (c *Controller) CancelDisconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmPending {
		c.confirmPending = false
		c.notify()
	}
}

// Disconnect unsubscribes everything, waits the grace interval for frames
// to flush and then closes the transport. It returns without waiting; the
// returned channel is closed once the session is Disconnected. Calling it
// while not Connected is a no-op.
func (c *Controller) Disconnect() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnectLocked()
}

func (c *Controller) disconnectLocked() <-chan struct{} {
	c.confirmPending = false
	if c.state != Connected {
		return closedChan()
	}
	c.state = Disconnecting
	n := c.subs.Len()
	c.log.Append(logbuf.KindInfo, "", fmt.Sprintf("Disconnecting: releasing %d subscription(s)...", n))
	if failed := c.subs.ReleaseAll(); failed > 0 {
		c.metrics.incr(metricErrors, int64(failed))
	}

	done := make(chan struct{})
	c.disconnectDone = done
	gen := c.gen
	time.AfterFunc(c.opts.DisconnectGrace, func() { c.finishDisconnect(gen) })
	c.notify()
	return done
}

func (c *Controller) finishDisconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.liveLocked(gen) || c.state != Disconnecting {
		return
	}
	n := c.subs.Len()
	c.dropTransportLocked()
	c.finishLocked(fmt.Sprintf("Disconnected. %d subscription(s) cleared.", n))
}

// Close deactivates any live transport without logging. It is meant for
// process shutdown.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropTransportLocked()
	c.subs.Clear()
	c.state = Disconnected
	if c.disconnectDone != nil {
		close(c.disconnectDone)
		c.disconnectDone = nil
	}
}

// ReportMetrics writes the traffic counters as JSON to w every tick until
// stop is closed.
func (c *Controller) ReportMetrics(tick time.Duration, w io.Writer, stop <-chan struct{}) {
	go c.metrics.writeJSON(tick, w, stop)
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
