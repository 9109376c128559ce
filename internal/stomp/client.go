// Package stomp is the STOMP 1.2 client transport used by the session
// controller. It speaks STOMP frames either directly over a websocket or
// through the SockJS websocket framing when given an http(s) endpoint.
package stomp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gorilla/websocket"
	"github.com/stomp-debugger/tui/internal/endpoint"
	"github.com/stomp-debugger/tui/internal/session"
)

const (
	writeTimeout     = 10 * time.Second
	handshakeTimeout = 10 * time.Second
	httpTimeout      = 10 * time.Second
	// disconnectWriteTimeout bounds how long the write pump may drain after
	// Deactivate before the socket is closed under it.
	disconnectWriteTimeout = time.Second
	// sendBuffer is the number of outbound messages queued per connection.
	sendBuffer = 64
	// Missed server heart-beats tolerated before the read deadline fires.
	heartbeatTolerance = 2
)

var (
	ErrNotConnected     = errors.New("stomp: not connected")
	ErrAlreadyActive    = errors.New("stomp: already activated")
	ErrSubscriptionGone = errors.New("stomp: subscription already released")
	ErrSendQueueFull    = errors.New("stomp: send queue full")
)

// Config describes one client handle.
type Config struct {
	URL string
	// Headers go on the CONNECT frame and on the websocket handshake.
	Headers           map[string]string
	HeartbeatIncoming time.Duration
	HeartbeatOutgoing time.Duration
	// HTTPClient serves SockJS negotiation. Defaults to a 10s-timeout client.
	HTTPClient *http.Client
	// Dialer defaults to a gorilla dialer with a 10s handshake timeout.
	Dialer *websocket.Dialer
}

// Client is a single-use STOMP connection. Activate starts it in the
// background; Deactivate tears it down without waiting for the reader.
// Writes are queued to a per-connection write pump, so no method blocks on
// the socket.
type Client struct {
	cfg   Config
	hooks session.Hooks

	mu          sync.Mutex
	conn        *websocket.Conn
	codec       codec
	send        chan []byte // drained by conn's write pump; closed on release
	cancel      context.CancelFunc
	activated   bool
	readTimeout time.Duration
	subs        map[string]*subscription
	nextID      int

	closeOnce sync.Once
}

var _ session.Transport = (*Client)(nil)

// New creates an inactive client. It does not dial.
func New(cfg Config, hooks session.Hooks) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	return &Client{
		cfg:   cfg,
		hooks: hooks,
		subs:  make(map[string]*subscription),
	}
}

// Factory adapts New to the controller's transport factory.
func Factory(hc *http.Client) session.Factory {
	return func(tc session.TransportConfig, hooks session.Hooks) session.Transport {
		return New(Config{
			URL:               tc.URL,
			Headers:           tc.Headers,
			HeartbeatIncoming: tc.HeartbeatIncoming,
			HeartbeatOutgoing: tc.HeartbeatOutgoing,
			HTTPClient:        hc,
		}, hooks)
	}
}

// Activate starts connecting in the background. Outcomes arrive via hooks.
func (c *Client) Activate() error {
	c.mu.Lock()
	if c.activated {
		c.mu.Unlock()
		return ErrAlreadyActive
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.activated = true
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Deactivate queues a best-effort DISCONNECT behind any pending writes and
// releases the connection. The write pump closes the socket once drained,
// or after disconnectWriteTimeout at the latest. The reader goroutine
// finishes on its own and reports the close.
func (c *Client) Deactivate() error {
	c.mu.Lock()
	conn, cancel := c.conn, c.cancel
	if conn != nil {
		if payload, err := encodeFrame(frame.New(frame.DISCONNECT)); err == nil {
			if msg, err := c.codec.encode(payload); err == nil {
				select {
				case c.send <- msg:
				default:
				}
			}
		}
		c.releaseLocked()
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		time.AfterFunc(disconnectWriteTimeout, func() { conn.Close() })
	}
	return nil
}

// Subscribe sends SUBSCRIBE with a fresh id and routes matching MESSAGE
// frames to onMessage. Messages carry the subscribed destination.
func (c *Client) Subscribe(destination string, onMessage func(session.Message)) (session.Subscription, error) {
	c.mu.Lock()
	c.nextID++
	s := &subscription{
		c:           c,
		id:          "sub-" + strconv.Itoa(c.nextID),
		destination: destination,
		onMessage:   onMessage,
	}
	c.subs[s.id] = s
	c.mu.Unlock()

	f := frame.New(frame.SUBSCRIBE, "id", s.id, "destination", destination, "ack", "auto")
	if err := c.write(f); err != nil {
		c.mu.Lock()
		delete(c.subs, s.id)
		c.mu.Unlock()
		return nil, fmt.Errorf("subscribe %s: %w", destination, err)
	}
	return s, nil
}

// Publish sends a SEND frame with a JSON body.
func (c *Client) Publish(destination, body string) error {
	f := frame.New(frame.SEND,
		"destination", destination,
		"content-type", "application/json",
		"content-length", strconv.Itoa(len(body)),
	)
	f.Body = []byte(body)
	if err := c.write(f); err != nil {
		return fmt.Errorf("send %s: %w", destination, err)
	}
	return nil
}

func (c *Client) run(ctx context.Context) {
	conn, cd, err := c.dial(ctx)
	if err != nil {
		log.Printf("stomp dial %s: %v", c.cfg.URL, err)
		c.closed(err)
		return
	}

	send := make(chan []byte, sendBuffer)
	c.mu.Lock()
	if ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		c.closed(ctx.Err())
		return
	}
	c.conn = conn
	c.codec = cd
	c.send = send
	c.mu.Unlock()
	go c.writePump(conn, send)

	if err := c.write(c.connectFrame()); err != nil {
		c.release(conn)
		conn.Close()
		c.closed(err)
		return
	}

	err = c.readLoop(ctx, conn, cd)
	c.release(conn)
	conn.Close()
	c.closed(err)
}

// writePump is the only writer on conn. It exits when send is closed or a
// write fails, and closes the socket either way.
func (c *Client) writePump(conn *websocket.Conn, send <-chan []byte) {
	defer conn.Close()
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Printf("stomp write: %v", err)
			return
		}
	}
}

// release detaches conn if it is still the live connection.
func (c *Client) release(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.releaseLocked()
	}
}

func (c *Client) releaseLocked() {
	close(c.send)
	c.conn = nil
	c.send = nil
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, codec, error) {
	header := http.Header{}
	for k, v := range c.cfg.Headers {
		header.Set(k, v)
	}
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout, Proxy: http.ProxyFromEnvironment}
	if c.cfg.Dialer != nil {
		dialer = *c.cfg.Dialer
	}

	if endpoint.ModeOf(c.cfg.URL) == endpoint.Fallback {
		wsURL, err := negotiate(ctx, c.cfg.HTTPClient, c.cfg.URL, header)
		if err != nil {
			return nil, nil, fmt.Errorf("sockjs negotiate: %w", err)
		}
		conn, _, err := dialer.DialContext(ctx, wsURL, header)
		if err != nil {
			return nil, nil, err
		}
		return conn, sockjsCodec{}, nil
	}

	dialer.Subprotocols = []string{"v12.stomp", "v11.stomp", "v10.stomp"}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return nil, nil, err
	}
	return conn, rawCodec{}, nil
}

func (c *Client) connectFrame() *frame.Frame {
	host := ""
	if u, err := url.Parse(c.cfg.URL); err == nil {
		host = u.Hostname()
	}
	f := frame.New(frame.CONNECT,
		"accept-version", "1.2,1.1,1.0",
		"host", host,
		"heart-beat", fmt.Sprintf("%d,%d", c.cfg.HeartbeatOutgoing.Milliseconds(), c.cfg.HeartbeatIncoming.Milliseconds()),
	)
	for k, v := range c.cfg.Headers {
		f.Header.Set(k, v)
	}
	return f
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, cd codec) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		c.extendReadDeadline(conn)

		payloads, err := cd.decode(data)
		if err != nil {
			var ce *CloseError
			if errors.As(err, &ce) {
				return ce
			}
			log.Printf("stomp decode: %v", err)
			continue
		}
		for _, p := range payloads {
			frames, err := decodeFrames(p)
			if err != nil {
				log.Printf("stomp frame: %v", err)
			}
			for _, f := range frames {
				c.dispatch(ctx, conn, f)
			}
		}
	}
}

func (c *Client) dispatch(ctx context.Context, conn *websocket.Conn, f *frame.Frame) {
	switch f.Command {
	case frame.CONNECTED:
		send, recv := negotiateHeartbeat(c.cfg.HeartbeatOutgoing, c.cfg.HeartbeatIncoming, f.Header.Get("heart-beat"))
		if send > 0 {
			go c.pingLoop(ctx, conn, send)
		}
		if recv > 0 {
			c.mu.Lock()
			c.readTimeout = recv * heartbeatTolerance
			c.mu.Unlock()
			c.extendReadDeadline(conn)
		}
		if c.hooks.OnConnect != nil {
			c.hooks.OnConnect()
		}
	case frame.MESSAGE:
		c.mu.Lock()
		s := c.subs[f.Header.Get("subscription")]
		c.mu.Unlock()
		if s == nil || s.onMessage == nil {
			return
		}
		s.onMessage(session.Message{
			Destination: s.destination,
			Headers:     headerMap(f.Header),
			Body:        string(f.Body),
		})
	case frame.ERROR:
		msg := f.Header.Get("message")
		if msg == "" {
			msg = strings.TrimSpace(string(f.Body))
		}
		if c.hooks.OnStompError != nil {
			c.hooks.OnStompError(msg)
		}
	case frame.RECEIPT:
	default:
		log.Printf("stomp: unexpected %s frame", f.Command)
	}
}

// pingLoop sends heart-beat EOLs on conn. It exits when the context is
// cancelled or the connection changes.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := c.enqueue(conn, []byte("\n"))
			if errors.Is(err, ErrNotConnected) {
				return
			}
			if err != nil {
				log.Printf("stomp heart-beat: %v", err)
			}
		}
	}
}

func (c *Client) extendReadDeadline(conn *websocket.Conn) {
	c.mu.Lock()
	d := c.readTimeout
	c.mu.Unlock()
	if d > 0 {
		conn.SetReadDeadline(time.Now().Add(d))
	}
}

func (c *Client) write(f *frame.Frame) error {
	payload, err := encodeFrame(f)
	if err != nil {
		return err
	}
	return c.enqueue(nil, payload)
}

// enqueue hands payload to the write pump of the live connection without
// blocking. A non-nil conn must still be the live connection.
func (c *Client) enqueue(conn *websocket.Conn, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || (conn != nil && c.conn != conn) {
		return ErrNotConnected
	}
	msg, err := c.codec.encode(payload)
	if err != nil {
		return err
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// closed reports the end of the connection exactly once.
func (c *Client) closed(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		cancel := c.cancel
		c.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if c.hooks.OnWebSocketClose != nil {
			c.hooks.OnWebSocketClose(err)
		}
	})
}

type subscription struct {
	c           *Client
	id          string
	destination string
	onMessage   func(session.Message)

	once sync.Once
}

// Unsubscribe sends UNSUBSCRIBE for this id. Only the first call does anything.
func (s *subscription) Unsubscribe() error {
	err := ErrSubscriptionGone
	s.once.Do(func() {
		s.c.mu.Lock()
		delete(s.c.subs, s.id)
		s.c.mu.Unlock()
		err = s.c.write(frame.New(frame.UNSUBSCRIBE, "id", s.id))
	})
	return err
}

// negotiateHeartbeat combines the client's outgoing/incoming intervals with
// the server's CONNECTED heart-beat header ("sx,sy") and returns how often
// the client must send and how often it should expect to receive.
func negotiateHeartbeat(outgoing, incoming time.Duration, server string) (send, recv time.Duration) {
	sx, sy := parseHeartbeat(server)
	if outgoing > 0 && sy > 0 {
		send = max(outgoing, sy)
	}
	if incoming > 0 && sx > 0 {
		recv = max(incoming, sx)
	}
	return send, recv
}

func parseHeartbeat(v string) (x, y time.Duration) {
	a, b, ok := strings.Cut(v, ",")
	if !ok {
		return 0, 0
	}
	xi, err1 := strconv.Atoi(strings.TrimSpace(a))
	yi, err2 := strconv.Atoi(strings.TrimSpace(b))
	if err1 != nil || err2 != nil || xi < 0 || yi < 0 {
		return 0, 0
	}
	return time.Duration(xi) * time.Millisecond, time.Duration(yi) * time.Millisecond
}

func headerMap(h *frame.Header) map[string]string {
	m := make(map[string]string, h.Len())
	for i := 0; i < h.Len(); i++ {
		k, v := h.GetAt(i)
		if _, seen := m[k]; !seen {
			m[k] = v
		}
	}
	return m
}
