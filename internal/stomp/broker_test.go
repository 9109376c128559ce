package stomp

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// testBroker is a minimal in-process STOMP broker. It serves the raw
// websocket endpoint at /ws and a SockJS endpoint under /ws/chat.
type testBroker struct {
	srv    *httptest.Server
	sockjs bool
	token  string

	frames   chan *frame.Frame
	infoAuth chan string

	mu      sync.Mutex
	writeMu sync.Mutex
	conn    *websocket.Conn
	subs    map[string]string // destination -> subscription id
}

func newTestBroker(t *testing.T, sockjs bool, token string) *testBroker {
	t.Helper()
	b := &testBroker{
		sockjs:   sockjs,
		token:    token,
		frames:   make(chan *frame.Frame, 64),
		infoAuth: make(chan string, 1),
		subs:     make(map[string]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleWS)
	mux.HandleFunc("/ws/chat/info", b.handleInfo)
	mux.HandleFunc("/ws/chat/", b.handleWS)
	b.srv = httptest.NewServer(mux)
	t.Cleanup(func() {
		b.mu.Lock()
		if b.conn != nil {
			b.conn.Close()
		}
		b.mu.Unlock()
		b.srv.Close()
	})
	return b
}

func (b *testBroker) directURL() string {
	return "ws" + strings.TrimPrefix(b.srv.URL, "http") + "/ws"
}

func (b *testBroker) sockjsURL() string {
	return b.srv.URL + "/ws/chat"
}

func (b *testBroker) handleInfo(w http.ResponseWriter, r *http.Request) {
	select {
	case b.infoAuth <- r.Header.Get("Authorization"):
	default:
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sockjsInfo{WebSocket: true, Entropy: 42})
}

func (b *testBroker) handleWS(w http.ResponseWriter, r *http.Request) {
	if b.sockjs != strings.HasSuffix(r.URL.Path, "/websocket") {
		http.NotFound(w, r)
		return
	}
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	if !b.sockjs {
		upgrader.Subprotocols = []string{"v12.stomp"}
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	b.mu.Lock()
	b.conn = conn
	b.mu.Unlock()
	if b.sockjs {
		conn.WriteMessage(websocket.TextMessage, []byte("o"))
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		payloads := [][]byte{data}
		if b.sockjs {
			var parts []string
			if json.Unmarshal(data, &parts) != nil {
				continue
			}
			payloads = payloads[:0]
			for _, p := range parts {
				payloads = append(payloads, []byte(p))
			}
		}
		for _, p := range payloads {
			frames, _ := decodeFrames(p)
			for _, f := range frames {
				b.handle(conn, f)
				b.frames <- f
			}
		}
	}
}

func (b *testBroker) handle(conn *websocket.Conn, f *frame.Frame) {
	switch f.Command {
	case frame.CONNECT:
		if b.token != "" && f.Header.Get("Authorization") != "Bearer "+b.token {
			e := frame.New(frame.ERROR, "message", "unauthorized")
			e.Body = []byte("bad credentials")
			b.send(e)
			conn.Close()
			return
		}
		b.send(frame.New(frame.CONNECTED, "version", "1.2", "heart-beat", "0,0"))
	case frame.SUBSCRIBE:
		b.mu.Lock()
		b.subs[f.Header.Get("destination")] = f.Header.Get("id")
		b.mu.Unlock()
	case frame.UNSUBSCRIBE:
		b.mu.Lock()
		for dest, id := range b.subs {
			if id == f.Header.Get("id") {
				delete(b.subs, dest)
			}
		}
		b.mu.Unlock()
	}
}

func (b *testBroker) send(f *frame.Frame) {
	payload, err := encodeFrame(f)
	if err != nil {
		return
	}
	if b.sockjs {
		arr, _ := json.Marshal([]string{string(payload)})
		payload = append([]byte("a"), arr...)
	}
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()
	if conn == nil {
		return
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	conn.WriteMessage(websocket.TextMessage, payload)
}

// deliver pushes a MESSAGE to the subscriber of destination.
func (b *testBroker) deliver(destination, body string) {
	b.mu.Lock()
	id, ok := b.subs[destination]
	b.mu.Unlock()
	if !ok {
		return
	}
	f := frame.New(frame.MESSAGE,
		"subscription", id,
		"destination", destination,
		"message-id", "m-1",
	)
	f.Body = []byte(body)
	b.send(f)
}

// next returns the next frame the broker received.
func (b *testBroker) next(t *testing.T) *frame.Frame {
	t.Helper()
	select {
	case f := <-b.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a frame")
		return nil
	}
}
