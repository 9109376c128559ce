package stomp

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/goccy/go-json"
)

// codec wraps STOMP frames into websocket messages and back.
type codec interface {
	encode(stompFrame []byte) ([]byte, error)
	decode(msg []byte) ([][]byte, error)
}

// rawCodec carries one STOMP payload per websocket message.
type rawCodec struct{}

func (rawCodec) encode(b []byte) ([]byte, error) { return b, nil }

func (rawCodec) decode(msg []byte) ([][]byte, error) { return [][]byte{msg}, nil }

// sockjsCodec speaks the SockJS websocket framing: the server sends
// "o" (open), "h" (heartbeat), "a[...]" (messages) and "c[code,reason]"
// (close); the client sends a JSON array of strings.
type sockjsCodec struct{}

// CloseError is returned when a SockJS server closes the session.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("sockjs closed: %d %s", e.Code, e.Reason)
}

func (sockjsCodec) encode(b []byte) ([]byte, error) {
	return json.Marshal([]string{string(b)})
}

func (sockjsCodec) decode(msg []byte) ([][]byte, error) {
	if len(msg) == 0 {
		return nil, nil
	}
	switch msg[0] {
	case 'o', 'h':
		return nil, nil
	case 'a':
		var parts []string
		if err := json.Unmarshal(msg[1:], &parts); err != nil {
			return nil, fmt.Errorf("sockjs array frame: %w", err)
		}
		out := make([][]byte, len(parts))
		for i, p := range parts {
			out[i] = []byte(p)
		}
		return out, nil
	case 'm':
		var part string
		if err := json.Unmarshal(msg[1:], &part); err != nil {
			return nil, fmt.Errorf("sockjs message frame: %w", err)
		}
		return [][]byte{[]byte(part)}, nil
	case 'c':
		var raw []json.RawMessage
		if err := json.Unmarshal(msg[1:], &raw); err != nil || len(raw) == 0 {
			return nil, &CloseError{Reason: string(msg[1:])}
		}
		ce := &CloseError{}
		_ = json.Unmarshal(raw[0], &ce.Code)
		if len(raw) > 1 {
			_ = json.Unmarshal(raw[1], &ce.Reason)
		}
		return nil, ce
	default:
		return nil, fmt.Errorf("sockjs: unknown frame type %q", msg[0])
	}
}

// encodeFrame serialises f in STOMP wire format.
func encodeFrame(f *frame.Frame) ([]byte, error) {
	var buf bytes.Buffer
	if err := frame.NewWriter(&buf).Write(f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeFrames parses every frame in payload. Heart-beat EOLs are skipped.
func decodeFrames(payload []byte) ([]*frame.Frame, error) {
	r := frame.NewReader(bytes.NewReader(payload))
	var out []*frame.Frame
	for {
		f, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return out, err
		}
		if f == nil {
			continue
		}
		out = append(out, f)
	}
}
