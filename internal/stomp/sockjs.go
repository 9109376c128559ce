package stomp

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stomp-debugger/tui/internal/endpoint"
)

// sockjsInfo is the response of GET <base>/info.
type sockjsInfo struct {
	WebSocket    bool     `json:"websocket"`
	CookieNeeded bool     `json:"cookie_needed"`
	Origins      []string `json:"origins"`
	Entropy      int64    `json:"entropy"`
}

// negotiate asks the SockJS endpoint at base for its capabilities and
// returns the websocket transport URL for a fresh session.
func negotiate(ctx context.Context, hc *http.Client, base string, header http.Header) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""

	info, err := fetchInfo(ctx, hc, u.String()+"/info?t="+strconv.FormatInt(time.Now().UnixMilli(), 10), header)
	if err != nil {
		return "", err
	}
	if !info.WebSocket {
		return "", fmt.Errorf("sockjs endpoint %s does not offer the websocket transport", u.String())
	}

	wsBase, err := endpoint.WebSocketURL(u.String())
	if err != nil {
		return "", err
	}
	server := fmt.Sprintf("%03d", rand.Intn(1000))
	sessionID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	return wsBase + "/" + server + "/" + sessionID + "/websocket", nil
}

func fetchInfo(ctx context.Context, hc *http.Client, infoURL string, header http.Header) (*sockjsInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, infoURL, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("GET %s: %d %s", infoURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var info sockjsInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode sockjs info: %w", err)
	}
	return &info, nil
}
