package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// EchoFrame is the JSON probe sent through the echo relay.
type EchoFrame struct {
	Seq  int    `json:"seq"`
	Text string `json:"text"`
}

// WebSocketURL turns the client's http(s) base into a ws(s) URL for path.
func (c *Client) WebSocketURL(path string) string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + path
}

// Echo sends each text through the relay at path and returns the round trip
// time per frame. Frames that come back altered are an error.
func (c *Client) Echo(ctx context.Context, path string, texts []string) ([]time.Duration, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.defaultTimeout)
	defer cancel()

	header := http.Header{}
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				header.Set(k, v)
			}
		}
	}
	conn, _, err := websocket.Dial(dialCtx, c.WebSocketURL(path), &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      header,
	})
	if err != nil {
		return nil, fmt.Errorf("dial echo relay: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	rtts := make([]time.Duration, 0, len(texts))
	for i, text := range texts {
		sent := EchoFrame{Seq: i + 1, Text: text}
		start := time.Now()
		if err := wsjson.Write(ctx, conn, sent); err != nil {
			return rtts, fmt.Errorf("write frame %d: %w", sent.Seq, err)
		}
		var got EchoFrame
		if err := wsjson.Read(ctx, conn, &got); err != nil {
			return rtts, fmt.Errorf("read frame %d: %w", sent.Seq, err)
		}
		if got != sent {
			return rtts, fmt.Errorf("frame %d came back as %+v", sent.Seq, got)
		}
		rtts = append(rtts, time.Since(start))
	}
	return rtts, nil
}
