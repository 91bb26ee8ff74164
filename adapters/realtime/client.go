package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultEndpoint = "wss://api.openai.com/v1/realtime?model=gpt-4o-realtime-preview"

	// Time allowed to write a message to the upstream socket.
	writeWait = 10 * time.Second

	// Maximum inbound message size. Audio deltas are base64 PCM and can be
	// large for long utterances.
	maxMessageSize = 4 * 1024 * 1024

	handshakeTimeout = 15 * time.Second
)

// Conn is the session controller's view of the realtime socket. The
// concrete Client implements it; tests inject fakes.
type Conn interface {
	// Send marshals and writes one outbound message. Returns an error once
	// the socket is closed.
	Send(msg interface{}) error
	// Events yields decoded inbound events. The channel closes when the
	// socket closes; the final CloseInfo is then available via CloseReason.
	Events() <-chan ServerEvent
	// Close tears the socket down. Idempotent.
	Close() error
	// CloseReason reports how the socket ended, valid after Events closes.
	CloseReason() CloseInfo
}

// CloseInfo describes how the upstream socket ended
type CloseInfo struct {
	Code   int
	Reason string
	Err    error
}

// Clean reports a normal closure.
func (c CloseInfo) Clean() bool {
	return c.Err == nil && (c.Code == 0 || c.Code == websocket.CloseNormalClosure)
}

// Client is a realtime speech socket connection authenticated with an
// ephemeral credential passed as a sub-protocol token.
type Client struct {
	conn   *websocket.Conn
	events chan ServerEvent
	logger *zap.Logger

	writeMu sync.Mutex

	closeOnce sync.Once
	closeInfo CloseInfo
	infoMu    sync.Mutex
}

// Dial connects to the realtime endpoint. endpoint may be empty to use the
// default. The ephemeral secret rides in the sub-protocol list, mirroring
// the upstream API's insecure-client auth scheme.
func Dial(ctx context.Context, endpoint, ephemeralSecret string, logger *zap.Logger) (*Client, error) {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
		Subprotocols: []string{
			"realtime",
			"openai-insecure-api-key." + ephemeralSecret,
		},
	}
	header := http.Header{}
	header.Set("OpenAI-Beta", "realtime=v1")

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, fmt.Errorf("realtime dial failed (status %d): %w", status, err)
	}
	conn.SetReadLimit(maxMessageSize)

	c := &Client{
		conn:   conn,
		events: make(chan ServerEvent, 64),
		logger: logger,
	}
	go c.readPump()

	logger.Info("Connected to realtime endpoint", zap.String("endpoint", endpoint))
	return c, nil
}

// readPump decodes inbound messages until the socket closes, then records
// the close reason and closes the events channel.
func (c *Client) readPump() {
	defer close(c.events)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			info := CloseInfo{Err: err}
			if ce, ok := err.(*websocket.CloseError); ok {
				info = CloseInfo{Code: ce.Code, Reason: ce.Text}
				if ce.Code == websocket.CloseNormalClosure {
					info.Err = nil
				}
			}
			c.infoMu.Lock()
			if c.closeInfo == (CloseInfo{}) {
				c.closeInfo = info
			}
			c.infoMu.Unlock()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("Realtime socket read ended", zap.Error(err))
			}
			return
		}

		ev, err := DecodeServerEvent(data)
		if err != nil {
			c.logger.Error("Failed to decode realtime event", zap.Error(err))
			continue
		}
		c.events <- ev
	}
}

// Send marshals and writes one outbound message. Sends on a closed socket
// return the underlying write error; callers treat that as connection loss.
func (c *Client) Send(msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(msg)
}

// Events yields decoded inbound events.
func (c *Client) Events() <-chan ServerEvent {
	return c.events
}

// Close sends a close frame and tears the connection down. Idempotent.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// CloseReason reports how the socket ended.
func (c *Client) CloseReason() CloseInfo {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	return c.closeInfo
}
