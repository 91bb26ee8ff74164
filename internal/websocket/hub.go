package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
	"github.com/sufrahq/sufra-voice/internal/voice"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Reply clips go the other way;
	// inbound traffic is 20 ms microphone frames.
	maxMessageSize = 512 * 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients. Each client owns one voice
// session controller; the hub carries the shared collaborators every
// controller needs.
type Hub struct {
	// Registered clients by session id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	issuer      repositories.CredentialIssuer
	restaurants []*entities.Restaurant
	orders      voice.OrderPlacer

	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(
	issuer repositories.CredentialIssuer,
	restaurants []*entities.Restaurant,
	orders voice.OrderPlacer,
	logger *zap.Logger,
) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		issuer:      issuer,
		restaurants: restaurants,
		orders:      orders,
		logger:      logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.sessionID),
				zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.sessionID]; ok {
				delete(h.clients, client.sessionID)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))
		}
	}
}

// SessionCount returns the number of live voice sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between one device's websocket connection and its
// voice session controller. It also implements voice.Sink so controller
// output flows straight back down the socket.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	sessionID string
	userID    string

	ctrl    *voice.Controller
	capture *frameCapture
	player  *replyPlayer
	cancel  context.CancelFunc

	logger *zap.Logger
}

// HandleSession upgrades the connection and runs a voice session for one
// authenticated (or guest) user until the socket closes.
func HandleSession(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, 256),
		sessionID: uuid.New().String(),
		userID:    userID,
		capture:   newFrameCapture(),
		logger:    logger,
	}
	client.player = &replyPlayer{client: client}

	client.ctrl = voice.NewController(client.sessionID, voice.Config{
		UserID:      userID,
		Issuer:      hub.issuer,
		Capture:     client.capture,
		Player:      client.player,
		Restaurants: hub.restaurants,
		Orders:      hub.orders,
		Sink:        client,
		Logger:      logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	client.cancel = cancel
	go client.ctrl.Run(ctx)

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// readPump pumps messages from the websocket connection into the session
// controller.
func (c *Client) readPump() {
	defer func() {
		c.ctrl.Dispatch(voice.OverlayClosed{})
		c.cancel()
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		c.processMessage(message)
	}
}

// writePump pumps messages from the controller to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage routes one device message to the session controller
func (c *Client) processMessage(message []byte) {
	decoded, err := DecodeClientMessage(message)
	if err != nil {
		c.logger.Warn("Rejected device message", zap.Error(err))
		c.sendJSON(CreateErrorMessage("invalid_message", err.Error()))
		return
	}

	switch msg := decoded.(type) {
	case *MicPressMessage:
		c.ctrl.Dispatch(voice.MicPressed{Bearer: msg.Bearer})

	case *MicFrameMessage:
		frame, err := base64.StdEncoding.DecodeString(msg.Audio)
		if err != nil {
			c.logger.Warn("Dropped undecodable mic frame", zap.Error(err))
			return
		}
		c.capture.push(frame)

	case *PlaybackDoneMessage:
		c.player.finished()
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode outbound message", zap.Error(err))
		return
	}
	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
	default:
		c.logger.Warn("Outbound buffer full, dropping message",
			zap.String("sessionID", c.sessionID))
	}
}

// Status implements voice.Sink
func (c *Client) Status(status string) {
	c.sendJSON(CreateStatusMessage(status))
}

// AssistantDelta implements voice.Sink
func (c *Client) AssistantDelta(text string) {
	c.sendJSON(&AssistantTextMessage{
		BaseMessage: BaseMessage{Type: MessageTypeAssistantText},
		Delta:       text,
	})
}

// Utterance implements voice.Sink
func (c *Client) Utterance(entry entities.TranscriptEntry) {
	c.sendJSON(&TranscriptMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeTranscript,
			Timestamp: entry.Timestamp.Format(time.RFC3339),
		},
		Speaker: string(entry.Speaker),
		Text:    entry.Text,
	})
}

// frameCapture adapts device mic frames into the controller's capture
// contract: started by the controller, fed by the socket's read pump.
type frameCapture struct {
	mu      sync.Mutex
	frames  chan []byte
	started bool
}

func newFrameCapture() *frameCapture {
	return &frameCapture{}
}

// Start implements repositories.AudioCapture
func (f *frameCapture) Start(ctx context.Context, config repositories.CaptureConfig) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return f.frames, nil
	}
	f.frames = make(chan []byte, 64)
	f.started = true
	return f.frames, nil
}

// Stop implements repositories.AudioCapture
func (f *frameCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	f.started = false
	close(f.frames)
}

// push delivers one raw PCM frame. Frames arriving before Start or after
// Stop are dropped, as are frames when the buffer is full.
func (f *frameCapture) push(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return
	}
	select {
	case f.frames <- frame:
	default:
	}
}

// replyPlayer ships assembled WAV clips down the socket and waits for the
// device's playback_done before reporting completion.
type replyPlayer struct {
	client  *Client
	mu      sync.Mutex
	pending func()
}

// Play implements repositories.AudioPlayer. The clip file is consumed and
// removed; the done callback fires when the device acknowledges playback.
func (p *replyPlayer) Play(ctx context.Context, path string, done func()) error {
	data, err := os.ReadFile(path)
	os.Remove(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	// A reply superseding an unacknowledged one abandons the old callback;
	// the controller already reset its turn state on the new response.
	p.pending = done
	p.mu.Unlock()

	p.client.sendJSON(&ReplyMessage{
		BaseMessage: BaseMessage{Type: MessageTypeReply},
		Audio:       base64.StdEncoding.EncodeToString(data),
	})
	return nil
}

// Stop implements repositories.AudioPlayer
func (p *replyPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
}

// finished fires the pending done callback exactly once.
func (p *replyPlayer) finished() {
	p.mu.Lock()
	done := p.pending
	p.pending = nil
	p.mu.Unlock()
	if done != nil {
		done()
	}
}
