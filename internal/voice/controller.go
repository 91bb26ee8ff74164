package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/audio"
	"github.com/sufrahq/sufra-voice/adapters/realtime"
	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

const (
	defaultVoice         = "alloy"
	defaultGreetingDelay = 500 * time.Millisecond
	// Capture starts well after the socket opens so the connection's own
	// noise never reaches the input buffer.
	defaultCaptureDelay = 3 * time.Second

	vadThreshold         = 0.45
	vadPrefixPaddingMs   = 500
	vadSilenceDurationMs = 750
)

// Sink receives user-visible session output: status strings, streaming
// assistant text, and completed utterances. Implementations must be cheap;
// they are called from the controller's run loop.
type Sink interface {
	Status(status string)
	AssistantDelta(text string)
	Utterance(entry entities.TranscriptEntry)
}

// NopSink discards all output.
type NopSink struct{}

func (NopSink) Status(string)                      {}
func (NopSink) AssistantDelta(string)              {}
func (NopSink) Utterance(entities.TranscriptEntry) {}

// DialFunc opens a realtime connection with an ephemeral secret. Injected
// so tests can run the controller against a synthetic socket.
type DialFunc func(ctx context.Context, endpoint, secret string, logger *zap.Logger) (realtime.Conn, error)

func defaultDial(ctx context.Context, endpoint, secret string, logger *zap.Logger) (realtime.Conn, error) {
	return realtime.Dial(ctx, endpoint, secret, logger)
}

// Config wires a Controller's collaborators.
type Config struct {
	UserID      string
	Issuer      repositories.CredentialIssuer
	Capture     repositories.AudioCapture
	Player      repositories.AudioPlayer
	Restaurants []*entities.Restaurant
	Orders      OrderPlacer
	Sink        Sink
	Logger      *zap.Logger

	// Optional overrides
	Dial          DialFunc
	Endpoint      string
	Voice         string
	CaptureConfig repositories.CaptureConfig
	GreetingDelay time.Duration
	CaptureDelay  time.Duration
}

// Controller owns one voice-ordering session: the realtime connection, the
// turn-taking state machine, audio reassembly, and tool-call dispatch. All
// state mutation happens on the Run loop; every external signal enters as
// an Event through Dispatch.
type Controller struct {
	cfg        Config
	session    *entities.VoiceSession
	dispatcher *Dispatcher
	logger     *zap.Logger

	events chan Event
	done   chan struct{}

	// mu guards closed; everything else is run-loop state. deliverConn and
	// shutdown synchronize on it so a dial finishing mid-teardown never
	// strands its connection.
	mu     sync.Mutex
	closed bool

	conn   realtime.Conn
	reply  audio.ReplyBuffer
	aiText strings.Builder
	timers []*time.Timer

	runCtx    context.Context
	runCancel context.CancelFunc

	capturing  bool
	userClosed bool
}

// NewController creates a controller for one overlay instance.
func NewController(sessionID string, cfg Config) *Controller {
	if cfg.Sink == nil {
		cfg.Sink = NopSink{}
	}
	if cfg.Dial == nil {
		cfg.Dial = defaultDial
	}
	if cfg.Voice == "" {
		cfg.Voice = defaultVoice
	}
	if cfg.CaptureConfig == (repositories.CaptureConfig{}) {
		cfg.CaptureConfig = audio.DefaultCaptureConfig
	}
	if cfg.GreetingDelay == 0 {
		cfg.GreetingDelay = defaultGreetingDelay
	}
	if cfg.CaptureDelay == 0 {
		cfg.CaptureDelay = defaultCaptureDelay
	}

	c := &Controller{
		cfg:     cfg,
		session: entities.NewVoiceSession(sessionID, cfg.UserID),
		logger:  cfg.Logger,
		events:  make(chan Event, 128),
		done:    make(chan struct{}),
	}
	c.dispatcher = NewDispatcher(cfg.Restaurants, cfg.Orders, c.restaurantSelected, cfg.Logger)
	return c
}

// Session exposes the session entity for read-only inspection (state,
// transcript). Callers must not mutate it.
func (c *Controller) Session() *entities.VoiceSession {
	return c.session
}

// Dispatch enqueues an event for the run loop. Safe from any goroutine;
// becomes a no-op once the controller has shut down.
func (c *Controller) Dispatch(ev Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

// Run processes events until the overlay closes or ctx is cancelled. It
// always leaves the system torn down: no capture stream, no playback, no
// socket.
func (c *Controller) Run(ctx context.Context) {
	c.runCtx, c.runCancel = context.WithCancel(ctx)
	defer c.runCancel()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case ev := <-c.events:
			if _, isClose := ev.(OverlayClosed); isClose {
				c.shutdown()
				return
			}
			c.handle(ev)
		}
	}
}

// shutdown tears everything down and then drains the event queue: a dial
// that raced the close may already have enqueued its connection, and that
// socket must not outlive the controller.
func (c *Controller) shutdown() {
	c.teardown()

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	close(c.done)

	for {
		select {
		case ev := <-c.events:
			if opened, ok := ev.(SocketOpened); ok {
				opened.Conn.Close()
			}
		default:
			return
		}
	}
}

func (c *Controller) handle(ev Event) {
	switch ev := ev.(type) {
	case MicPressed:
		c.handleMicPressed(ev)
	case FrameCaptured:
		c.handleFrame(ev)
	case PlaybackFinished:
		c.handlePlaybackFinished()
	case SocketOpened:
		c.handleSocketOpened(ev)
	case ConnectFailed:
		c.handleConnectFailed(ev)
	case SocketEvent:
		c.handleServerEvent(ev.Event)
	case SocketClosed:
		c.handleSocketClosed(ev)
	case greetingDue:
		c.handleGreetingDue()
	case captureDue:
		c.handleCaptureDue()
	}
}

// handleMicPressed either opens a connection or, while Listening, forces an
// immediate end of turn (covers silence-detection misses and fast
// dictation).
func (c *Controller) handleMicPressed(ev MicPressed) {
	if c.session.Active() {
		if c.session.State == entities.SessionStateListening {
			c.send(realtime.InputAudioMessage{Type: realtime.TypeInputAudioCommit})
			c.send(realtime.ResponseCreateMessage{
				Type:     realtime.TypeResponseCreate,
				Response: &realtime.ResponseConfig{Modalities: []string{"text", "audio"}},
			})
			c.status("Processing...")
		}
		return
	}

	if err := c.session.BeginConnecting(); err != nil {
		return
	}
	c.status(c.session.Status)

	go c.connect(ev.Bearer)
}

// connect acquires an ephemeral credential and dials. Runs off the loop;
// reports back via events.
func (c *Controller) connect(bearer string) {
	cred, err := c.cfg.Issuer.Issue(c.runCtx, bearer)
	if err != nil {
		c.Dispatch(ConnectFailed{Err: err})
		return
	}

	conn, err := c.cfg.Dial(c.runCtx, c.cfg.Endpoint, cred.Secret, c.logger)
	if err != nil {
		c.Dispatch(ConnectFailed{Err: err})
		return
	}
	if !c.deliverConn(conn) {
		conn.Close()
	}
}

// deliverConn hands a freshly dialed connection to the run loop. Returns
// false once shutdown has begun; the connection then belongs to the caller.
func (c *Controller) deliverConn(conn realtime.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.events <- SocketOpened{Conn: conn}:
		return true
	default:
		return false
	}
}

func (c *Controller) handleConnectFailed(ev ConnectFailed) {
	c.logger.Error("Voice session connect failed", zap.Error(ev.Err))
	c.session.Fail("Failed: " + shortError(ev.Err))
	c.status(c.session.Status)
}

func (c *Controller) handleSocketOpened(ev SocketOpened) {
	if !c.session.Active() {
		// Overlay closed while the dial was in flight.
		ev.Conn.Close()
		return
	}

	c.conn = ev.Conn
	if err := c.session.MarkReady(); err != nil {
		c.logger.Warn("Unexpected ready transition", zap.Error(err))
	}
	c.status(c.session.Status)

	// One configuration message establishes instructions, voice, turn
	// detection, audio formats, and the tool contract.
	c.send(realtime.SessionUpdateMessage{
		Type: realtime.TypeSessionUpdate,
		Session: realtime.SessionConfig{
			Instructions: InitialInstructions(c.cfg.Restaurants, c.cfg.UserID),
			Voice:        c.cfg.Voice,
			TurnDetection: &realtime.TurnDetection{
				Type:              "server_vad",
				Threshold:         vadThreshold,
				PrefixPaddingMs:   vadPrefixPaddingMs,
				SilenceDurationMs: vadSilenceDurationMs,
			},
			Modalities:              []string{"text", "audio"},
			InputAudioFormat:        "pcm16",
			OutputAudioFormat:       "pcm16",
			InputAudioTranscription: &realtime.TranscriptionConf{Model: "whisper-1"},
			Tools:                   ToolSchemas(),
			ToolChoice:              "auto",
		},
	})

	c.after(c.cfg.GreetingDelay, greetingDue{})
	c.after(c.cfg.CaptureDelay, captureDue{})

	go c.pump(ev.Conn)
}

// pump forwards decoded socket events into the run loop until the socket
// closes.
func (c *Controller) pump(conn realtime.Conn) {
	for ev := range conn.Events() {
		c.Dispatch(SocketEvent{Event: ev})
	}
	c.Dispatch(SocketClosed{Info: conn.CloseReason()})
}

func (c *Controller) handleGreetingDue() {
	if c.conn == nil || !c.session.Active() {
		return
	}
	c.send(realtime.ResponseCreateMessage{
		Type: realtime.TypeResponseCreate,
		Response: &realtime.ResponseConfig{
			Modalities:   []string{"text", "audio"},
			Instructions: GreetingInstructions(c.cfg.Restaurants),
		},
	})
}

func (c *Controller) handleCaptureDue() {
	if c.conn == nil || !c.session.Active() || c.capturing {
		return
	}

	frames, err := c.cfg.Capture.Start(c.runCtx, c.cfg.CaptureConfig)
	if err != nil {
		c.logger.Error("Failed to start audio capture", zap.Error(err))
		c.session.Fail("Mic unavailable")
		c.status(c.session.Status)
		return
	}
	c.capturing = true

	if c.session.State == entities.SessionStateReady {
		c.session.BeginListening()
		c.status(c.session.Status)
	}

	go func() {
		for frame := range frames {
			c.Dispatch(FrameCaptured{Audio: base64.StdEncoding.EncodeToString(frame)})
		}
	}()
}

// handleFrame forwards one captured frame unless the session is Speaking,
// in which case the frame is dropped (never queued): half-duplex.
func (c *Controller) handleFrame(ev FrameCaptured) {
	if c.session.Suppressed() || c.conn == nil {
		return
	}
	c.send(realtime.InputAudioMessage{
		Type:  realtime.TypeInputAudioAppend,
		Audio: ev.Audio,
	})
}

func (c *Controller) handleServerEvent(ev realtime.ServerEvent) {
	switch {
	case ev.Type == realtime.TypeResponseCreated:
		// Generation started: mute the mic before the next frame is
		// evaluated, discard our stale reply buffer, and tell the remote
		// side to drop uncommitted input audio.
		c.session.BeginSpeaking()
		c.reply.Reset()
		c.send(realtime.InputAudioMessage{Type: realtime.TypeInputAudioClear})
		c.status(c.session.Status)

	case ev.Type == realtime.TypeAudioDelta:
		c.reply.Append(ev.Delta)

	case ev.Type == realtime.TypeAudioDone:
		c.playReply()

	case ev.Type == realtime.TypeTranscriptDelta:
		c.aiText.WriteString(ev.Delta)
		c.cfg.Sink.AssistantDelta(ev.Delta)

	case ev.Type == realtime.TypeTranscriptDone:
		text := ev.Transcript
		if text == "" {
			text = c.aiText.String()
		}
		c.aiText.Reset()
		c.session.AppendTranscript(entities.SpeakerAssistant, text)
		if text != "" {
			c.cfg.Sink.Utterance(entities.TranscriptEntry{
				Speaker: entities.SpeakerAssistant, Text: text, Timestamp: time.Now(),
			})
		}

	case ev.Type == realtime.TypeInputTranscriptCompleted:
		text := strings.TrimSpace(ev.Transcript)
		c.session.AppendTranscript(entities.SpeakerUser, text)
		if text != "" {
			c.cfg.Sink.Utterance(entities.TranscriptEntry{
				Speaker: entities.SpeakerUser, Text: text, Timestamp: time.Now(),
			})
		}

	case ev.IsFunctionCall():
		c.handleToolCall(ev.Item)

	case ev.Type == realtime.TypeError:
		// Remote-reported errors do not close the socket on our side.
		msg := ""
		if ev.Error != nil {
			msg = ev.Error.Message
		}
		c.logger.Warn("Realtime protocol error", zap.String("message", msg))

	default:
		// Unknown event kinds are no-ops for forward compatibility.
	}
}

// handleToolCall resolves a tool invocation and always answers it: one
// result per call id, followed immediately by the next generation request.
func (c *Controller) handleToolCall(item *realtime.OutputItem) {
	result := c.dispatcher.Dispatch(c.runCtx, c.cfg.UserID, item.Name, item.Arguments)

	output, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("Failed to encode tool result", zap.Error(err))
		output = []byte(`{"success":false,"error":"internal error"}`)
	}

	c.send(realtime.ConversationItemMessage{
		Type: realtime.TypeConversationItemCreate,
		Item: realtime.ConversationItem{
			Type:   "function_call_output",
			CallID: item.CallID,
			Output: string(output),
		},
	})
	c.send(realtime.ResponseCreateMessage{Type: realtime.TypeResponseCreate})
}

// restaurantSelected swaps the session instructions for the full-menu set.
// Called by the dispatcher on the run loop.
func (c *Controller) restaurantSelected(r *entities.Restaurant) {
	c.session.SelectRestaurant(r)
	c.send(realtime.SessionUpdateMessage{
		Type: realtime.TypeSessionUpdate,
		Session: realtime.SessionConfig{
			Instructions: MenuInstructions(r, c.cfg.UserID),
		},
	})
}

// playReply materializes the buffered deltas into one clip and starts
// playback. Any failure is treated as completed playback so the session
// cannot deadlock in Speaking.
func (c *Controller) playReply() {
	if c.reply.Len() == 0 {
		c.Dispatch(PlaybackFinished{})
		return
	}

	clip, err := c.reply.Assemble()
	if err != nil {
		c.logger.Error("Failed to assemble reply audio", zap.Error(err))
		c.Dispatch(PlaybackFinished{})
		return
	}

	path, err := audio.WriteClip(clip)
	if err != nil {
		c.logger.Error("Failed to write reply clip", zap.Error(err))
		c.Dispatch(PlaybackFinished{})
		return
	}

	if err := c.cfg.Player.Play(c.runCtx, path, func() { c.Dispatch(PlaybackFinished{}) }); err != nil {
		c.logger.Error("Failed to start reply playback", zap.Error(err))
		c.Dispatch(PlaybackFinished{})
	}
}

func (c *Controller) handlePlaybackFinished() {
	if c.session.State != entities.SessionStateSpeaking {
		return
	}
	c.session.FinishSpeaking()
	c.status(c.session.Status)
}

func (c *Controller) handleSocketClosed(ev SocketClosed) {
	if c.conn == nil {
		return
	}
	c.conn = nil
	c.stopCapture()
	c.cfg.Player.Stop()

	if c.userClosed {
		return
	}
	if ev.Info.Clean() {
		c.session.Fail("Disconnected")
	} else if ev.Info.Code != 0 {
		c.session.Fail("Closed: " + ev.Info.Reason)
	} else {
		c.session.Fail("Connection lost")
	}
	c.status(c.session.Status)
	c.logger.Info("Realtime socket closed",
		zap.Int("code", ev.Info.Code),
		zap.String("reason", ev.Info.Reason),
		zap.Error(ev.Info.Err))
}

// teardown stops capture, playback, timers, and the socket. Idempotent and
// safe from any state.
func (c *Controller) teardown() {
	c.userClosed = true

	c.stopCapture()
	c.cfg.Player.Stop()

	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	c.session.Close()
	c.status(c.session.Status)
}

func (c *Controller) stopCapture() {
	if !c.capturing {
		return
	}
	c.capturing = false
	c.cfg.Capture.Stop()
}

func (c *Controller) after(d time.Duration, ev Event) {
	c.timers = append(c.timers, time.AfterFunc(d, func() {
		c.Dispatch(ev)
	}))
}

func (c *Controller) send(msg interface{}) {
	if c.conn == nil {
		return
	}
	if err := c.conn.Send(msg); err != nil {
		c.logger.Debug("Realtime send failed", zap.Error(err))
	}
}

func (c *Controller) status(s string) {
	c.cfg.Sink.Status(s)
}

func shortError(err error) string {
	if err == nil {
		return "unknown error"
	}
	msg := err.Error()
	if len(msg) > 80 {
		msg = msg[:80]
	}
	return msg
}
