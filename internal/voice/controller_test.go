package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/realtime"
	"github.com/sufrahq/sufra-voice/domain/entities"
	"github.com/sufrahq/sufra-voice/domain/repositories"
)

type fakeConn struct {
	mu     sync.Mutex
	sent   []interface{}
	events chan realtime.ServerEvent
	closed bool
	info   realtime.CloseInfo
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan realtime.ServerEvent, 16)}
}

func (f *fakeConn) Send(msg interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeConn) Events() <-chan realtime.ServerEvent { return f.events }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}

func (f *fakeConn) CloseReason() realtime.CloseInfo { return f.info }

func (f *fakeConn) sentMessages() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeIssuer struct {
	err error
}

func (f *fakeIssuer) Issue(ctx context.Context, bearer string) (repositories.EphemeralCredential, error) {
	if f.err != nil {
		return repositories.EphemeralCredential{}, f.err
	}
	return repositories.EphemeralCredential{Secret: "ek_test", ExpiresAt: time.Now().Add(time.Minute)}, nil
}

type fakeCapture struct {
	mu      sync.Mutex
	frames  chan []byte
	started bool
	stopped bool
}

func newFakeCapture() *fakeCapture {
	return &fakeCapture{frames: make(chan []byte, 16)}
}

func (f *fakeCapture) Start(ctx context.Context, config repositories.CaptureConfig) (<-chan []byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
	return f.frames, nil
}

func (f *fakeCapture) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.stopped {
		f.stopped = true
		close(f.frames)
	}
}

func (f *fakeCapture) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type fakePlayer struct {
	mu      sync.Mutex
	played  []string
	stopped bool
}

func (f *fakePlayer) Play(ctx context.Context, path string, done func()) error {
	f.mu.Lock()
	f.played = append(f.played, path)
	f.mu.Unlock()
	go done()
	return nil
}

func (f *fakePlayer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type recordSink struct {
	mu       sync.Mutex
	statuses []string
}

func (r *recordSink) Status(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recordSink) AssistantDelta(string)              {}
func (r *recordSink) Utterance(entities.TranscriptEntry) {}

func (r *recordSink) sawStatus(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.statuses {
		if got == s {
			return true
		}
	}
	return false
}

type fixture struct {
	ctrl    *Controller
	conn    *fakeConn
	capture *fakeCapture
	player  *fakePlayer
	sink    *recordSink
	cancel  context.CancelFunc
}

func startFixture(t *testing.T, issuer repositories.CredentialIssuer) *fixture {
	t.Helper()

	conn := newFakeConn()
	capture := newFakeCapture()
	player := &fakePlayer{}
	sink := &recordSink{}

	cfg := Config{
		UserID:      "user-1",
		Issuer:      issuer,
		Capture:     capture,
		Player:      player,
		Restaurants: testRestaurants(),
		Orders:      &fakeOrderPlacer{},
		Sink:        sink,
		Logger:      zap.NewNop(),
		Dial: func(ctx context.Context, endpoint, secret string, logger *zap.Logger) (realtime.Conn, error) {
			return conn, nil
		},
		GreetingDelay: time.Millisecond,
		CaptureDelay:  time.Millisecond,
	}

	ctrl := NewController("sess-1", cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go ctrl.Run(ctx)
	t.Cleanup(cancel)

	return &fixture{ctrl: ctrl, conn: conn, capture: capture, player: player, sink: sink, cancel: cancel}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testRestaurants() []*entities.Restaurant {
	return []*entities.Restaurant{
		{
			ID:     "albaik",
			NameAr: "البيك",
			NameEn: "Al Baik",
			Menu: []entities.MenuCategory{
				{
					CategoryAr: "وجبات",
					Items: []entities.MenuItem{
						{ID: "meal-1", NameAr: "وجبة دجاج", Price: 25, Available: true},
					},
				},
			},
		},
	}
}

type fakeOrderPlacer struct{}

func (fakeOrderPlacer) ConfirmVoiceOrder(ctx context.Context, userID, summary string, total float64) (string, error) {
	return "order-1", nil
}

func TestControllerConfiguresSessionOnOpen(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})

	waitFor(t, "session.update to be sent", func() bool {
		return len(f.conn.sentMessages()) > 0
	})

	first, ok := f.conn.sentMessages()[0].(realtime.SessionUpdateMessage)
	if !ok {
		t.Fatalf("first message = %T, want SessionUpdateMessage", f.conn.sentMessages()[0])
	}
	if first.Session.Voice != "alloy" {
		t.Errorf("voice = %q, want alloy", first.Session.Voice)
	}
	if len(first.Session.Tools) != 2 {
		t.Errorf("tools = %d, want 2", len(first.Session.Tools))
	}
	if first.Session.TurnDetection == nil || first.Session.TurnDetection.Type != "server_vad" {
		t.Error("expected server_vad turn detection")
	}
	if first.Session.InputAudioFormat != "pcm16" || first.Session.OutputAudioFormat != "pcm16" {
		t.Error("expected pcm16 audio formats both ways")
	}
}

func TestControllerSuppressesFramesWhileSpeaking(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})

	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	// Generation starts: the very next frame must be dropped.
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeResponseCreated}
	waitFor(t, "speaking state", func() bool { return f.sink.sawStatus("Speaking") })

	before := countAudioAppends(f.conn.sentMessages())
	f.ctrl.Dispatch(FrameCaptured{Audio: "c3VwcHJlc3NlZA=="})

	// Empty reply buffer makes audio.done complete playback immediately.
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeAudioDone}
	waitFor(t, "listening resumed", func() bool {
		return f.ctrl.Session().State == entities.SessionStateListening
	})

	if got := countAudioAppends(f.conn.sentMessages()); got != before {
		t.Errorf("frames forwarded while speaking: appends %d -> %d", before, got)
	}

	f.ctrl.Dispatch(FrameCaptured{Audio: "Zm9yd2FyZGVk"})
	waitFor(t, "frame forwarded after resume", func() bool {
		return countAudioAppends(f.conn.sentMessages()) == before+1
	})
}

func countAudioAppends(msgs []interface{}) int {
	n := 0
	for _, m := range msgs {
		if in, ok := m.(realtime.InputAudioMessage); ok && in.Type == realtime.TypeInputAudioAppend {
			n++
		}
	}
	return n
}

func TestControllerAnswersEveryToolCall(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	f.conn.events <- realtime.ServerEvent{
		Type: realtime.TypeOutputItemDone,
		Item: &realtime.OutputItem{
			Type:      "function_call",
			Name:      "select_restaurant",
			CallID:    "call-42",
			Arguments: `{"restaurant_name":"البيك"}`,
		},
	}

	var result realtime.ConversationItemMessage
	waitFor(t, "tool result", func() bool {
		for _, m := range f.conn.sentMessages() {
			if item, ok := m.(realtime.ConversationItemMessage); ok {
				result = item
				return true
			}
		}
		return false
	})

	if result.Item.CallID != "call-42" {
		t.Errorf("call id = %q, want call-42", result.Item.CallID)
	}
	if result.Item.Type != "function_call_output" {
		t.Errorf("item type = %q", result.Item.Type)
	}

	// The result must be followed by a generation request.
	waitFor(t, "follow-up response.create", func() bool {
		msgs := f.conn.sentMessages()
		for i, m := range msgs {
			if _, ok := m.(realtime.ConversationItemMessage); ok {
				return i+1 < len(msgs)
			}
		}
		return false
	})
	msgs := f.conn.sentMessages()
	for i, m := range msgs {
		if _, ok := m.(realtime.ConversationItemMessage); ok {
			next, okNext := msgs[i+1].(realtime.ResponseCreateMessage)
			if !okNext || next.Type != realtime.TypeResponseCreate {
				t.Fatalf("message after tool result = %#v, want response.create", msgs[i+1])
			}
			break
		}
	}

	// A selection also re-issues session instructions with the menu.
	updates := 0
	for _, m := range msgs {
		if _, ok := m.(realtime.SessionUpdateMessage); ok {
			updates++
		}
	}
	if updates < 2 {
		t.Errorf("session.update count = %d, want initial + menu swap", updates)
	}
}

func TestControllerUnknownToolStaysUsable(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	f.conn.events <- realtime.ServerEvent{
		Type: realtime.TypeOutputItemDone,
		Item: &realtime.OutputItem{
			Type:      "function_call",
			Name:      "delete_everything",
			CallID:    "call-1",
			Arguments: `{}`,
		},
	}

	waitFor(t, "failure tool result", func() bool {
		for _, m := range f.conn.sentMessages() {
			if item, ok := m.(realtime.ConversationItemMessage); ok {
				return item.Item.CallID == "call-1"
			}
		}
		return false
	})

	if !f.ctrl.Session().Active() {
		t.Errorf("session state = %s, want still active", f.ctrl.Session().State)
	}
}

func TestControllerUnknownServerEventIsNoOp(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	f.conn.events <- realtime.ServerEvent{Type: "rate_limits.updated"}
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeError, Error: &realtime.ServerError{Message: "slow down"}}

	// The session must stay where it was.
	time.Sleep(20 * time.Millisecond)
	if f.ctrl.Session().State != entities.SessionStateListening {
		t.Errorf("state = %s, want listening", f.ctrl.Session().State)
	}
}

func TestControllerTeardownIsIdempotent(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	f.ctrl.Dispatch(OverlayClosed{})
	waitFor(t, "closed state", func() bool {
		return f.ctrl.Session().State == entities.SessionStateClosed
	})

	if !f.capture.isStopped() {
		t.Error("capture still running after close")
	}
	if !f.conn.isClosed() {
		t.Error("socket still open after close")
	}

	// Further dispatches after shutdown must not block or panic.
	f.ctrl.Dispatch(OverlayClosed{})
	f.ctrl.Dispatch(FrameCaptured{Audio: "bGF0ZQ=="})
}

func TestControllerCloseWhileConnectingClosesLateSocket(t *testing.T) {
	conn := newFakeConn()
	capture := newFakeCapture()
	sink := &recordSink{}
	release := make(chan struct{})

	cfg := Config{
		UserID:      "user-1",
		Issuer:      &fakeIssuer{},
		Capture:     capture,
		Player:      &fakePlayer{},
		Restaurants: testRestaurants(),
		Orders:      &fakeOrderPlacer{},
		Sink:        sink,
		Logger:      zap.NewNop(),
		// The dial completes only after the overlay is already gone.
		Dial: func(ctx context.Context, endpoint, secret string, logger *zap.Logger) (realtime.Conn, error) {
			<-release
			return conn, nil
		},
		GreetingDelay: time.Millisecond,
		CaptureDelay:  time.Millisecond,
	}

	ctrl := NewController("sess-1", cfg)
	go ctrl.Run(context.Background())

	ctrl.Dispatch(MicPressed{})
	waitFor(t, "connecting state", func() bool {
		return ctrl.Session().State == entities.SessionStateConnecting
	})

	ctrl.Dispatch(OverlayClosed{})
	waitFor(t, "run loop exit", func() bool {
		select {
		case <-ctrl.done:
			return true
		default:
			return false
		}
	})

	close(release)
	waitFor(t, "late-dialed socket to be closed", func() bool {
		return conn.isClosed()
	})
}

func TestControllerConnectFailureIsRecoverable(t *testing.T) {
	issuer := &fakeIssuer{err: errors.New("credential service down")}
	f := startFixture(t, issuer)

	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "error state", func() bool {
		return f.ctrl.Session().State == entities.SessionStateError
	})

	// The user presses the mic again once the outage clears.
	issuer.err = nil
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "reconnect", func() bool { return f.sink.sawStatus("Listening...") })
}

func TestControllerTranscriptAccumulation(t *testing.T) {
	f := startFixture(t, &fakeIssuer{})
	f.ctrl.Dispatch(MicPressed{})
	waitFor(t, "listening state", func() bool { return f.sink.sawStatus("Listening...") })

	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeInputTranscriptCompleted, Transcript: "  أبغى البيك  "}
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeInputTranscriptCompleted, Transcript: "   "}
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeTranscriptDelta, Delta: "حياك "}
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeTranscriptDelta, Delta: "الله"}
	f.conn.events <- realtime.ServerEvent{Type: realtime.TypeTranscriptDone}

	waitFor(t, "two transcript entries", func() bool {
		return len(f.ctrl.Session().Transcript) == 2
	})

	entries := f.ctrl.Session().Transcript
	if entries[0].Speaker != entities.SpeakerUser || entries[0].Text != "أبغى البيك" {
		t.Errorf("user entry = %+v", entries[0])
	}
	if entries[1].Speaker != entities.SpeakerAssistant || entries[1].Text != "حياك الله" {
		t.Errorf("assistant entry = %+v", entries[1])
	}
}
