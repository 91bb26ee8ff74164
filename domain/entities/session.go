package entities

import (
	"errors"
	"time"
)

// SessionState represents the lifecycle state of a voice session
type SessionState string

const (
	SessionStateIdle       SessionState = "idle"
	SessionStateConnecting SessionState = "connecting"
	SessionStateReady      SessionState = "ready"
	SessionStateListening  SessionState = "listening"
	SessionStateSpeaking   SessionState = "speaking"
	SessionStateError      SessionState = "error"
	SessionStateClosed     SessionState = "closed"
)

// Speaker identifies who produced a transcript entry
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// TranscriptEntry is one utterance in the session transcript
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// VoiceSession is one realtime voice-ordering conversation. At most one
// exists per connected client; it lives only for the duration of the
// connection and is never persisted.
//
// All mutation happens on the session controller's run loop, so the entity
// itself carries no locking. Transitions go through the named methods below
// to keep the state machine auditable.
type VoiceSession struct {
	ID         string
	UserID     string
	State      SessionState
	Status     string // short human-readable status string for the client
	Transcript []TranscriptEntry

	// Restaurant selected via the select_restaurant tool. Overwritten when
	// the user switches restaurants, nil until the first selection.
	Restaurant *Restaurant

	CreatedAt time.Time
}

// ErrInvalidTransition is returned when a state change is not allowed from
// the session's current state.
var ErrInvalidTransition = errors.New("invalid session state transition")

// NewVoiceSession creates an idle session for a user. userID may be a guest
// identity; the session does not care.
func NewVoiceSession(id, userID string) *VoiceSession {
	return &VoiceSession{
		ID:        id,
		UserID:    userID,
		State:     SessionStateIdle,
		Status:    "Idle",
		CreatedAt: time.Now(),
	}
}

// BeginConnecting moves Idle (or a recoverable Error) into Connecting.
func (s *VoiceSession) BeginConnecting() error {
	if s.State != SessionStateIdle && s.State != SessionStateError {
		return ErrInvalidTransition
	}
	s.State = SessionStateConnecting
	s.Status = "Connecting..."
	return nil
}

// MarkReady is called when the realtime socket opens.
func (s *VoiceSession) MarkReady() error {
	if s.State != SessionStateConnecting {
		return ErrInvalidTransition
	}
	s.State = SessionStateReady
	s.Status = "Ready"
	return nil
}

// BeginListening is called once audio capture is running.
func (s *VoiceSession) BeginListening() error {
	if s.State != SessionStateReady && s.State != SessionStateSpeaking {
		return ErrInvalidTransition
	}
	s.State = SessionStateListening
	s.Status = "Listening..."
	return nil
}

// BeginSpeaking is called on the generation-started signal. Captured frames
// must be suppressed until FinishSpeaking.
func (s *VoiceSession) BeginSpeaking() error {
	switch s.State {
	case SessionStateReady, SessionStateListening, SessionStateSpeaking:
		s.State = SessionStateSpeaking
		s.Status = "Speaking"
		return nil
	}
	return ErrInvalidTransition
}

// FinishSpeaking is called when reply playback genuinely completes.
func (s *VoiceSession) FinishSpeaking() error {
	if s.State != SessionStateSpeaking {
		return ErrInvalidTransition
	}
	s.State = SessionStateListening
	s.Status = "Listening..."
	return nil
}

// Fail records a connection-level error. The session stays user-dismissable
// and can be reconnected via BeginConnecting.
func (s *VoiceSession) Fail(status string) {
	if s.State == SessionStateClosed {
		return
	}
	s.State = SessionStateError
	s.Status = status
}

// Close tears the session down. Safe to call from any state, repeatedly.
func (s *VoiceSession) Close() {
	s.State = SessionStateClosed
	s.Status = "Disconnected"
	s.Restaurant = nil
}

// Suppressed reports whether captured audio frames must be dropped instead
// of forwarded. This is the half-duplex gate: the assistant must never hear
// itself.
func (s *VoiceSession) Suppressed() bool {
	return s.State != SessionStateListening
}

// Active reports whether the session still owns a live connection.
func (s *VoiceSession) Active() bool {
	switch s.State {
	case SessionStateConnecting, SessionStateReady, SessionStateListening, SessionStateSpeaking:
		return true
	}
	return false
}

// AppendTranscript records an utterance. Empty texts are ignored so blank
// transcription events don't pollute the conversation log.
func (s *VoiceSession) AppendTranscript(speaker Speaker, text string) {
	if text == "" {
		return
	}
	s.Transcript = append(s.Transcript, TranscriptEntry{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now(),
	})
}

// SelectRestaurant binds the session to a restaurant context, replacing any
// previous selection.
func (s *VoiceSession) SelectRestaurant(r *Restaurant) {
	s.Restaurant = r
}
