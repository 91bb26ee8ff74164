package voice

import "github.com/sufrahq/sufra-voice/adapters/realtime"

// Event is one input to the session controller's run loop. Socket
// callbacks, captured frames, playback completions, timers, and user
// actions all arrive as Events on a single channel, so every state
// mutation is serialized without locks.
type Event interface {
	isEvent()
}

// MicPressed is the user tapping the mic control. With no open connection
// it starts one; while Listening it forces an immediate end of turn.
type MicPressed struct {
	// Bearer is the caller's auth token, empty in guest mode.
	Bearer string
}

// OverlayClosed is the user dismissing the voice overlay. It tears the
// session down and ends the run loop.
type OverlayClosed struct{}

// FrameCaptured carries one base64-encoded PCM frame from the capture
// adapter.
type FrameCaptured struct {
	Audio string
}

// PlaybackFinished is the playback adapter reporting that the current
// reply clip completed (or failed, which counts as completed).
type PlaybackFinished struct{}

// SocketOpened reports a successful realtime connection.
type SocketOpened struct {
	Conn realtime.Conn
}

// ConnectFailed reports a failed credential fetch or dial.
type ConnectFailed struct {
	Err error
}

// SocketEvent wraps one decoded inbound realtime event.
type SocketEvent struct {
	Event realtime.ServerEvent
}

// SocketClosed reports that the realtime socket ended.
type SocketClosed struct {
	Info realtime.CloseInfo
}

// greetingDue and captureDue are internal timer ticks: the greeting request
// fires shortly after configuration, capture starts after a settle delay so
// connection noise is not recorded.
type greetingDue struct{}
type captureDue struct{}

func (MicPressed) isEvent()       {}
func (OverlayClosed) isEvent()    {}
func (FrameCaptured) isEvent()    {}
func (PlaybackFinished) isEvent() {}
func (SocketOpened) isEvent()     {}
func (ConnectFailed) isEvent()    {}
func (SocketEvent) isEvent()      {}
func (SocketClosed) isEvent()     {}
func (greetingDue) isEvent()      {}
func (captureDue) isEvent()       {}
