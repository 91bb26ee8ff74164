package repositories

import "context"

// CaptureConfig describes the fixed capture format: mono 16-bit signed PCM
// at a fixed sample rate, delivered in bounded frames.
type CaptureConfig struct {
	SampleRate int
	Channels   int
	FrameSize  int // bytes per delivered frame
}

// AudioCapture produces a continuous stream of raw PCM microphone frames.
type AudioCapture interface {
	// Start begins capture and returns a channel of raw PCM frames. The
	// channel is closed when capture stops or ctx is cancelled.
	Start(ctx context.Context, config CaptureConfig) (<-chan []byte, error)
	// Stop halts capture. Idempotent.
	Stop()
}

// AudioPlayer plays one assembled clip at a time. Implementations must stop
// and release any currently playing clip before starting a new one.
type AudioPlayer interface {
	// Play starts playback of the clip at path and calls done exactly once
	// when playback finishes naturally or fails. A failed playback still
	// reports done so the caller's turn-taking cannot deadlock.
	Play(ctx context.Context, path string, done func()) error
	// Stop halts and releases any in-flight playback without calling its
	// done callback. Idempotent.
	Stop()
}
