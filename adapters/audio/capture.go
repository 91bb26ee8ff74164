package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/repositories"
)

// DefaultCaptureConfig is the fixed microphone format: 24 kHz mono s16le,
// delivered in 4 KB frames.
var DefaultCaptureConfig = repositories.CaptureConfig{
	SampleRate: SampleRate,
	Channels:   Channels,
	FrameSize:  4096,
}

// MalgoCapture implements AudioCapture over a miniaudio capture device.
type MalgoCapture struct {
	logger *zap.Logger

	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	frames  chan []byte
	stopped bool
}

var _ repositories.AudioCapture = (*MalgoCapture)(nil)

// NewMalgoCapture creates an uninitialized microphone capture adapter.
func NewMalgoCapture(logger *zap.Logger) *MalgoCapture {
	return &MalgoCapture{logger: logger}
}

// Start opens the default capture device and begins delivering PCM frames.
// Frames are dropped, not queued, when the consumer falls behind; stale
// audio must never pile up between turns.
func (m *MalgoCapture) Start(ctx context.Context, config repositories.CaptureConfig) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return nil, fmt.Errorf("capture already running")
	}

	allocCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to init audio context: %w", err)
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = uint32(config.Channels)
	deviceConfig.SampleRate = uint32(config.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = 20

	frames := make(chan []byte, 32)
	var pending []byte

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			pending = append(pending, samples...)
			for len(pending) >= config.FrameSize {
				frame := make([]byte, config.FrameSize)
				copy(frame, pending[:config.FrameSize])
				pending = pending[config.FrameSize:]
				select {
				case frames <- frame:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(allocCtx.Context, deviceConfig, callbacks)
	if err != nil {
		allocCtx.Uninit()
		return nil, fmt.Errorf("failed to init capture device: %w", err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		allocCtx.Uninit()
		return nil, fmt.Errorf("failed to start capture device: %w", err)
	}

	m.ctx = allocCtx
	m.device = device
	m.frames = frames
	m.stopped = false

	go func() {
		<-ctx.Done()
		m.Stop()
	}()

	m.logger.Info("Microphone capture started",
		zap.Int("sampleRate", config.SampleRate),
		zap.Int("frameSize", config.FrameSize))
	return frames, nil
}

// Stop halts capture and releases the device. Idempotent.
func (m *MalgoCapture) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped || m.device == nil {
		return
	}
	m.stopped = true

	m.device.Uninit()
	m.ctx.Uninit()
	close(m.frames)
	m.device = nil
	m.ctx = nil
	m.logger.Info("Microphone capture stopped")
}
