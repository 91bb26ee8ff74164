package audio

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/domain/repositories"
)

// OtoPlayer implements AudioPlayer on the default output device. One clip
// plays at a time; starting a new clip stops and releases the previous one.
type OtoPlayer struct {
	logger *zap.Logger

	mu      sync.Mutex
	otoCtx  *oto.Context
	current *playback
}

type playback struct {
	player  *oto.Player
	path    string
	stopped bool
}

var _ repositories.AudioPlayer = (*OtoPlayer)(nil)

// NewOtoPlayer initializes the speaker context.
func NewOtoPlayer(logger *zap.Logger) (*OtoPlayer, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800, // ~100ms at 24kHz mono 16-bit
	}
	otoCtx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to init speaker: %w", err)
	}
	<-ready

	return &OtoPlayer{logger: logger, otoCtx: otoCtx}, nil
}

// Play starts playback of the WAV clip at path. done fires exactly once on
// natural completion or failure; a manual Stop suppresses it.
func (p *OtoPlayer) Play(ctx context.Context, path string, done func()) error {
	clip, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read clip: %w", err)
	}
	if len(clip) <= headerSize {
		return fmt.Errorf("clip too short: %d bytes", len(clip))
	}
	pcm := clip[headerSize:] // the device consumes raw PCM

	p.mu.Lock()
	p.stopCurrentLocked()

	player := p.otoCtx.NewPlayer(bytes.NewReader(pcm))
	pb := &playback{player: player, path: path}
	p.current = pb
	p.mu.Unlock()

	player.Play()

	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				p.Stop()
				return
			case <-ticker.C:
			}

			p.mu.Lock()
			if p.current != pb || pb.stopped {
				p.mu.Unlock()
				return
			}
			if !player.IsPlaying() {
				pb.stopped = true
				p.current = nil
				p.mu.Unlock()
				p.release(pb)
				done()
				return
			}
			p.mu.Unlock()
		}
	}()

	return nil
}

// Stop halts and releases any in-flight playback. Idempotent.
func (p *OtoPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCurrentLocked()
}

func (p *OtoPlayer) stopCurrentLocked() {
	if p.current == nil {
		return
	}
	pb := p.current
	p.current = nil
	pb.stopped = true
	p.release(pb)
}

// release closes the device player and deletes the clip's temp file.
func (p *OtoPlayer) release(pb *playback) {
	if err := pb.player.Close(); err != nil {
		p.logger.Debug("Failed to close player", zap.Error(err))
	}
	if pb.path != "" {
		os.Remove(pb.path)
	}
}
