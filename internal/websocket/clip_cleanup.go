package websocket

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/sufrahq/sufra-voice/adapters/audio"
)

// ClipCleanupService removes orphaned reply clips from the temp directory.
// Clips are normally deleted right after delivery, but a socket dying
// between assembly and send leaves the file behind.
type ClipCleanupService struct {
	dir      string
	maxAge   time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewClipCleanupService creates a new clip cleanup service
func NewClipCleanupService(logger *zap.Logger) *ClipCleanupService {
	return &ClipCleanupService{
		dir:      os.TempDir(),
		maxAge:   time.Hour,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background cleanup process
func (s *ClipCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Clip cleanup service started")
}

// Stop gracefully stops the cleanup service
func (s *ClipCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Clip cleanup service stopped")
}

// cleanupLoop runs the cleanup process periodically
func (s *ClipCleanupService) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	initialTimer := time.NewTimer(1 * time.Minute)
	defer initialTimer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-initialTimer.C:
			s.runCleanup()
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

// runCleanup deletes reply clips older than maxAge
func (s *ClipCleanupService) runCleanup() {
	pattern := filepath.Join(s.dir, audio.ClipPattern)
	paths, err := filepath.Glob(pattern)
	if err != nil {
		s.logger.Error("Failed to scan for stale clips", zap.Error(err))
		return
	}

	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("Removed stale reply clips", zap.Int("count", removed))
	}
}
