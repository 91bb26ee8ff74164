package audio

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const (
	// SampleRate is the fixed capture and playback sample rate.
	SampleRate = 24000
	// Channels is the fixed channel count (mono).
	Channels = 1
	// BitDepth is the fixed sample width.
	BitDepth = 16

	headerSize = 44
)

// WAVHeader synthesizes a minimal 44-byte RIFF/WAVE header for linear PCM
// data of the given byte length.
func WAVHeader(pcmDataLength, sampleRate, numChannels, bitDepth int) []byte {
	byteRate := sampleRate * numChannels * (bitDepth / 8)
	blockAlign := numChannels * (bitDepth / 8)

	buf := bytes.NewBuffer(make([]byte, 0, headerSize))
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+pcmDataLength))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16)) // fmt chunk length
	binary.Write(buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(buf, binary.LittleEndian, uint16(bitDepth))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(pcmDataLength))
	return buf.Bytes()
}

// ReplyBuffer accumulates the base64 PCM deltas of one assistant reply.
// Deltas are kept encoded until the end-of-audio marker; playback never
// starts from partial audio.
type ReplyBuffer struct {
	deltas []string
}

// Append adds one base64 PCM delta.
func (b *ReplyBuffer) Append(delta string) {
	if delta == "" {
		return
	}
	b.deltas = append(b.deltas, delta)
}

// Len reports the number of buffered deltas.
func (b *ReplyBuffer) Len() int {
	return len(b.deltas)
}

// Reset discards any buffered deltas.
func (b *ReplyBuffer) Reset() {
	b.deltas = nil
}

// Assemble decodes and concatenates all buffered deltas, prepends a WAV
// header, and returns the self-contained clip. The buffer is reset.
func (b *ReplyBuffer) Assemble() ([]byte, error) {
	var pcm bytes.Buffer
	for idx, delta := range b.deltas {
		raw, err := base64.StdEncoding.DecodeString(delta)
		if err != nil {
			b.Reset()
			return nil, fmt.Errorf("bad audio delta %d: %w", idx, err)
		}
		pcm.Write(raw)
	}
	b.Reset()

	if pcm.Len() == 0 {
		return nil, fmt.Errorf("no audio data to assemble")
	}

	clip := make([]byte, 0, headerSize+pcm.Len())
	clip = append(clip, WAVHeader(pcm.Len(), SampleRate, Channels, BitDepth)...)
	clip = append(clip, pcm.Bytes()...)
	return clip, nil
}

// ClipPattern matches the temp files WriteClip produces.
const ClipPattern = "reply_*.wav"

// WriteClip writes an assembled clip to a uniquely named temp file and
// returns its path. Unique names make sub-second replies collision-free.
func WriteClip(clip []byte) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("reply_%s.wav", uuid.NewString()))
	if err := os.WriteFile(path, clip, 0o600); err != nil {
		return "", fmt.Errorf("failed to write audio clip: %w", err)
	}
	return path, nil
}
