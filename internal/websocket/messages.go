package websocket

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Client-to-server message types
const (
	MessageTypeMicPress     MessageType = "mic_press"
	MessageTypeMicFrame     MessageType = "mic_frame"
	MessageTypePlaybackDone MessageType = "playback_done"
)

// Server-to-client message types
const (
	MessageTypeStatus        MessageType = "status"
	MessageTypeTranscript    MessageType = "transcript"
	MessageTypeAssistantText MessageType = "assistant_text"
	MessageTypeReply         MessageType = "reply"
	MessageTypeError         MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
}

// MicPressMessage toggles the session: first press connects, a press while
// listening forces the end of the current turn.
type MicPressMessage struct {
	BaseMessage
	Bearer string `json:"bearer,omitempty"`
}

// MicFrameMessage carries one base64-encoded PCM microphone frame
type MicFrameMessage struct {
	BaseMessage
	Audio string `json:"audio"`
}

// PlaybackDoneMessage tells the server the device finished playing the last
// reply clip, which resumes listening.
type PlaybackDoneMessage struct {
	BaseMessage
}

// StatusMessage reports the session's current status line
type StatusMessage struct {
	BaseMessage
	Status string `json:"status"`
}

// TranscriptMessage is one completed utterance
type TranscriptMessage struct {
	BaseMessage
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AssistantTextMessage streams the assistant's reply text as it is generated
type AssistantTextMessage struct {
	BaseMessage
	Delta string `json:"delta"`
}

// ReplyMessage carries one complete base64-encoded WAV reply clip. The
// device must answer with playback_done once it finishes playing it.
type ReplyMessage struct {
	BaseMessage
	Audio string `json:"audio"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

// DecodeClientMessage parses one inbound device message into its typed form.
func DecodeClientMessage(data []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeMicPress:
		var msg MicPressMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid mic_press message: %w", err)
		}
		return &msg, nil

	case MessageTypeMicFrame:
		var msg MicFrameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid mic_frame message: %w", err)
		}
		if msg.Audio == "" {
			return nil, fmt.Errorf("audio is required")
		}
		return &msg, nil

	case MessageTypePlaybackDone:
		var msg PlaybackDoneMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("invalid playback_done message: %w", err)
		}
		return &msg, nil

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeError,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Code:    code,
		Message: message,
	}
}

// CreateStatusMessage creates a status update message
func CreateStatusMessage(status string) *StatusMessage {
	return &StatusMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeStatus,
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Status: status,
	}
}
