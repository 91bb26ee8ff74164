package realtime

import "encoding/json"

// Outbound message types for the realtime speech socket.
const (
	TypeSessionUpdate          = "session.update"
	TypeInputAudioAppend       = "input_audio_buffer.append"
	TypeInputAudioClear        = "input_audio_buffer.clear"
	TypeInputAudioCommit       = "input_audio_buffer.commit"
	TypeResponseCreate         = "response.create"
	TypeConversationItemCreate = "conversation.item.create"
)

// Inbound event types. Anything not listed here is ignored by Decode's
// callers (forward compatibility).
const (
	TypeResponseCreated          = "response.created"
	TypeAudioDelta               = "response.audio.delta"
	TypeAudioDone                = "response.audio.done"
	TypeTranscriptDelta          = "response.audio_transcript.delta"
	TypeTranscriptDone           = "response.audio_transcript.done"
	TypeInputTranscriptCompleted = "conversation.item.input_audio_transcription.completed"
	TypeOutputItemDone           = "response.output_item.done"
	TypeError                    = "error"
)

// TurnDetection holds the server VAD configuration: activation threshold,
// padding captured before speech, and the silence duration that ends a turn.
type TurnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold,omitempty"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms,omitempty"`
	SilenceDurationMs int     `json:"silence_duration_ms,omitempty"`
}

// Tool declares one callable function to the model
type Tool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// SessionConfig is the session.update payload
type SessionConfig struct {
	Instructions            string             `json:"instructions,omitempty"`
	Voice                   string             `json:"voice,omitempty"`
	TurnDetection           *TurnDetection     `json:"turn_detection,omitempty"`
	Modalities              []string           `json:"modalities,omitempty"`
	InputAudioFormat        string             `json:"input_audio_format,omitempty"`
	OutputAudioFormat       string             `json:"output_audio_format,omitempty"`
	InputAudioTranscription *TranscriptionConf `json:"input_audio_transcription,omitempty"`
	Tools                   []Tool             `json:"tools,omitempty"`
	ToolChoice              string             `json:"tool_choice,omitempty"`
}

// TranscriptionConf selects the model used to transcribe input audio
type TranscriptionConf struct {
	Model string `json:"model"`
}

// SessionUpdateMessage configures the live session
type SessionUpdateMessage struct {
	Type    string        `json:"type"`
	Session SessionConfig `json:"session"`
}

// InputAudioMessage carries one base64 PCM frame, or clears/commits the
// buffered input when Audio is empty and Type says so
type InputAudioMessage struct {
	Type  string `json:"type"`
	Audio string `json:"audio,omitempty"`
}

// ResponseCreateMessage asks the model to generate the next turn. Response
// may carry ad-hoc inline instructions (used for the greeting).
type ResponseCreateMessage struct {
	Type     string          `json:"type"`
	Response *ResponseConfig `json:"response,omitempty"`
}

// ResponseConfig tweaks a single generation request
type ResponseConfig struct {
	Modalities   []string `json:"modalities,omitempty"`
	Instructions string   `json:"instructions,omitempty"`
}

// ConversationItemMessage returns a tool result to the model
type ConversationItemMessage struct {
	Type string           `json:"type"`
	Item ConversationItem `json:"item"`
}

// ConversationItem is the function_call_output item shape
type ConversationItem struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

// ServerEvent is one decoded inbound event. Type is always set; the other
// fields are populated per event kind. Unknown kinds decode into a
// ServerEvent carrying only the Type, which callers treat as a no-op.
type ServerEvent struct {
	Type string `json:"type"`

	// Audio and transcript streaming
	Delta      string `json:"delta,omitempty"`
	Transcript string `json:"transcript,omitempty"`

	// Tool calls (response.output_item.done)
	Item *OutputItem `json:"item,omitempty"`

	// Remote error reports
	Error *ServerError `json:"error,omitempty"`
}

// OutputItem carries a completed output item; a function_call item holds the
// tool name, JSON-encoded arguments, and the call id its result must quote.
type OutputItem struct {
	Type      string `json:"type"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	CallID    string `json:"call_id,omitempty"`
}

// ServerError is the remote-reported error payload
type ServerError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// DecodeServerEvent parses one inbound socket message. Messages without a
// type field are rejected; unknown types succeed and carry only Type.
func DecodeServerEvent(data []byte) (ServerEvent, error) {
	var ev ServerEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ServerEvent{}, err
	}
	return ev, nil
}

// IsFunctionCall reports whether this event carries a completed tool call.
func (e ServerEvent) IsFunctionCall() bool {
	return e.Type == TypeOutputItemDone && e.Item != nil && e.Item.Type == "function_call"
}
