package websocket

import (
	"encoding/json"
	"testing"
)

func TestDecodeClientMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{
			name:    "valid mic press",
			message: `{"type": "mic_press"}`,
			wantErr: false,
		},
		{
			name:    "mic press with bearer",
			message: `{"type": "mic_press", "bearer": "token-123"}`,
			wantErr: false,
		},
		{
			name:    "valid mic frame",
			message: `{"type": "mic_frame", "audio": "SGVsbG8gV29ybGQ="}`,
			wantErr: false,
		},
		{
			name:    "mic frame missing audio",
			message: `{"type": "mic_frame"}`,
			wantErr: true,
		},
		{
			name:    "valid playback done",
			message: `{"type": "playback_done"}`,
			wantErr: false,
		},
		{
			name:    "unsupported type",
			message: `{"type": "start_video"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			message: `mic_press`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(tt.message))
			if (err != nil) != tt.wantErr {
				t.Errorf("DecodeClientMessage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeClientMessageTypes(t *testing.T) {
	decoded, err := DecodeClientMessage([]byte(`{"type": "mic_press", "bearer": "tok"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	press, ok := decoded.(*MicPressMessage)
	if !ok {
		t.Fatalf("decoded type = %T, want *MicPressMessage", decoded)
	}
	if press.Bearer != "tok" {
		t.Errorf("bearer = %q, want tok", press.Bearer)
	}

	decoded, err = DecodeClientMessage([]byte(`{"type": "mic_frame", "audio": "AAAA"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	frame, ok := decoded.(*MicFrameMessage)
	if !ok {
		t.Fatalf("decoded type = %T, want *MicFrameMessage", decoded)
	}
	if frame.Audio != "AAAA" {
		t.Errorf("audio = %q", frame.Audio)
	}
}

func TestCreateErrorMessage(t *testing.T) {
	msg := CreateErrorMessage("invalid_message", "bad payload")

	if msg.Type != MessageTypeError {
		t.Errorf("type = %s, want %s", msg.Type, MessageTypeError)
	}
	if msg.Code != "invalid_message" {
		t.Errorf("code = %s", msg.Code)
	}
	if msg.Timestamp == "" {
		t.Error("timestamp not set")
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var round map[string]interface{}
	if err := json.Unmarshal(payload, &round); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if round["error_code"] != "invalid_message" {
		t.Errorf("wire field error_code = %v", round["error_code"])
	}
}

func TestCreateStatusMessage(t *testing.T) {
	msg := CreateStatusMessage("Listening...")
	if msg.Type != MessageTypeStatus {
		t.Errorf("type = %s", msg.Type)
	}
	if msg.Status != "Listening..." {
		t.Errorf("status = %s", msg.Status)
	}
}
