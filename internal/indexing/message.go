package indexing

import (
	"encoding/json"
	"fmt"

	"natjus/internal/extraction"
)

// SubmitMessage is the body published on the index submission topic.
type SubmitMessage struct {
	Record        extraction.Record `json:"record"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

func EncodeSubmit(rec extraction.Record, correlationID string) ([]byte, error) {
	body, err := json.Marshal(SubmitMessage{Record: rec, CorrelationID: correlationID})
	if err != nil {
		return nil, fmt.Errorf("encode submit message: %w", err)
	}
	return body, nil
}

func DecodeSubmit(body []byte) (SubmitMessage, error) {
	var msg SubmitMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return SubmitMessage{}, fmt.Errorf("decode submit message: %w", err)
	}
	if msg.Record.SourceFilename == "" {
		return SubmitMessage{}, fmt.Errorf("decode submit message: missing source_filename")
	}
	return msg, nil
}
