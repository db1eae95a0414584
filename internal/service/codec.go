package service

import (
	"encoding/json"
	"fmt"
)

// JSONCodec lets Connect carry plain Go structs as JSON, replacing the
// default protobuf JSON codec. Clients talk to the API with
// Content-Type: application/json.
type JSONCodec struct{}

// Name is the codec name Connect matches against the content type.
func (JSONCodec) Name() string { return "json" }

// Marshal encodes a message.
func (JSONCodec) Marshal(msg any) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a message. An empty body leaves msg at its zero value.
func (JSONCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return fmt.Errorf("failed to decode message: %w", err)
	}
	return nil
}
