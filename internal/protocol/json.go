package protocol

import (
	"encoding/json"
	"fmt"
)

// EncodeJSON frames a low-frequency payload: opcode byte followed by the
// UTF-8 JSON encoding of payload.
func EncodeJSON(op Opcode, payload any) ([]byte, error) {
	if op.IsBinary() {
		return nil, fmt.Errorf("opcode %s belongs to the binary channel: %w", op, ErrInvalidMessage)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", op, err)
	}
	framed := make([]byte, 1+len(body))
	framed[0] = byte(op)
	copy(framed[1:], body)
	return framed, nil
}

// DecodeJSON unmarshals the JSON payload of a framed low-frequency message.
func DecodeJSON[T any](data []byte) (T, error) {
	var out T
	if len(data) < 2 {
		return out, ErrBufferTooSmall
	}
	if Opcode(data[0]).IsBinary() {
		return out, ErrInvalidMessage
	}
	if err := json.Unmarshal(data[1:], &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", Opcode(data[0]), err)
	}
	return out, nil
}

// EncodeError frames a server error envelope.
func EncodeError(code int, message string) ([]byte, error) {
	return EncodeJSON(OpError, ErrorEnvelope{Code: code, Message: message})
}

// DecodeError unmarshals an error envelope.
func DecodeError(data []byte) (ErrorEnvelope, error) {
	return DecodeJSON[ErrorEnvelope](data)
}
