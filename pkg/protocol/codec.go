package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrInvalidJSON is the sentinel for lines that are not a JSON object.
	ErrInvalidJSON = errors.New("invalid JSON")

	// ErrMissingType is the sentinel for objects without a string "type".
	ErrMissingType = errors.New("missing command type")

	// ErrInvalidPayload is the sentinel for payloads failing validation.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrMessageTooLarge marks a line longer than the session limit.
	ErrMessageTooLarge = errors.New("message too large")
)

// DecodeError is a protocol-level failure scoped to a single message.
// Message is the text sent back to the peer.
type DecodeError struct {
	Message string
	Err     error
}

func (e *DecodeError) Error() string { return e.Message }
func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(sentinel error, format string, args ...any) *DecodeError {
	return &DecodeError{Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// TooLargeError is the DecodeError for a line over limit bytes.
func TooLargeError(limit int) *DecodeError {
	return decodeErr(ErrMessageTooLarge, "Message exceeds %d bytes", limit)
}

// DecodeCommand parses one protocol line into a Command. Trailing "\r" and
// surrounding whitespace are ignored. ClientID is left empty.
func DecodeCommand(line []byte) (Command, error) {
	line = bytes.TrimSpace(line)

	var raw map[string]any
	if err := json.Unmarshal(line, &raw); err != nil {
		return Command{}, decodeErr(ErrInvalidJSON, "Invalid JSON: %v", err)
	}
	if raw == nil {
		return Command{}, decodeErr(ErrInvalidJSON, "Invalid JSON: expected an object")
	}

	typ, ok := raw["type"].(string)
	if !ok || typ == "" {
		return Command{}, decodeErr(ErrMissingType, "Missing command type")
	}
	delete(raw, "type")

	return Command{Type: typ, Payload: raw}, nil
}

// EncodeCommand renders cmd as one newline-terminated line.
func EncodeCommand(cmd Command) ([]byte, error) {
	obj := make(map[string]any, len(cmd.Payload)+1)
	for k, v := range cmd.Payload {
		obj[k] = v
	}
	obj["type"] = cmd.Type

	b, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode command %q: %w", cmd.Type, err)
	}
	return append(b, '\n'), nil
}

// EncodeResponse renders r as one newline-terminated line. Data values that
// cannot be marshaled degrade to an error response instead of failing the
// connection.
func EncodeResponse(r Response) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(Errorf("Response encoding failed: %v", err))
	}
	return append(b, '\n')
}

// DecodeResponse parses one response line.
func DecodeResponse(line []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(bytes.TrimSpace(line), &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	if r.Status != StatusSuccess && r.Status != StatusError {
		return Response{}, fmt.Errorf("%w: unknown status %q", ErrInvalidJSON, r.Status)
	}
	return r, nil
}
