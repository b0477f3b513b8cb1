package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// SchemaVersion is the current envelope version written by Encode.
const SchemaVersion = 1

var (
	// ErrLegacyFormat reports a value written without an envelope (the
	// pre-envelope layout). Callers may migrate it explicitly.
	ErrLegacyFormat = errors.New("storage: legacy unversioned value")

	// ErrSchemaMismatch reports an envelope with an unknown version or a
	// payload that does not validate against the target type.
	ErrSchemaMismatch = errors.New("storage: schema mismatch")
)

type envelope struct {
	Version int             `json:"version"`
	Data    json.RawMessage `json:"data"`
}

// Encode wraps v in a {"version":N,"data":...} envelope.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return json.Marshal(envelope{Version: SchemaVersion, Data: data})
}

// Decode unwraps raw into dst, rejecting unknown fields in the payload.
func Decode(raw []byte, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ErrSchemaMismatch
	}
	if raw[0] != '{' {
		return ErrLegacyFormat
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if env.Version == 0 && len(env.Data) == 0 {
		return ErrLegacyFormat
	}
	if env.Version != SchemaVersion {
		return fmt.Errorf("%w: version %d", ErrSchemaMismatch, env.Version)
	}
	return DecodeStrict(env.Data, dst)
}

// DecodeStrict decodes a single JSON document into dst, failing on unknown
// fields or trailing data.
func DecodeStrict(raw []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", ErrSchemaMismatch)
	}
	return nil
}
