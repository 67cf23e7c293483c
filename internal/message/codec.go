// ABOUTME: JSON wire codec for messages: @type, @id, ~thread plus flattened payload fields
// ABOUTME: Decoding reads the header first so handlers can be resolved before payload validation

package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Reserved wire keys.
const (
	fieldType   = "@type"
	fieldID     = "@id"
	fieldThread = "~thread"
)

// ErrEncode indicates a payload could not be serialized as a JSON object.
var ErrEncode = errors.New("encoding message")

// Header is the protocol metadata of an envelope.
type Header struct {
	Type   Type    `json:"@type"`
	ID     string  `json:"@id"`
	Thread *Thread `json:"~thread,omitempty"`
}

// DecodeHeader parses only the metadata of an envelope. Missing @type or @id
// is reported as a *SchemaError.
func DecodeHeader(data []byte) (Header, error) {
	var hdr Header
	if err := json.Unmarshal(data, &hdr); err != nil {
		return Header{}, fmt.Errorf("%w: decoding envelope: %v", ErrSchema, err)
	}

	var bad []FieldError
	if hdr.Type == "" {
		bad = append(bad, FieldError{Field: fieldType, Reason: "required field missing"})
	}
	if hdr.ID == "" {
		bad = append(bad, FieldError{Field: fieldID, Reason: "required field missing"})
	}
	if len(bad) > 0 {
		return Header{}, &SchemaError{Type: hdr.Type, Fields: bad}
	}
	return hdr, nil
}

// Decode validates the envelope payload against the schema and unmarshals it
// into the payload returned by newPayload.
func Decode(hdr Header, data []byte, schema Schema, newPayload func() Payload) (*Message, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrSchema, err)
	}
	if err := schema.Validate(hdr.Type, raw); err != nil {
		return nil, err
	}

	p := newPayload()
	if err := json.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: decoding %s payload: %v", ErrSchema, hdr.Type, err)
	}

	return &Message{
		Type:    hdr.Type,
		ID:      hdr.ID,
		Thread:  hdr.Thread,
		Payload: p,
	}, nil
}

// Encode serializes the message to its JSON wire form.
func Encode(m *Message) ([]byte, error) {
	if m.Payload == nil {
		return nil, fmt.Errorf("%w: %s has no payload", ErrEncode, m.Type)
	}

	body, err := json.Marshal(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: %s payload is not a JSON object", ErrEncode, m.Type)
	}

	if fields[fieldType], err = json.Marshal(m.Type); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if fields[fieldID], err = json.Marshal(m.ID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if m.Thread != nil {
		if fields[fieldThread], err = json.Marshal(m.Thread); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEncode, err)
		}
	}

	return json.Marshal(fields)
}
