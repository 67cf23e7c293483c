// Package message provides the typed envelope used by the admin messaging
// protocol: message type identifiers, the @id/~thread metadata every message
// carries, JSON wire encoding, and field-level payload validation.
//
// # Wire Shape
//
// Every message serializes to a single JSON object:
//
//	{
//	  "@type": "https://.../admin-mediator/0.1/keylists-get",
//	  "@id": "6a0c1d0e-...",
//	  "~thread": {"thid": "..."},
//	  "connection_id": "..."
//	}
//
// The payload fields sit next to the metadata fields. The ~thread decorator is
// omitted for messages that do not reply to anything.
//
// # Decoding
//
// Decoding is split in two so the caller can resolve a handler before the
// payload is touched:
//
//	hdr, err := message.DecodeHeader(data)
//	// look up the declaration for hdr.Type
//	msg, err := message.Decode(hdr, data, schema, newPayload)
//
// Decode validates the raw payload against the declared Schema first and
// reports every offending field in a single *SchemaError.
package message
