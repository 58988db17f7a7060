// Package frame implements the wire envelope codec for the UART channel.
package frame

// Every envelope on the wire is bracketed by a 3-byte delimiter; frames
// travel back-to-back, so the closing delimiter of one envelope doubles
// as the opening delimiter of the next.
//
// Two envelope bodies exist:
//   - the single end-of-transmission byte, exchanged as a handshake and
//     liveness marker;
//   - a payload, optionally followed by metadata whose last 8 characters
//     are the lowercase hex CRC32 of the payload.
//
// The payload/metadata boundary is the last '}' of the body. This assumes
// JSON-like payloads and exists so that peers which predate checksums can
// interoperate; it is a compatibility compromise, not a general framing
// grammar. Encoding always appends a checksum; decoding verifies one only
// when at least 8 metadata bytes are present.
