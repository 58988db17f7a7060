package frame

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"strconv"
)

const (
	// Delimiter opens and closes every envelope.
	Delimiter = `"""`
	// Marker is the handshake sentinel body (end-of-transmission).
	Marker byte = 0x04
)

const checksumLen = 8

// Kind classifies a decoded envelope.
type Kind int

const (
	// KindEmpty is a zero-length body between adjacent delimiters, or a
	// body that reduced to nothing after metadata stripping. Skipped.
	KindEmpty Kind = iota
	// KindHandshake is the end-of-transmission marker.
	KindHandshake
	// KindPayload is a payload frame whose checksum, if present, verified.
	KindPayload
	// KindCorrupt is a payload frame whose checksum did not match.
	KindCorrupt
)

// Envelope is one decoded unit from the wire.
type Envelope struct {
	Kind    Kind
	Payload []byte

	// Want and Got carry the checksums of a corrupt frame for diagnostics.
	Want uint32
	Got  uint32
}

// Checksum renders the CRC32 of p the way it travels on the wire:
// 8 lowercase hex digits, zero padded.
func Checksum(p []byte) string {
	return fmt.Sprintf("%08x", crc32.ChecksumIEEE(p))
}

// Encode wraps payload into a delimited envelope with a trailing checksum.
// The codec imposes no size limit; callers enforce their own policy.
func Encode(payload []byte) []byte {
	b := make([]byte, 0, len(payload)+2*len(Delimiter)+checksumLen)
	b = append(b, Delimiter...)
	b = append(b, payload...)
	b = append(b, Checksum(payload)...)
	b = append(b, Delimiter...)
	return b
}

// EncodeMarker produces a handshake marker envelope.
func EncodeMarker() []byte {
	b := make([]byte, 0, 2*len(Delimiter)+1)
	b = append(b, Delimiter...)
	b = append(b, Marker)
	b = append(b, Delimiter...)
	return b
}

// Next scans buf for the next complete envelope and reports how many
// bytes it consumed. consumed is 0 when buf holds no delimiter yet and
// more input is needed; callers keep the bytes buffered and retry.
// Payload slices alias buf and are valid only until buf is modified.
func Next(buf []byte) (env Envelope, consumed int) {
	i := bytes.Index(buf, []byte(Delimiter))
	if i < 0 {
		return Envelope{}, 0
	}
	consumed = i + len(Delimiter)
	body := buf[:i]
	if len(body) == 0 {
		return Envelope{Kind: KindEmpty}, consumed
	}
	if len(body) == 1 && body[0] == Marker {
		return Envelope{Kind: KindHandshake}, consumed
	}
	payload, meta := splitMeta(body)
	if len(meta) >= checksumLen {
		got := crc32.ChecksumIEEE(payload)
		want, err := strconv.ParseUint(string(meta[:checksumLen]), 16, 32)
		if err != nil || uint32(want) != got {
			env = Envelope{Kind: KindCorrupt, Payload: payload, Got: got}
			if err == nil {
				env.Want = uint32(want)
			}
			return env, consumed
		}
	}
	if len(payload) == 0 {
		return Envelope{Kind: KindEmpty}, consumed
	}
	return Envelope{Kind: KindPayload, Payload: payload}, consumed
}

// splitMeta separates trailing metadata from the body: everything after
// the last '}' is metadata, the '}' itself stays with the payload and is
// covered by the checksum. A body without '}' is all metadata, leaving an
// empty payload.
func splitMeta(body []byte) (payload, meta []byte) {
	i := bytes.LastIndexByte(body, '}')
	return body[:i+1], body[i+1:]
}
