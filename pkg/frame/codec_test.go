package frame

import (
	"hash/crc32"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksum(t *testing.T) {
	require.Equal(t, "3610a686", Checksum([]byte("hello")))
	require.Equal(t, "00000000", Checksum(nil))
	require.Equal(t, "561bacaf", Checksum([]byte(`{"a":1}`)))
}

func TestEncode(t *testing.T) {
	require.Equal(t, `"""{"a":1}561bacaf"""`, string(Encode([]byte(`{"a":1}`))))
	require.Equal(t, `"""00000000"""`, string(Encode(nil)))
}

func TestEncodeMarker(t *testing.T) {
	require.Equal(t, "\"\"\"\x04\"\"\"", string(EncodeMarker()))
}

func TestNext(t *testing.T) {
	testCases := []struct {
		name     string
		in       string
		env      Envelope
		consumed int
	}{
		{
			name:     "incomplete",
			in:       `{"a":1}561baca`,
			consumed: 0,
		},
		{
			name:     "empty body",
			in:       `"""rest`,
			env:      Envelope{Kind: KindEmpty},
			consumed: 3,
		},
		{
			name:     "handshake marker",
			in:       "\x04\"\"\"",
			env:      Envelope{Kind: KindHandshake},
			consumed: 4,
		},
		{
			name:     "payload with checksum",
			in:       `{"a":1}561bacaf"""`,
			env:      Envelope{Kind: KindPayload, Payload: []byte(`{"a":1}`)},
			consumed: 18,
		},
		{
			name:     "payload without checksum",
			in:       `{"id":1,"method":"Sys.GetInfo"}"""`,
			env:      Envelope{Kind: KindPayload, Payload: []byte(`{"id":1,"method":"Sys.GetInfo"}`)},
			consumed: 34,
		},
		{
			name:     "short metadata accepted unverified",
			in:       `{"a":1}xy"""`,
			env:      Envelope{Kind: KindPayload, Payload: []byte(`{"a":1}`)},
			consumed: 12,
		},
		{
			name:     "checksum mismatch",
			in:       `{"a":1}00000000"""`,
			env:      Envelope{Kind: KindCorrupt, Payload: []byte(`{"a":1}`), Want: 0, Got: 0x561bacaf},
			consumed: 18,
		},
		{
			name:     "malformed checksum",
			in:       `{"a":1}zzzzzzzz"""`,
			env:      Envelope{Kind: KindCorrupt, Payload: []byte(`{"a":1}`), Got: 0x561bacaf},
			consumed: 18,
		},
		{
			name:     "no boundary brace",
			in:       `garbage"""`,
			env:      Envelope{Kind: KindEmpty},
			consumed: 10,
		},
		{
			name:     "leading garbage before delimiter",
			in:       "\x04\"\"\"\x04\"\"\"",
			env:      Envelope{Kind: KindHandshake},
			consumed: 4,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env, consumed := Next([]byte(tc.in))
			require.Equal(t, tc.consumed, consumed)
			if consumed > 0 {
				require.Equal(t, tc.env, env)
			}
		})
	}
}

func TestNextStreaming(t *testing.T) {
	// Two back-to-back frames share a delimiter occurrence on the wire.
	buf := append(Encode([]byte(`{"a":1}`)), Encode([]byte(`{"id":2,"result":{"ok":true}}`))...)

	env, n := Next(buf)
	require.Equal(t, KindEmpty, env.Kind)
	require.Equal(t, 3, n)
	buf = buf[n:]

	env, n = Next(buf)
	require.Equal(t, KindPayload, env.Kind)
	require.Equal(t, `{"a":1}`, string(env.Payload))
	buf = buf[n:]

	env, n = Next(buf)
	require.Equal(t, KindEmpty, env.Kind)
	require.Equal(t, 3, n)
	buf = buf[n:]

	env, n = Next(buf)
	require.Equal(t, KindPayload, env.Kind)
	require.Equal(t, `{"id":2,"result":{"ok":true}}`, string(env.Payload))
	buf = buf[n:]

	_, n = Next(buf)
	require.Equal(t, 3, n)
	require.Empty(t, buf[n:])
}

func TestRoundTrip(t *testing.T) {
	payloads := []string{
		`{}`,
		`{"a":1}`,
		`{"id":1,"method":"Sys.GetInfo"}`,
		`{"id":2,"result":{"ok":true}}`,
		"ping}",
	}
	for _, p := range payloads {
		buf := Encode([]byte(p))
		env, n := Next(buf)
		require.Equal(t, KindEmpty, env.Kind)
		env, n2 := Next(buf[n:])
		require.Equal(t, KindPayload, env.Kind, "payload %q", p)
		require.Equal(t, p, string(env.Payload))
		require.Equal(t, len(buf), n+n2)
	}
}

func TestChecksumSensitivity(t *testing.T) {
	payload := []byte(`{"id":1,"method":"Sys.GetInfo"}`)
	frame := Encode(payload)
	body := frame[len(Delimiter) : len(frame)-len(Delimiter)]
	// Flip a single bit in every body position: the frame must decode as
	// corrupted, never as a valid payload.
	for i := range body {
		for bit := uint(0); bit < 8; bit++ {
			mutated := append([]byte(nil), frame...)
			mutated[len(Delimiter)+i] ^= 1 << bit
			if mutated[len(Delimiter)+i] == '"' || mutated[len(Delimiter)+i] == '}' {
				// May move the delimiter or metadata boundary; framing
				// changes are out of scope for this property.
				continue
			}
			env, n := Next(mutated[len(Delimiter):])
			require.Equal(t, len(body)+len(Delimiter), n)
			require.NotEqual(t, KindPayload, env.Kind, "flip byte %d bit %d", i, bit)
		}
	}
}

func TestChecksumMatchesStdlib(t *testing.T) {
	p := []byte(`{"id":2,"result":{"ok":true}}`)
	require.Equal(t, "0dfb4b9c", Checksum(p))
	require.Equal(t, uint32(0x0dfb4b9c), crc32.ChecksumIEEE(p))
}
