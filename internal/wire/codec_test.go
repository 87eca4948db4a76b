package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader feeds the decoder a few bytes at a time to exercise
// accumulation across short reads.
type chunkedReader struct {
	data []byte
	n    int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.n
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	require.NoError(t, enc.Encode(Request{ID: "r1", Type: "set_tempo", Params: map[string]any{"tempo": 128.0}}))
	require.NoError(t, enc.Encode(Request{Type: "get_session_info"}))

	dec := NewDecoder(&buf)
	req, err := dec.DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, "set_tempo", req.Type)
	assert.Equal(t, "r1", req.ID)
	assert.Equal(t, 128.0, req.Params["tempo"])

	req, err = dec.DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, "get_session_info", req.Type)

	_, err = dec.DecodeRequest()
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodePartialReads(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(OK("r1", map[string]any{"tempo": 120.0})))

	dec := NewDecoder(&chunkedReader{data: buf.Bytes(), n: 3})
	resp, err := dec.DecodeResponse()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, resp.Status)
}

func TestDecodeEmbeddedNewlineInString(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(Request{Type: "set_track_name", Params: map[string]any{"name": "line one\nline two"}}))

	dec := NewDecoder(&buf)
	req, err := dec.DecodeRequest()
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", req.Params["name"])
}

func TestDecodePoisonsOnMalformedFrame(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{not json}\n{\"type\":\"get_session_info\"}\n"))

	_, err := dec.DecodeRequest()
	require.Error(t, err)
	assert.True(t, IsKind(err, KindProtocol))

	// Poisoned: the well-formed frame behind the bad one is unreachable.
	_, err = dec.DecodeRequest()
	assert.True(t, IsKind(err, KindProtocol))
}

func TestDecodeRequestMissingType(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{\"id\":\"r1\"}\n"))
	_, err := dec.DecodeRequest()
	assert.True(t, IsKind(err, KindProtocol))
}

func TestDecodeResponseBadStatus(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{\"status\":\"maybe\"}\n"))
	_, err := dec.DecodeResponse()
	assert.True(t, IsKind(err, KindProtocol))
}

func TestDecodeTruncatedStream(t *testing.T) {
	dec := NewDecoder(strings.NewReader("{\"type\":\"set_te"))
	_, err := dec.DecodeRequest()
	assert.True(t, IsKind(err, KindProtocol))
}

func TestDecodeFrame(t *testing.T) {
	frame, rest, err := DecodeFrame([]byte("{\"a\":1}\n{\"b\":"))
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}", string(frame))
	assert.Equal(t, "{\"b\":", string(rest))

	_, rest, err = DecodeFrame(rest)
	assert.ErrorIs(t, err, ErrNeedMore)
	assert.Equal(t, "{\"b\":", string(rest))
}
