package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Frames are newline-delimited JSON objects. JSON string escaping guarantees
// a raw '\n' never appears inside an encoded envelope, so the delimiter is
// unambiguous even when cache or preset blobs ride in params.
const frameDelim = '\n'

// MaxFrameSize bounds a single frame. Browser scans can return thousands of
// entries; anything past this is treated as a protocol violation rather than
// an allocation hazard.
const MaxFrameSize = 32 << 20

// ErrNeedMore is returned by DecodeFrame when the buffer does not yet hold a
// complete frame.
var ErrNeedMore = errors.New("wire: need more data")

// DecodeFrame extracts the first complete frame from buf, returning the
// decoded envelope bytes and the remaining buffer. It is the pure core of
// Decoder, usable against an accumulating read buffer.
func DecodeFrame(buf []byte) (frame, rest []byte, err error) {
	i := bytes.IndexByte(buf, frameDelim)
	if i < 0 {
		if len(buf) > MaxFrameSize {
			return nil, buf, Errorf(KindProtocol, "frame exceeds %d bytes without delimiter", MaxFrameSize)
		}
		return nil, buf, ErrNeedMore
	}
	return buf[:i], buf[i+1:], nil
}

// Encoder writes framed envelopes to a stream.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes one envelope and flushes. env must marshal to a JSON object.
func (e *Encoder) Encode(env any) error {
	b, err := json.Marshal(env)
	if err != nil {
		return Errorf(KindProtocol, "encode frame: %v", err)
	}
	if _, err := e.w.Write(b); err != nil {
		return err
	}
	if err := e.w.WriteByte(frameDelim); err != nil {
		return err
	}
	return e.w.Flush()
}

// Decoder reads framed envelopes from a stream, buffering partial reads.
// After any protocol error the decoder is poisoned: the caller must drop
// the connection, resynchronization is not attempted.
type Decoder struct {
	r      *bufio.Reader
	poison error
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64<<10)}
}

// next reads raw frame bytes, accumulating across short reads.
func (d *Decoder) next() ([]byte, error) {
	var frame []byte
	for {
		chunk, err := d.r.ReadSlice(frameDelim)
		frame = append(frame, chunk...)
		switch {
		case err == nil:
			return frame[:len(frame)-1], nil
		case errors.Is(err, bufio.ErrBufferFull):
			if len(frame) > MaxFrameSize {
				return nil, Errorf(KindProtocol, "frame exceeds %d bytes", MaxFrameSize)
			}
		case errors.Is(err, io.EOF) && len(frame) > 0:
			return nil, Errorf(KindProtocol, "stream ended mid-frame (%d bytes buffered)", len(frame))
		default:
			return nil, err
		}
	}
}

func (d *Decoder) decode(v any) error {
	if d.poison != nil {
		return d.poison
	}
	frame, err := d.next()
	if err != nil {
		if IsKind(err, KindProtocol) {
			d.poison = err
		}
		return err
	}
	if err := json.Unmarshal(frame, v); err != nil {
		d.poison = Errorf(KindProtocol, "malformed frame: %v", err)
		return d.poison
	}
	return nil
}

// DecodeRequest reads the next request envelope. io.EOF means the peer
// closed cleanly between frames.
func (d *Decoder) DecodeRequest() (Request, error) {
	var req Request
	if err := d.decode(&req); err != nil {
		return Request{}, err
	}
	if req.Type == "" {
		d.poison = Errorf(KindProtocol, "request frame missing type")
		return Request{}, d.poison
	}
	return req, nil
}

// DecodeResponse reads the next response envelope.
func (d *Decoder) DecodeResponse() (Response, error) {
	var resp Response
	if err := d.decode(&resp); err != nil {
		return Response{}, err
	}
	if resp.Status != StatusOK && resp.Status != StatusError {
		d.poison = Errorf(KindProtocol, "response frame has status %q", resp.Status)
		return Response{}, d.poison
	}
	return resp, nil
}
