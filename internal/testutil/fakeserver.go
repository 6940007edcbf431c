// Package testutil provides a fake rangehttp.Transport server for exercising
// the orchestrator, router, and scatterer against the server behaviors
// described in the specification's end-to-end scenarios: clean multipart
// 206, first-range-only 206 with no MIME framing, 200-ignoring-Range, and
// range-mismatched multipart. It plays the same role as the teacher's own
// transport/internal/testing.FakeTransport, but speaks the rangehttp.Transport
// capability set directly instead of http.RoundTripper, since that's the
// surface under test.
package testutil

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/docker/rangefetch/rangehttp"
)

// Mode selects how FakeServer responds to a multi-range GET.
type Mode int

const (
	// ModeMultipart serves a correct multipart/byteranges 206 response.
	ModeMultipart Mode = iota
	// ModeFirstRangeOnly serves a 206 with the first requested range's raw
	// bytes and no MIME framing at all, simulating object stores that
	// ignore the rest of a multi-range request.
	ModeFirstRangeOnly
	// ModeFullBody serves the entire resource with status 200, ignoring
	// Range entirely.
	ModeFullBody
	// ModeMismatch serves a correct multipart response except the second
	// part's Content-Range disagrees with the range actually requested.
	ModeMismatch
)

// Resource is the byte content and validators served by a FakeServer.
type Resource struct {
	Data         []byte
	ETag         string
	LastModified string
}

// FakeServer is a single-resource fake HTTP range server driven by Mode.
type FakeServer struct {
	Resource Resource
	Mode     Mode
	Boundary string

	// Requests records the Range header value of each request made, in
	// order, for assertions.
	Requests []string
}

// NewRequestFunc returns a rangehttp.NewRequestFunc bound to this server.
func (s *FakeServer) NewRequestFunc() rangehttp.NewRequestFunc {
	return func(ctx context.Context, uri string) (rangehttp.Transport, error) {
		return &fakeTransport{server: s, headers: map[string]string{}}, nil
	}
}

// Pread implements the IOChainContext single-range fallback by reading
// directly from the resource, regardless of Mode.
func (s *FakeServer) Pread(ctx context.Context, buf []byte, offset uint64) (int, error) {
	if offset >= uint64(len(s.Resource.Data)) {
		return 0, io.EOF
	}
	n := copy(buf, s.Resource.Data[offset:])
	return n, nil
}

type wantRange struct{ start, end uint64 }

func parseRangeSpec(value string) ([]wantRange, error) {
	spec := strings.TrimPrefix(value, "bytes=")
	var out []wantRange
	for _, part := range strings.Split(spec, ",") {
		se := strings.SplitN(part, "-", 2)
		if len(se) != 2 {
			return nil, fmt.Errorf("bad range part %q", part)
		}
		start, err := strconv.ParseUint(se[0], 10, 64)
		if err != nil {
			return nil, err
		}
		end, err := strconv.ParseUint(se[1], 10, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, wantRange{start, end})
	}
	return out, nil
}

type fakeTransport struct {
	server  *FakeServer
	headers map[string]string

	status  int
	respHdr map[string]string
	body    []byte
	pos     int
}

func (t *fakeTransport) AddHeaderField(name, value string) { t.headers[name] = value }
func (t *fakeTransport) SetParameters(rangehttp.RequestParameters) {}

func (t *fakeTransport) BeginRequest(ctx context.Context) error {
	s := t.server
	rangeVal := t.headers["Range"]
	ranges, err := parseRangeSpec(rangeVal)
	if err != nil {
		return err
	}
	s.Requests = append(s.Requests, rangeVal)

	t.respHdr = map[string]string{}
	if s.Resource.ETag != "" {
		t.respHdr["ETag"] = s.Resource.ETag
	}
	if s.Resource.LastModified != "" {
		t.respHdr["Last-Modified"] = s.Resource.LastModified
	}

	switch s.Mode {
	case ModeFullBody:
		t.status = 200
		t.body = s.Resource.Data
		t.respHdr["Content-Length"] = strconv.Itoa(len(s.Resource.Data))

	case ModeFirstRangeOnly:
		t.status = 206
		r := ranges[0]
		t.body = s.Resource.Data[r.start : r.end+1]
		t.respHdr["Content-Type"] = "application/octet-stream"
		t.respHdr["Content-Length"] = strconv.Itoa(len(t.body))

	case ModeMultipart, ModeMismatch:
		t.status = 206
		boundary := s.Boundary
		if boundary == "" {
			boundary = "TESTBOUNDARY"
		}
		t.respHdr["Content-Type"] = "multipart/byteranges; boundary=" + boundary
		var b strings.Builder
		for i, r := range ranges {
			declaredStart, declaredEnd := r.start, r.end
			if s.Mode == ModeMismatch && i == 1 {
				declaredStart += 5
				declaredEnd += 5
			}
			fmt.Fprintf(&b, "--%s\r\n", boundary)
			fmt.Fprintf(&b, "Content-Range: bytes %d-%d/%d\r\n", declaredStart, declaredEnd, len(s.Resource.Data))
			b.WriteString("\r\n")
			b.Write(s.Resource.Data[r.start : r.end+1])
			b.WriteString("\r\n")
		}
		fmt.Fprintf(&b, "--%s--\r\n", boundary)
		t.body = []byte(b.String())

	default:
		return fmt.Errorf("fakeserver: unknown mode %d", s.Mode)
	}

	t.pos = 0
	return nil
}

func (t *fakeTransport) StatusCode() int { return t.status }

func (t *fakeTransport) AnswerSize() int64 {
	if v, ok := t.respHdr["Content-Length"]; ok {
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return -1
}

func (t *fakeTransport) AnswerHeader(name string) (string, bool) {
	v, ok := t.respHdr[name]
	return v, ok
}

func (t *fakeTransport) ReadLine(buf []byte) (int, error) {
	if t.pos >= len(t.body) {
		return 0, io.EOF
	}
	n := 0
	for t.pos < len(t.body) && n < len(buf) {
		b := t.body[t.pos]
		buf[n] = b
		n++
		t.pos++
		if b == '\n' {
			return n, nil
		}
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

func (t *fakeTransport) ReadSegment(buf []byte) error {
	if t.pos+len(buf) > len(t.body) {
		return io.ErrUnexpectedEOF
	}
	copy(buf, t.body[t.pos:t.pos+len(buf)])
	t.pos += len(buf)
	return nil
}

func (t *fakeTransport) ReadBlock(buf []byte) (int, error) {
	if t.pos >= len(t.body) {
		return 0, nil
	}
	n := copy(buf, t.body[t.pos:])
	t.pos += n
	return n, nil
}

func (t *fakeTransport) EndRequest() error { return nil }
