package rangehttp

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/docker/rangefetch/internal/common"
)

// HTTPClient is the subset of *http.Client the adapter needs, matching the
// teacher's own narrow HTTPClient interfaces so callers can substitute a
// RoundTripper-wrapping client (retrying, metrics-tracking, ...) freely.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// ClientTransport adapts an HTTPClient into the core's Transport/NewRequestFunc
// capability set using net/http and bufio for line-oriented reads.
type ClientTransport struct {
	client HTTPClient
	method string

	req    *http.Request
	resp   *http.Response
	reader *bufio.Reader
}

// NewClientFactory returns a NewRequestFunc backed by client. If client is
// nil, http.DefaultClient is used.
func NewClientFactory(client HTTPClient) NewRequestFunc {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, uri string) (Transport, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, newTransportError("building request", err)
		}
		return &ClientTransport{client: client, method: http.MethodGet, req: req}, nil
	}
}

func (t *ClientTransport) AddHeaderField(name, value string) {
	t.req.Header.Set(name, value)
}

func (t *ClientTransport) SetParameters(params RequestParameters) {
	for k, v := range params {
		t.req.Header.Set(k, v)
	}
}

func (t *ClientTransport) BeginRequest(ctx context.Context) error {
	common.ScrubConditionalHeaders(t.req.Header)
	req := t.req.WithContext(ctx)
	resp, err := t.client.Do(req)
	if err != nil {
		return newTransportError("performing request", err)
	}
	t.resp = resp
	t.reader = bufio.NewReaderSize(resp.Body, 4096)
	return nil
}

func (t *ClientTransport) StatusCode() int {
	if t.resp == nil {
		return 0
	}
	return t.resp.StatusCode
}

func (t *ClientTransport) AnswerSize() int64 {
	if t.resp == nil {
		return -1
	}
	if t.resp.ContentLength >= 0 {
		return t.resp.ContentLength
	}
	// Some servers omit Content-Length on a 206 and rely on Content-Range
	// alone; recover the part size from there when we can.
	if start, end, _, ok := common.ParseContentRange(t.resp.Header.Get("Content-Range")); ok {
		return end - start + 1
	}
	return -1
}

// ServerSupportsRange reports whether the response advertised Accept-Ranges:
// bytes, independent of whether it actually honored the Range header on this
// request.
func (t *ClientTransport) ServerSupportsRange() bool {
	if t.resp == nil {
		return false
	}
	return common.SupportsRange(t.resp.Header)
}

func (t *ClientTransport) AnswerHeader(name string) (string, bool) {
	if t.resp == nil {
		return "", false
	}
	v := t.resp.Header.Get(name)
	if v == "" {
		return "", false
	}
	return v, true
}

func (t *ClientTransport) ReadLine(buf []byte) (int, error) {
	if t.reader == nil {
		return 0, fmt.Errorf("rangehttp: ReadLine before BeginRequest")
	}
	n := 0
	for n < len(buf) {
		b, err := t.reader.ReadByte()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		buf[n] = b
		n++
		if b == '\n' {
			return n, nil
		}
	}
	return n, fmt.Errorf("rangehttp: line exceeds buffer of %d bytes", len(buf))
}

func (t *ClientTransport) ReadSegment(buf []byte) error {
	if t.reader == nil {
		return fmt.Errorf("rangehttp: ReadSegment before BeginRequest")
	}
	_, err := io.ReadFull(t.reader, buf)
	if err != nil {
		return newTransportError("reading segment", err)
	}
	return nil
}

func (t *ClientTransport) ReadBlock(buf []byte) (int, error) {
	if t.reader == nil {
		return 0, fmt.Errorf("rangehttp: ReadBlock before BeginRequest")
	}
	n, err := t.reader.Read(buf)
	if err == io.EOF {
		return n, nil
	}
	if err != nil {
		return n, newTransportError("reading block", err)
	}
	return n, nil
}

func (t *ClientTransport) EndRequest() error {
	if t.resp == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, t.reader)
	return t.resp.Body.Close()
}
