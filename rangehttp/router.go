package rangehttp

import "errors"

// errNoMultirangeSupport is returned internally by MultipartBodyRouter.Route
// when the very first part fails to parse, signaling the orchestrator to
// fall back to simulated multirange (N single-range preads) rather than
// treat the failure as user-visible.
var errNoMultirangeSupport = errors.New("rangehttp: no multipart framing detected")

// MultipartBodyRouter drives PartHeaderParser in a loop over a 206 response,
// validates each part against the expected input range, and copies body
// bytes into the caller's buffer for that range.
type MultipartBodyRouter struct {
	cfg Config
}

// NewMultipartBodyRouter returns a router configured by cfg.
func NewMultipartBodyRouter(cfg Config) *MultipartBodyRouter {
	return &MultipartBodyRouter{cfg: cfg}
}

// Route reads parts from t (already positioned at status 206 with boundary
// extracted) and writes body bytes into inputs' buffers in caller order. It
// returns the per-range results and the total bytes copied. A failure
// parsing the very first part yields errNoMultirangeSupport, which the
// caller should treat as a request to fall back, not a fatal error.
func (r *MultipartBodyRouter) Route(t Transport, boundary string, inputs []RangeRequest) ([]RangeResult, uint64, error) {
	parser := NewPartHeaderParser(boundary)
	outputs := make([]RangeResult, len(inputs))
	var total uint64

	for i := range inputs {
		outputs[i].Buffer = inputs[i].Buffer

		info, endOfBody, err := parser.Parse(t)
		if err != nil {
			if i == 0 {
				return nil, 0, errNoMultirangeSupport
			}
			return nil, 0, err
		}
		if endOfBody {
			return outputs[:i], total, nil
		}

		if inputs[i].Size != 0 && (info.Offset != inputs[i].Offset || info.Size != inputs[i].Size) {
			return nil, 0, newInvalidResponse("mismatched range in multipart response", nil)
		}

		if inputs[i].Size == 0 {
			if r.cfg.DrainZeroRangeByte {
				sentinel := make([]byte, 1)
				if err := t.ReadSegment(sentinel); err != nil {
					return nil, 0, err
				}
			}
			outputs[i].Size = 0
			continue
		}

		if err := t.ReadSegment(inputs[i].Buffer[:inputs[i].Size]); err != nil {
			return nil, 0, err
		}
		outputs[i].Size = inputs[i].Size
		total += inputs[i].Size
	}

	drainRemainder(t)
	return outputs, total, nil
}

// drainRemainder reads and discards any bytes left in the response so the
// underlying connection can be reused. Errors are ignored: the call has
// already succeeded by this point.
func drainRemainder(t Transport) {
	buf := make([]byte, 32*1024)
	for {
		n, err := t.ReadBlock(buf)
		if n == 0 || err != nil {
			return
		}
	}
}
