package rangehttp

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/docker/rangefetch/internal/common"
)

// Orchestrator is the top-level dispatcher: VectorReadOrchestrator from the
// specification. It decides between a multirange attempt, simulated
// multirange (N single-range GETs via the IOChainContext's pread fallback),
// and full-body scatter, recovering from the several distinct ways real
// servers diverge from RFC 7233.
type Orchestrator struct {
	newRequest NewRequestFunc
	cfg        Config
}

// NewOrchestrator returns an Orchestrator that issues HTTP requests via
// newRequest, configured by opts.
func NewOrchestrator(newRequest NewRequestFunc, opts ...Option) *Orchestrator {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return &Orchestrator{newRequest: newRequest, cfg: cfg}
}

// PreadVec is the entry point: given the per-call IOChainContext and the
// input ranges, it returns the per-range results, the total bytes copied,
// the outcome tag, and an error (non-nil only on fatal failure).
func (o *Orchestrator) PreadVec(ctx context.Context, ioctx *IOChainContext, inputs []RangeRequest) ([]RangeResult, uint64, MultirangeOutcome, error) {
	if len(inputs) == 0 {
		return nil, 0, OutcomeSuccess, nil
	}

	if len(inputs) == 1 || o.multirangeDisabled(ioctx) {
		outputs, total, err := o.singleRangeFallback(ctx, ioctx, inputs)
		if err != nil {
			o.cfg.Metrics.RecordOutcome(OutcomeError.String())
			return nil, 0, OutcomeError, err
		}
		o.cfg.Metrics.RecordOutcome(OutcomeSuccess.String())
		return outputs, total, OutcomeSuccess, nil
	}

	outputs, total, outcome, err := o.multirangeAttempt(ctx, ioctx, inputs)
	if err != nil {
		o.cfg.Metrics.RecordOutcome(OutcomeError.String())
		return nil, 0, OutcomeError, err
	}
	if outcome != OutcomeNoMultirangeSupported {
		o.cfg.Metrics.RecordOutcome(outcome.String())
		return outputs, total, outcome, nil
	}

	o.cfg.Logger.WithField("ranges", len(inputs)).Debug("rangehttp: falling back to single-range preads")
	outputs, total, err = o.singleRangeFallback(ctx, ioctx, inputs)
	if err != nil {
		o.cfg.Metrics.RecordOutcome(OutcomeError.String())
		return nil, 0, OutcomeError, err
	}
	o.cfg.Metrics.RecordOutcome(OutcomeNoMultirangeSupported.String())
	return outputs, total, OutcomeNoMultirangeSupported, nil
}

func (o *Orchestrator) multirangeDisabled(ioctx *IOChainContext) bool {
	v, ok := ioctx.FragmentParam("multirange")
	return ok && v == "false"
}

// singleRangeFallback issues N independent single-range preads via the
// IOChainContext, used for N==1, for "#multirange=false", and for any
// recoverable multirange failure.
func (o *Orchestrator) singleRangeFallback(ctx context.Context, ioctx *IOChainContext, inputs []RangeRequest) ([]RangeResult, uint64, error) {
	outputs := make([]RangeResult, len(inputs))
	var total uint64
	for i, in := range inputs {
		n, err := ioctx.Pread(ctx, in.Buffer[:in.Size], in.Offset)
		if err != nil {
			return nil, 0, newTransportError(fmt.Sprintf("pread fallback for range %d", i), err)
		}
		outputs[i] = RangeResult{Buffer: in.Buffer, Size: uint64(n)}
		total += uint64(n)
	}
	return outputs, total, nil
}

// multirangeAttempt implements §4.6's "Multirange path".
func (o *Orchestrator) multirangeAttempt(ctx context.Context, ioctx *IOChainContext, inputs []RangeRequest) ([]RangeResult, uint64, MultirangeOutcome, error) {
	var totalRequested uint64
	for _, in := range inputs {
		totalRequested += in.Size
	}

	packs := BuildRangeHeaders(inputs, o.cfg.ByteRangeHeaderBudget)
	outputs := make([]RangeResult, len(inputs))
	for i, in := range inputs {
		outputs[i].Buffer = in.Buffer
	}

	var total uint64
	var validator string

	for _, pack := range packs {
		if pack.Count == 1 {
			in := inputs[pack.Start]
			n, err := ioctx.Pread(ctx, in.Buffer[:in.Size], in.Offset)
			if err != nil {
				return nil, 0, OutcomeError, newTransportError("single-range pread within multirange plan", err)
			}
			outputs[pack.Start] = RangeResult{Buffer: in.Buffer, Size: uint64(n)}
			total += uint64(n)
			continue
		}

		outcome, packOutputs, packTotal, newValidator, err := o.issueRange(ctx, ioctx, inputs, pack, validator, totalRequested)
		if err != nil {
			return nil, 0, OutcomeError, err
		}
		if newValidator != "" {
			validator = newValidator
		}

		switch outcome {
		case OutcomeSuccess:
			copy(outputs[pack.Start:pack.Start+pack.Count], packOutputs)
			total += packTotal
			continue
		case OutcomeSuccessButWholeFile:
			// FullBodyScatterer was dispatched across ALL original inputs
			// already; the body covers everything, so we're done.
			return packOutputs, packTotal, OutcomeSuccessButWholeFile, nil
		case OutcomeNoMultirangeSupported:
			return nil, 0, OutcomeNoMultirangeSupported, nil
		}
	}

	return outputs, total, OutcomeSuccess, nil
}

// issueRange performs one HTTP GET for a multi-range header pack and
// dispatches the response to MultipartBodyRouter (206) or
// FullBodyScatterer (200, across all original inputs).
func (o *Orchestrator) issueRange(ctx context.Context, ioctx *IOChainContext, inputs []RangeRequest, pack HeaderPack, validator string, totalRequested uint64) (MultirangeOutcome, []RangeResult, uint64, string, error) {
	t, err := o.newRequest(ctx, ioctx.URI)
	if err != nil {
		return OutcomeError, nil, 0, "", err
	}
	defer func() { _ = t.EndRequest() }()
	o.cfg.Metrics.RecordRoundTrip()

	t.SetParameters(ioctx.RequestParameters)
	t.AddHeaderField("Range", "bytes="+pack.Value)
	if o.cfg.UseIfRangeValidator && validator != "" {
		t.AddHeaderField("If-Range", validator)
	}

	if err := t.BeginRequest(ctx); err != nil {
		return OutcomeError, nil, 0, "", err
	}

	newValidator := validator
	if o.cfg.UseIfRangeValidator {
		if v, ok := t.AnswerHeader("ETag"); ok && !common.IsWeakETag(v) {
			newValidator = v
		} else if v, ok := t.AnswerHeader("Last-Modified"); ok {
			newValidator = v
		}
	}

	switch t.StatusCode() {
	case 206:
		boundary, berr := o.boundaryFor(t)
		if berr != nil {
			o.cfg.Logger.WithError(berr).Debug("rangehttp: 206 without multipart framing")
			return OutcomeNoMultirangeSupported, nil, 0, newValidator, nil
		}
		router := NewMultipartBodyRouter(o.cfg)
		results, total, rerr := router.Route(t, boundary, inputs[pack.Start:pack.Start+pack.Count])
		if rerr == errNoMultirangeSupport {
			return OutcomeNoMultirangeSupported, nil, 0, newValidator, nil
		}
		if rerr != nil {
			return OutcomeError, nil, 0, "", rerr
		}
		return OutcomeSuccess, results, total, newValidator, nil

	case 200:
		if rangeAware, ok := t.(interface{ ServerSupportsRange() bool }); ok && rangeAware.ServerSupportsRange() {
			o.cfg.Logger.Debug("rangehttp: server advertises Accept-Ranges but ignored Range on this request")
		}
		contentLength := t.AnswerSize()
		if sizeGuarded(contentLength, totalRequested, o.cfg) {
			o.cfg.Logger.WithField("content_length", contentLength).Debug("rangehttp: size guard triggered, abandoning full-body scatter")
			return OutcomeNoMultirangeSupported, nil, 0, newValidator, nil
		}
		scatterer := NewFullBodyScatterer(o.cfg)
		results, total, serr := scatterer.Scatter(t, inputs)
		if serr != nil {
			return OutcomeError, nil, 0, "", serr
		}
		return OutcomeSuccessButWholeFile, results, total, newValidator, nil

	default:
		return OutcomeError, nil, 0, "", newHTTPCodeError(t.StatusCode())
	}
}

// boundaryFor extracts the multipart boundary from a 206 response's
// Content-Type header.
func (o *Orchestrator) boundaryFor(t Transport) (string, error) {
	ct, ok := t.AnswerHeader("Content-Type")
	if !ok {
		return "", newInvalidResponse("206 response missing Content-Type", nil)
	}
	return ExtractBoundary(ct)
}

// sizeGuarded implements the size-guard heuristic: abandon the full-body
// path when Content-Length exceeds both an absolute threshold and a
// multiple of the total requested bytes.
func sizeGuarded(contentLength int64, totalRequested uint64, cfg Config) bool {
	if contentLength <= 0 {
		return false
	}
	return contentLength > cfg.SizeGuardAbsoluteBytes &&
		contentLength > cfg.SizeGuardMultiplier*int64(totalRequested)
}
