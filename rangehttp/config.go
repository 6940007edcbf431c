package rangehttp

import (
	"github.com/sirupsen/logrus"

	"github.com/docker/rangefetch/pkg/logging"
	"github.com/docker/rangefetch/pkg/metrics"
)

// Config holds the tunables the specification calls out as configurable
// rather than hardcoded (the two Open Questions in spec.md §9), plus the
// streaming block size used by FullBodyScatterer.
type Config struct {
	// ByteRangeHeaderBudget bounds the length of a single Range header value
	// produced by the header packer. Default 3900 (many servers and
	// intermediaries cap a header line at 4 KiB and the header block at
	// 8 KiB).
	ByteRangeHeaderBudget int
	// BlockSize is the streaming read size used by FullBodyScatterer.
	// Default 32 KiB.
	BlockSize int
	// SizeGuardAbsoluteBytes is the Content-Length threshold above which the
	// size guard considers abandoning the full-body scatter path. Default
	// 1 MiB.
	SizeGuardAbsoluteBytes int64
	// SizeGuardMultiplier is the factor by which Content-Length must exceed
	// the total requested bytes, in addition to SizeGuardAbsoluteBytes, to
	// trigger the guard. Default 2.
	SizeGuardMultiplier int64
	// DrainZeroRangeByte controls whether MultipartBodyRouter reads and
	// discards one sentinel byte for a zero-size input range. Some servers
	// refuse to emit empty parts and emit one byte instead; a server that
	// conforms to RFC 7233 and emits nothing will desynchronize the parser
	// if this is left on, hence it's configurable (spec.md §9 Open
	// Question). Default true, matching the documented quirk.
	DrainZeroRangeByte bool
	// UseIfRangeValidator enables capturing a strong ETag or Last-Modified
	// from the first response of a call and setting If-Range on subsequent
	// range requests within that same call, so a resource that mutates
	// mid-call is detected rather than silently mixed.
	UseIfRangeValidator bool
	// Logger receives structured diagnostics about fallback decisions. If
	// nil, logrus.StandardLogger() is used.
	Logger logging.Logger
	// Metrics, if non-nil, receives round-trip and outcome counters. A nil
	// Metrics is fine: the recording methods the core calls tolerate a nil
	// receiver.
	Metrics *metrics.Collector
}

// Option configures an Orchestrator.
type Option func(*Config)

// WithByteRangeHeaderBudget overrides the default 3900-byte header budget.
func WithByteRangeHeaderBudget(n int) Option {
	return func(c *Config) { c.ByteRangeHeaderBudget = n }
}

// WithBlockSize overrides the default 32 KiB scatter streaming block size.
func WithBlockSize(n int) Option {
	return func(c *Config) { c.BlockSize = n }
}

// WithSizeGuard overrides the default 1 MiB / 2x size-guard heuristic.
func WithSizeGuard(absoluteBytes, multiplier int64) Option {
	return func(c *Config) {
		c.SizeGuardAbsoluteBytes = absoluteBytes
		c.SizeGuardMultiplier = multiplier
	}
}

// WithDrainZeroRangeByte controls the zero-size-part sentinel-byte drain.
func WithDrainZeroRangeByte(drain bool) Option {
	return func(c *Config) { c.DrainZeroRangeByte = drain }
}

// WithIfRangeValidator toggles If-Range validator tracking across the
// requests issued by a single call.
func WithIfRangeValidator(use bool) Option {
	return func(c *Config) { c.UseIfRangeValidator = use }
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics attaches a Collector that records round trips and call
// outcomes.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Config) { c.Metrics = m }
}

// DefaultConfig returns the specification's default tunables, useful for
// tests and callers that want to override only a few fields by hand instead
// of going through the Option constructors.
func DefaultConfig() Config {
	return defaultConfig()
}

// defaultConfig returns the specification's default tunables.
func defaultConfig() Config {
	return Config{
		ByteRangeHeaderBudget:  3900,
		BlockSize:              32 * 1024,
		SizeGuardAbsoluteBytes: 1024 * 1024,
		SizeGuardMultiplier:    2,
		DrainZeroRangeByte:     true,
		UseIfRangeValidator:    true,
		Logger:                 logrus.StandardLogger(),
	}
}
