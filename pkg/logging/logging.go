// Package logging defines the narrow logging interface the rangehttp core
// uses for diagnostics, so callers embedding the core in a larger
// application can route its log lines through whatever logrus-compatible
// sink they already have.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is a bridging interface between logrus and a host application's own
// logging setup. *logrus.Logger and *logrus.Entry both satisfy it directly.
type Logger interface {
	logrus.FieldLogger
	Writer() *io.PipeWriter
}
