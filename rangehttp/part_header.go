package rangehttp

import (
	"strconv"
	"strings"
)

// maxPartHeaderLines bounds how many header lines a single part may
// contain, protecting against a server emitting an unbounded header stream.
const maxPartHeaderLines = 100

// partLineBufSize is the size of the fixed line buffer used while reading a
// part's headers.
const partLineBufSize = 4096

// ChunkInfo is parser state for one multipart part.
type ChunkInfo struct {
	// Bounded reports whether the opening boundary line has been seen.
	Bounded bool
	Offset  uint64
	Size    uint64
}

// partParserState is the PartHeaderParser's state machine position.
type partParserState int

const (
	stateInit partParserState = iota
	stateWantRange
	stateWantBlank
)

// PartHeaderParser reads the headers of one multipart/byteranges part using
// Transport.ReadLine, per the state machine in the specification's
// component design for PartHeaderParser.
type PartHeaderParser struct {
	boundary string
}

// NewPartHeaderParser returns a parser expecting parts delimited by
// boundary.
func NewPartHeaderParser(boundary string) *PartHeaderParser {
	return &PartHeaderParser{boundary: boundary}
}

// Parse reads one part's headers from t. It returns the parsed ChunkInfo, or
// endOfBody == true if the stream's closing boundary was encountered instead
// of another part.
func (p *PartHeaderParser) Parse(t Transport) (info ChunkInfo, endOfBody bool, err error) {
	state := stateInit
	buf := make([]byte, partLineBufSize)
	openBoundary := "--" + p.boundary
	closeBoundary := "--" + p.boundary + "--"

	for lines := 0; ; lines++ {
		if lines >= maxPartHeaderLines {
			return ChunkInfo{}, false, newInvalidResponse("multi-part header too long", nil)
		}

		n, rerr := t.ReadLine(buf)
		if rerr != nil {
			return ChunkInfo{}, false, newTransportError("reading part header line", rerr)
		}
		line := trimCRLF(buf[:n])

		switch state {
		case stateInit:
			if len(line) == 0 {
				continue // tolerate leading blank lines
			}
			if line == closeBoundary {
				return ChunkInfo{Bounded: true}, true, nil
			}
			if line == openBoundary {
				info.Bounded = true
				state = stateWantRange
				continue
			}
			return ChunkInfo{}, false, newInvalidResponse("invalid boundary line: "+line, nil)

		case stateWantRange:
			name, value, ok := splitHeaderLine(line)
			if ok && strings.EqualFold(name, "Content-Range") {
				off, size, perr := parseContentRangeValue(value)
				if perr != nil {
					return ChunkInfo{}, false, perr
				}
				info.Offset = off
				info.Size = size
				state = stateWantBlank
				continue
			}
			// Any other header line (or a malformed one) is ignored while we
			// wait for Content-Range.
			continue

		case stateWantBlank:
			if len(line) == 0 {
				return info, false, nil
			}
			return ChunkInfo{}, false, newInvalidResponse("malformed part header: expected blank line", nil)
		}
	}
}

// trimCRLF trims trailing \r and \n bytes from a line buffer.
func trimCRLF(b []byte) string {
	for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
		b = b[:len(b)-1]
	}
	return string(b)
}

// splitHeaderLine splits "Name: value" into (name, value, true), or returns
// ok == false if there's no colon.
func splitHeaderLine(line string) (name, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:idx]), strings.TrimSpace(line[idx+1:]), true
}

// contentRangeDelims are the byte values the Content-Range value is split
// on: space, tab, each of the letters 'b', 'y', 't', 'e', 's' on its own,
// '-', and '/'.
const contentRangeDelims = " bytes-/\t"

// parseContentRangeValue parses a Content-Range value of the form
// "bytes X-Y[/Z]" into (offset, size). size = Y - X + 1.
func parseContentRangeValue(value string) (offset, size uint64, err error) {
	tokens := strings.FieldsFunc(value, func(r rune) bool {
		return strings.ContainsRune(contentRangeDelims, r)
	})
	if len(tokens) < 2 {
		return 0, 0, newInvalidResponse("malformed Content-Range value: "+value, nil)
	}
	x, xerr := strconv.ParseUint(tokens[0], 10, 64)
	y, yerr := strconv.ParseUint(tokens[1], 10, 64)
	if xerr != nil || yerr != nil {
		return 0, 0, newInvalidResponse("malformed Content-Range value: "+value, nil)
	}
	if y < x {
		return 0, 0, newInvalidResponse("Content-Range end before start: "+value, nil)
	}
	return x, y - x + 1, nil
}
