package rangehttp

import "sort"

// intervalEntry is one entry in FullBodyScatterer's sorted interval index:
// one per input range, ordered by offset with duplicate offsets allowed
// (overlapping ranges are legal).
type intervalEntry struct {
	origIndex    int
	offset       uint64
	size         uint64
	buffer       []byte
	bytesWritten uint64
}

// FullBodyScatterer streams a full (200 OK) response body once and
// scatter-copies the bytes that fall within any requested range into the
// caller's per-range buffers, using a sorted interval index walked by two
// monotonically-advancing cursors.
type FullBodyScatterer struct {
	cfg Config
}

// NewFullBodyScatterer returns a scatterer configured by cfg.
func NewFullBodyScatterer(cfg Config) *FullBodyScatterer {
	return &FullBodyScatterer{cfg: cfg}
}

// Scatter reads the full response body from t and scatters it into inputs'
// buffers. It returns the per-range results, in input order, and the total
// bytes copied.
func (s *FullBodyScatterer) Scatter(t Transport, inputs []RangeRequest) ([]RangeResult, uint64, error) {
	entries := make([]*intervalEntry, len(inputs))
	for i, in := range inputs {
		entries[i] = &intervalEntry{origIndex: i, offset: in.Offset, size: in.Size, buffer: in.Buffer}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].offset < entries[j].offset })

	blockSize := s.cfg.BlockSize
	if blockSize <= 0 {
		blockSize = 32 * 1024
	}
	buf := make([]byte, blockSize)

	start, end := 0, 0
	var pos uint64

	for {
		n, err := t.ReadBlock(buf)
		if n == 0 && err == nil {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			break
		}
		block := buf[:n]

		// Advance start: entries fully behind the current window are done.
		for start < len(entries) && pos > entries[start].offset+entries[start].size {
			start++
		}
		// Advance end: entries that have begun within the current window.
		for end < len(entries) && pos+uint64(n) > entries[end].offset {
			end++
		}

		for i := start; i < end; i++ {
			e := entries[i]
			if e.bytesWritten >= e.size {
				continue
			}
			writeCursor := e.offset + e.bytesWritten
			if writeCursor < pos {
				// This range's next unwritten byte is behind the current
				// window (already passed); nothing to do here.
				continue
			}
			readOffsetInBlock := writeCursor - pos
			if readOffsetInBlock >= uint64(len(block)) {
				continue
			}
			remaining := e.size - e.bytesWritten
			avail := uint64(len(block)) - readOffsetInBlock
			copyLen := remaining
			if avail < copyLen {
				copyLen = avail
			}
			if copyLen == 0 {
				continue
			}
			copy(e.buffer[e.bytesWritten:e.bytesWritten+copyLen], block[readOffsetInBlock:readOffsetInBlock+copyLen])
			e.bytesWritten += copyLen
		}

		pos += uint64(n)
	}

	outputs := make([]RangeResult, len(inputs))
	var total uint64
	for _, e := range entries {
		outputs[e.origIndex] = RangeResult{Buffer: e.buffer, Size: e.bytesWritten}
		total += e.bytesWritten
	}
	return outputs, total, nil
}
