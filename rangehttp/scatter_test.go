package rangehttp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docker/rangefetch/internal/testutil"
	"github.com/docker/rangefetch/rangehttp"
)

func TestFullBodyScattererOverlappingRanges(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	server := &testutil.FakeServer{Resource: testutil.Resource{Data: data}, Mode: testutil.ModeFullBody}
	tr, err := server.NewRequestFunc()(ctx, "http://example/test")
	require.NoError(t, err)
	tr.AddHeaderField("Range", "bytes=0-63")
	require.NoError(t, tr.BeginRequest(ctx))
	require.Equal(t, 200, tr.StatusCode())

	bufA := make([]byte, 10)
	bufB := make([]byte, 5)
	bufC := make([]byte, 20)
	inputs := []rangehttp.RangeRequest{
		{Offset: 0, Size: 10, Buffer: bufA},
		{Offset: 5, Size: 5, Buffer: bufB}, // overlaps A
		{Offset: 40, Size: 20, Buffer: bufC},
	}

	scatterer := rangehttp.NewFullBodyScatterer(rangehttp.DefaultConfig())
	results, total, err := scatterer.Scatter(tr, inputs)
	require.NoError(t, err)
	require.Equal(t, uint64(35), total)
	require.Equal(t, data[0:10], results[0].Buffer[:results[0].Size])
	require.Equal(t, data[5:10], results[1].Buffer[:results[1].Size])
	require.Equal(t, data[40:60], results[2].Buffer[:results[2].Size])
}

func TestFullBodyScattererSmallBlockSize(t *testing.T) {
	data := make([]byte, 1000)
	for i := range data {
		data[i] = byte(i % 251)
	}
	server := &testutil.FakeServer{Resource: testutil.Resource{Data: data}, Mode: testutil.ModeFullBody}
	tr, err := server.NewRequestFunc()(context.Background(), "http://example/test")
	require.NoError(t, err)
	tr.AddHeaderField("Range", "bytes=0-999")
	require.NoError(t, tr.BeginRequest(context.Background()))

	buf := make([]byte, 37)
	inputs := []rangehttp.RangeRequest{{Offset: 500, Size: 37, Buffer: buf}}

	cfg := rangehttp.DefaultConfig()
	cfg.BlockSize = 16 // deliberately small and not aligned to the range
	scatterer := rangehttp.NewFullBodyScatterer(cfg)
	results, total, err := scatterer.Scatter(tr, inputs)
	require.NoError(t, err)
	require.Equal(t, uint64(37), total)
	require.Equal(t, data[500:537], results[0].Buffer[:results[0].Size])
}
