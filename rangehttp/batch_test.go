package rangehttp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docker/rangefetch/internal/testutil"
	"github.com/docker/rangefetch/rangehttp"
)

func TestFetchManyIndependentResources(t *testing.T) {
	dataA := makeData(200)
	dataB := makeData(300)
	serverA := &testutil.FakeServer{Resource: testutil.Resource{Data: dataA}, Mode: testutil.ModeMultipart, Boundary: "A"}
	serverB := &testutil.FakeServer{Resource: testutil.Resource{Data: dataB}, Mode: testutil.ModeFullBody}

	o := rangehttp.NewOrchestrator(func(ctx context.Context, uri string) (rangehttp.Transport, error) {
		if uri == "a" {
			return serverA.NewRequestFunc()(ctx, uri)
		}
		return serverB.NewRequestFunc()(ctx, uri)
	})

	requests := []rangehttp.BatchRequest{
		{
			IOContext: &rangehttp.IOChainContext{URI: "a", Pread: serverA.Pread},
			Ranges: []rangehttp.RangeRequest{
				{Offset: 0, Size: 10, Buffer: make([]byte, 10)},
				{Offset: 100, Size: 10, Buffer: make([]byte, 10)},
			},
		},
		{
			IOContext: &rangehttp.IOChainContext{URI: "b", Pread: serverB.Pread},
			Ranges: []rangehttp.RangeRequest{
				{Offset: 0, Size: 5, Buffer: make([]byte, 5)},
			},
		},
	}

	results, err := o.FetchMany(context.Background(), requests)
	require.NoError(t, err)
	require.Len(t, results, 2)

	require.NoError(t, results[0].Err)
	require.Equal(t, rangehttp.OutcomeSuccess, results[0].Outcome)
	require.Equal(t, dataA[0:10], results[0].Results[0].Buffer[:results[0].Results[0].Size])
	require.Equal(t, dataA[100:110], results[0].Results[1].Buffer[:results[0].Results[1].Size])

	require.NoError(t, results[1].Err)
	require.Equal(t, rangehttp.OutcomeSuccess, results[1].Outcome)
	require.Equal(t, dataB[0:5], results[1].Results[0].Buffer[:results[1].Results[0].Size])
}
