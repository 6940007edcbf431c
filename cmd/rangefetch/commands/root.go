// Package commands implements the rangefetch CLI.
package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docker/rangefetch/pkg/metrics"
	"github.com/docker/rangefetch/rangehttp"
)

// NewRootCmd builds the rangefetch command: a single root command with
// flags, not a subcommand tree, since this binary does exactly one thing —
// read disjoint byte ranges of one HTTP resource in as few round trips as
// possible.
func NewRootCmd() *cobra.Command {
	var ranges []string
	var outPrefix string
	var noMultirange bool
	var showMetrics bool

	c := &cobra.Command{
		Use:           "rangefetch <url>",
		Short:         "Fetch disjoint byte ranges from an HTTP resource in as few round trips as possible",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := parseRangeFlags(ranges)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return fmt.Errorf("at least one --range is required")
			}

			collector := metrics.NewCollector()
			client := http.DefaultClient
			o := rangehttp.NewOrchestrator(rangehttp.NewClientFactory(client), rangehttp.WithMetrics(collector))

			fragment := map[string]string{}
			if noMultirange {
				fragment["multirange"] = "false"
			}
			ioctx := &rangehttp.IOChainContext{
				URI:            args[0],
				FragmentParams: fragment,
				Pread:          httpPread(client, args[0]),
			}

			results, total, outcome, err := o.PreadVec(cmd.Context(), ioctx, inputs)
			if err != nil {
				return fmt.Errorf("vector read: %w", err)
			}
			cmd.PrintErrf("fetched %d bytes across %d range(s), outcome=%s\n", total, len(results), outcome)

			for i, r := range results {
				name := fmt.Sprintf("%s.%d", outPrefix, i)
				if err := os.WriteFile(name, r.Buffer[:r.Size], 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", name, err)
				}
			}

			if showMetrics {
				if err := collector.WriteText(cmd.ErrOrStderr()); err != nil {
					return fmt.Errorf("writing metrics: %w", err)
				}
			}
			return nil
		},
	}

	c.Flags().StringArrayVar(&ranges, "range", nil, `byte range as "bytes=START-END", repeatable`)
	c.Flags().StringVar(&outPrefix, "out", "range", "output file prefix; ranges are written to <prefix>.0, <prefix>.1, ...")
	c.Flags().BoolVar(&noMultirange, "no-multirange", false, "force single-range GETs instead of attempting multipart/byteranges")
	c.Flags().BoolVar(&showMetrics, "metrics", false, "print this run's round-trip/outcome counters in Prometheus text format after fetching")
	return c
}

// parseRangeFlags turns repeated --range bytes=START-END flags into
// RangeRequests with freshly allocated buffers.
func parseRangeFlags(specs []string) ([]rangehttp.RangeRequest, error) {
	out := make([]rangehttp.RangeRequest, 0, len(specs))
	for _, spec := range specs {
		start, end, ok := parseSingleRangeFlag(spec)
		if !ok || end < 0 {
			return nil, fmt.Errorf("invalid --range %q, want bytes=START-END", spec)
		}
		size := uint64(end - start + 1)
		out = append(out, rangehttp.RangeRequest{
			Offset: uint64(start),
			Size:   size,
			Buffer: make([]byte, size),
		})
	}
	return out, nil
}

// parseSingleRangeFlag parses one --range flag's "bytes=START-END" value.
// It returns (start, end, ok); end is -1 when the flag omits an end offset.
// Unlike a Range request header this is a single-spec CLI flag, so a
// suffix form ("-N") or a comma-joined multi-range spec is simply invalid
// input rather than something a wire parser needs to reject politely.
func parseSingleRangeFlag(spec string) (start, end int64, ok bool) {
	spec = strings.TrimSpace(spec)
	if !strings.HasPrefix(strings.ToLower(spec), "bytes=") {
		return 0, -1, false
	}
	body := strings.TrimSpace(spec[len("bytes="):])
	if strings.Contains(body, ",") {
		return 0, -1, false
	}
	startEnd := strings.SplitN(body, "-", 2)
	if len(startEnd) != 2 || startEnd[0] == "" {
		return 0, -1, false
	}
	start, err := strconv.ParseInt(strings.TrimSpace(startEnd[0]), 10, 64)
	if err != nil || start < 0 {
		return 0, -1, false
	}
	end = -1
	if e := strings.TrimSpace(startEnd[1]); e != "" {
		parsed, err := strconv.ParseInt(e, 10, 64)
		if err != nil || parsed < start {
			return 0, -1, false
		}
		end = parsed
	}
	return start, end, true
}

// httpPread returns the single-range pread fallback used when multirange is
// disabled or unsupported: one GET with an explicit Range header per call.
func httpPread(client *http.Client, uri string) rangehttp.PreadFunc {
	return func(ctx context.Context, buf []byte, offset uint64) (int, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return 0, err
		}
		end := offset + uint64(len(buf))
		if len(buf) == 0 {
			end = offset
		} else {
			end--
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))

		resp, err := client.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusPartialContent:
		case http.StatusOK:
			// The server ignored Range and sent the whole resource.
			if _, err := io.CopyN(io.Discard, resp.Body, int64(offset)); err != nil {
				if err == io.EOF {
					return 0, nil
				}
				return 0, err
			}
		default:
			return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
		}

		n := 0
		for n < len(buf) {
			m, rerr := resp.Body.Read(buf[n:])
			n += m
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return n, rerr
			}
		}
		return n, nil
	}
}
