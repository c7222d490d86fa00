package decoder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"vehicle-data-pipeline/models"
	"vehicle-data-pipeline/utils"
)

const (
	// DefaultBatchSize is the most VINs the batch endpoint accepts per call.
	DefaultBatchSize = 50
	// DefaultConcurrency is the number of chunk requests in flight at once.
	DefaultConcurrency = 15

	vinDelimiter = ";"
)

// ErrUnexpectedStatus marks a chunk whose response was not 200 OK.
var ErrUnexpectedStatus = errors.New("decoder: unexpected status")

// Options configures a Client.
type Options struct {
	URL         string
	BatchSize   int
	Concurrency int
	Timeout     time.Duration
	Retries     int
}

// ChunkResult is the outcome of one chunk request. Exactly one of Response
// and Err is set. Status and Body are filled whenever a response arrived.
type ChunkResult struct {
	Index    int
	VINs     []string
	Status   int
	Body     string
	Response *Response
	Err      error
}

// OK reports whether the chunk produced a parsed payload.
func (c ChunkResult) OK() bool {
	return c.Err == nil && c.Response != nil
}

// Client fans VIN chunks out to the batch decode endpoint.
type Client struct {
	http   *resty.Client
	opts   Options
	logger *utils.Logger
}

// NewClient creates a Client. Zero batch size and concurrency fall back to
// the defaults.
func NewClient(opts Options, logger *utils.Logger) *Client {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}

	httpClient := resty.New().
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.Retries)
	if opts.Timeout > 0 {
		httpClient.SetTimeout(opts.Timeout)
	}

	return &Client{http: httpClient, opts: opts, logger: logger}
}

// VINsOf returns the VINs of records in order.
func VINsOf(records []*models.RawVehicleRecord) []string {
	vins := make([]string, 0, len(records))
	for _, r := range records {
		vins = append(vins, r.VIN)
	}
	return vins
}

// ChunkVINs splits vins into contiguous chunks of at most size, dropping
// blank values first.
func ChunkVINs(vins []string, size int) [][]string {
	if size < 1 {
		size = DefaultBatchSize
	}

	kept := make([]string, 0, len(vins))
	for _, v := range vins {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}

	var chunks [][]string
	for i := 0; i < len(kept); i += size {
		end := i + size
		if end > len(kept) {
			end = len(kept)
		}
		chunks = append(chunks, kept[i:end])
	}
	return chunks
}

// Decode issues one request per chunk of vins on a bounded pool and returns
// once every request has finished. Results are indexed by chunk; a failed
// chunk carries its error and never affects the others.
func (c *Client) Decode(ctx context.Context, vins []string) []ChunkResult {
	chunks := ChunkVINs(vins, c.opts.BatchSize)
	results := make([]ChunkResult, len(chunks))
	if len(chunks) == 0 {
		return results
	}

	c.logger.Info("[decoder] Decoding %d VINs in %d chunks (concurrency %d)",
		countVINs(chunks), len(chunks), c.opts.Concurrency)

	pool := utils.NewWorkerPool(c.opts.Concurrency, 0)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		pool.Submit(func() {
			results[i] = c.decodeChunk(ctx, i, chunk)
		})
	}
	pool.Wait()

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
			c.logger.Warn("[decoder] Chunk %d (%d VINs) skipped: %v", r.Index, len(r.VINs), r.Err)
		}
	}
	c.logger.Info("[decoder] %d/%d chunks decoded", len(chunks)-failed, len(chunks))

	return results
}

func (c *Client) decodeChunk(ctx context.Context, index int, vins []string) ChunkResult {
	result := ChunkResult{Index: index, VINs: vins}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"format": "json",
			"data":   strings.Join(vins, vinDelimiter),
		}).
		Post(c.opts.URL)
	if err != nil {
		result.Err = fmt.Errorf("decoder: post chunk %d: %w", index, err)
		return result
	}

	result.Status = res.StatusCode()
	result.Body = res.String()
	if res.StatusCode() != 200 {
		result.Err = fmt.Errorf("%w %d: %s", ErrUnexpectedStatus, res.StatusCode(), truncate(result.Body, 200))
		return result
	}

	resp, err := DecodeResponse(res.Body())
	if err != nil {
		result.Err = err
		return result
	}
	result.Response = resp
	return result
}

func countVINs(chunks [][]string) int {
	n := 0
	for _, c := range chunks {
		n += len(c)
	}
	return n
}

// truncate shortens s to at most max runes, ending in "..." when cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
