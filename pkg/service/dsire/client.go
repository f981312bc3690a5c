package dsire

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

const defaultBaseURL = "http://programs.dsireusa.org/api/v1"

const userAgent = "derrev/0.1 (dsire-client)"

// Client talks to the documented DSIRE endpoint:
// <base>/getprogramsbydate/[YYYYMMDD]/[YYYYMMDD]/json
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProgramsByDate fetches programs updated in [start, end] (inclusive
// dates) and unwraps whatever envelope the API wraps them in.
func (c *Client) GetProgramsByDate(ctx context.Context, start, end time.Time) ([]Record, error) {
	const layout = "20060102"
	endpoint := c.baseURL + "/getprogramsbydate/" + start.Format(layout) + "/" + end.Format(layout) + "/json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build DSIRE request", goerr.V("endpoint", endpoint))
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to call DSIRE", goerr.V("endpoint", endpoint))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, goerr.New("DSIRE returned non-200",
			goerr.V("endpoint", endpoint), goerr.V("status", resp.StatusCode))
	}

	var obj any
	if err := json.NewDecoder(resp.Body).Decode(&obj); err != nil {
		return nil, goerr.Wrap(err, "failed to decode DSIRE response")
	}
	return unwrapPrograms(obj), nil
}

// GetProgramsByWindow fetches [start, end] in calendar-month chunks, the
// granularity the endpoint handles reliably, and concatenates the results.
func (c *Client) GetProgramsByWindow(ctx context.Context, start, end time.Time) ([]Record, error) {
	var all []Record
	for _, chunk := range MonthChunks(start, end) {
		records, err := c.GetProgramsByDate(ctx, chunk.Start, chunk.End)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// DateChunk is one inclusive date range of at most a calendar month
type DateChunk struct {
	Start time.Time
	End   time.Time
}

// MonthChunks splits the inclusive date range [start, end] on calendar month
// boundaries.
func MonthChunks(start, end time.Time) []DateChunk {
	if end.Before(start) {
		return nil
	}

	var chunks []DateChunk
	chunkStart := start
	for !chunkStart.After(end) {
		firstOfNext := time.Date(chunkStart.Year(), chunkStart.Month()+1, 1, 0, 0, 0, 0, time.UTC)
		monthEnd := firstOfNext.AddDate(0, 0, -1)
		chunkEnd := monthEnd
		if end.Before(chunkEnd) {
			chunkEnd = end
		}
		chunks = append(chunks, DateChunk{Start: chunkStart, End: chunkEnd})
		chunkStart = monthEnd.AddDate(0, 0, 1)
	}
	return chunks
}

// unwrapPrograms tolerates the envelope shapes the API has used over time: a
// bare array, or an object keyed by programs/results/data/items.
func unwrapPrograms(obj any) []Record {
	switch v := obj.(type) {
	case nil:
		return nil
	case []any:
		return recordsOf(v)
	case map[string]any:
		for _, key := range []string{"programs", "Programs", "results", "data", "items"} {
			if list, ok := v[key].([]any); ok {
				return recordsOf(list)
			}
		}
		if len(v) > 0 {
			return []Record{Record(v)}
		}
	}
	return nil
}

func recordsOf(list []any) []Record {
	var out []Record
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}
