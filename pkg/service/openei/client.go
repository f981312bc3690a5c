package openei

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

const defaultBaseURL = "https://api.openei.org"

// Result is one utility candidate for an address lookup
type Result struct {
	UtilityName  string
	UtilityIDEIA int64
	State        string
}

// Alias is one row of the utility companies & aliases dataset
type Alias struct {
	Name  string
	EIAID int64
}

// Client wraps the two OpenEI endpoints used for utility identification:
// utility_rates v7 (address lookup) and utility_companies v3 (aliases with
// EIA IDs). An API key is optional but strongly rate-limited without one.
type Client struct {
	baseURL    string
	apiKey     string
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

// New creates an OpenEI client. An empty apiKey falls back to
// NREL_OPENEI_API_KEY then OPENEI_API_KEY.
func New(apiKey string, opts ...Option) *Client {
	if apiKey == "" {
		apiKey = os.Getenv("NREL_OPENEI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("OPENEI_API_KEY")
	}

	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	params.Set("format", "json")

	endpoint := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build OpenEI request", goerr.V("path", path))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call OpenEI", goerr.V("path", path))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return goerr.New("OpenEI returned non-200",
			goerr.V("path", path), goerr.V("status", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return goerr.Wrap(err, "failed to decode OpenEI response", goerr.V("path", path))
	}
	return nil
}

// EIA IDs appear as numbers or digit strings depending on the record
type flexID int64

func (x *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	v, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		*x = 0
		return nil
	}
	*x = flexID(v)
	return nil
}

type rateItem struct {
	Utility      string `json:"utility"`
	UtilityName  string `json:"utility_name"`
	State        string `json:"state"`
	EIAID        flexID `json:"eiaid"`
	EIAID2       flexID `json:"eia_id"`
	UtilityIDEIA flexID `json:"utility_id_eia"`
}

// GetByAddress resolves an address to candidate utilities via utility_rates.
// Duplicate (name, EIA ID, state) tuples are collapsed.
func (c *Client) GetByAddress(ctx context.Context, address string) ([]Result, error) {
	params := url.Values{}
	params.Set("version", "7")
	params.Set("address", address)
	params.Set("detail", "full")

	var payload struct {
		Items []rateItem `json:"items"`
	}
	if err := c.get(ctx, "/utility_rates", params, &payload); err != nil {
		return nil, err
	}

	type key struct {
		name  string
		eiaID int64
		state string
	}
	seen := make(map[key]struct{}, len(payload.Items))
	var results []Result
	for _, item := range payload.Items {
		name := item.Utility
		if name == "" {
			name = item.UtilityName
		}
		eiaID := int64(item.EIAID)
		if eiaID == 0 {
			eiaID = int64(item.EIAID2)
		}
		if eiaID == 0 {
			eiaID = int64(item.UtilityIDEIA)
		}

		k := key{name: name, eiaID: eiaID, state: item.State}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		results = append(results, Result{
			UtilityName:  name,
			UtilityIDEIA: eiaID,
			State:        item.State,
		})
	}
	return results, nil
}

type aliasItem struct {
	Name         string `json:"name"`
	EIAID        flexID `json:"eiaid"`
	EIAID2       flexID `json:"eia_id"`
	UtilityIDEIA flexID `json:"utility_id_eia"`
}

// GetUtilityAliases searches the utility companies & aliases dataset, which
// carries normalized names with EIA IDs.
func (c *Client) GetUtilityAliases(ctx context.Context, query string) ([]Alias, error) {
	params := url.Values{}
	params.Set("version", "3")
	params.Set("q", query)

	var payload struct {
		Items []aliasItem `json:"items"`
	}
	if err := c.get(ctx, "/utility_companies", params, &payload); err != nil {
		return nil, err
	}

	aliases := make([]Alias, 0, len(payload.Items))
	for _, item := range payload.Items {
		eiaID := int64(item.EIAID)
		if eiaID == 0 {
			eiaID = int64(item.EIAID2)
		}
		if eiaID == 0 {
			eiaID = int64(item.UtilityIDEIA)
		}
		aliases = append(aliases, Alias{Name: item.Name, EIAID: eiaID})
	}
	return aliases, nil
}
