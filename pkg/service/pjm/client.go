package pjm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

const defaultBaseURL = "https://api.pjm.com/api/v1"

// apiKeyEnvVars is the resolution order for the subscription key
var apiKeyEnvVars = []string{
	"PJM_API_PRIMARY_KEY",
	"PJM_API_KEY",
	"PJM_PRIMARY_KEY",
	"PJM_KEY",
}

// Client is a thin wrapper over the PJM Data Miner v1 datasets used by the
// merchant overlay.
type Client struct {
	baseURL      string
	primaryKey   string
	secondaryKey string
	httpClient   *http.Client
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

func WithSecondaryKey(key string) Option {
	return func(c *Client) {
		c.secondaryKey = key
	}
}

// New creates a Data Miner client. When primaryKey is empty, the key is
// resolved from the environment (first match wins): PJM_API_PRIMARY_KEY,
// PJM_API_KEY, PJM_PRIMARY_KEY, PJM_KEY.
func New(primaryKey string, opts ...Option) (*Client, error) {
	if primaryKey == "" {
		for _, name := range apiKeyEnvVars {
			if v := os.Getenv(name); v != "" {
				primaryKey = v
				break
			}
		}
	}
	if primaryKey == "" {
		return nil, goerr.New("no PJM API key provided: set PJM_API_PRIMARY_KEY or pass a key")
	}

	c := &Client{
		baseURL:    defaultBaseURL,
		primaryKey: primaryKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if c.secondaryKey == "" {
		c.secondaryKey = os.Getenv("PJM_API_SECONDARY_KEY")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// formatEPTRange renders the datetime filter with an exclusive upper bound,
// e.g. "2023-07-01 00:00:00 to 2023-07-31 23:59:59".
func formatEPTRange(start, endExclusive time.Time) string {
	const layout = "2006-01-02 15:04:05"
	endInclusive := endExclusive.Add(-time.Second)
	return start.Format(layout) + " to " + endInclusive.Format(layout)
}

type itemsEnvelope struct {
	Items json.RawMessage `json:"items"`
}

func (c *Client) get(ctx context.Context, dataset string, params url.Values, out any) error {
	if params.Get("rowCount") == "" {
		params.Set("rowCount", "50000")
	}
	if params.Get("startRow") == "" {
		params.Set("startRow", "1")
	}

	endpoint := c.baseURL + "/" + dataset + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return goerr.Wrap(err, "failed to build request", goerr.V("dataset", dataset))
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.primaryKey)
	if c.secondaryKey != "" {
		req.Header.Set("Ocp-Apim-Subscription-Key-Secondary", c.secondaryKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return goerr.Wrap(err, "failed to call Data Miner", goerr.V("dataset", dataset))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return goerr.New("Data Miner returned non-200",
			goerr.V("dataset", dataset), goerr.V("status", resp.StatusCode))
	}

	var envelope itemsEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return goerr.Wrap(err, "failed to decode Data Miner response", goerr.V("dataset", dataset))
	}
	if len(envelope.Items) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Items, out); err != nil {
		return goerr.Wrap(err, "failed to decode Data Miner items", goerr.V("dataset", dataset))
	}
	return nil
}

type regPriceItem struct {
	Start string     `json:"datetime_beginning_ept"`
	RMCCP *flexFloat `json:"rmccp"`
	RMPCP *flexFloat `json:"rmpcp"`
}

// RegZonePrelimBill returns hourly regulation clearing prices (RMCCP/RMPCP)
// from the reg_zone_prelim_bill dataset. Rows without a parseable timestamp
// are dropped; missing prices coerce to zero. The result is sorted by hour.
func (c *Client) RegZonePrelimBill(ctx context.Context, start, endExclusive time.Time) ([]RegPrice, error) {
	params := url.Values{}
	params.Set("datetime_beginning_ept", formatEPTRange(start, endExclusive))

	var items []regPriceItem
	if err := c.get(ctx, "reg_zone_prelim_bill", params, &items); err != nil {
		return nil, err
	}

	prices := make([]RegPrice, 0, len(items))
	for _, item := range items {
		ts, err := parseEPT(item.Start)
		if err != nil {
			continue
		}
		prices = append(prices, RegPrice{
			Start: ts,
			RMCCP: floatOrZero(item.RMCCP),
			RMPCP: floatOrZero(item.RMPCP),
		})
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Start.Before(prices[j].Start) })
	return prices, nil
}

type regMarketItem struct {
	Start       string     `json:"datetime_beginning_ept"`
	RegAHourly  *flexFloat `json:"rega_hourly"`
	RegAHourly2 *flexFloat `json:"reg_a_hourly"`
	RegAMileage *flexFloat `json:"rega_mileage"`
	RegDHourly  *flexFloat `json:"regd_hourly"`
	RegDHourly2 *flexFloat `json:"reg_d_hourly"`
	RegDMileage *flexFloat `json:"regd_mileage"`
	MarketArea  string     `json:"market_area"`
	Product     string     `json:"product"`
}

// RegMarketResults returns hourly RegA/RegD signal data for the mileage
// ratio. Column names vary across dataset vintages, so all known variants
// are accepted.
func (c *Client) RegMarketResults(ctx context.Context, start, endExclusive time.Time) ([]RegMarket, error) {
	params := url.Values{}
	params.Set("datetime_beginning_ept", formatEPTRange(start, endExclusive))

	var items []regMarketItem
	if err := c.get(ctx, "reg_market_results", params, &items); err != nil {
		return nil, err
	}

	results := make([]RegMarket, 0, len(items))
	for _, item := range items {
		ts, err := parseEPT(item.Start)
		if err != nil {
			continue
		}
		results = append(results, RegMarket{
			Start:      ts,
			RegAHourly: firstFloat(item.RegAHourly, item.RegAHourly2, item.RegAMileage),
			RegDHourly: firstFloat(item.RegDHourly, item.RegDHourly2, item.RegDMileage),
			MarketArea: item.MarketArea,
			Product:    item.Product,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Start.Before(results[j].Start) })
	return results, nil
}

type lmpItem struct {
	Start      string     `json:"datetime_beginning_ept"`
	TotalLMPDA *flexFloat `json:"total_lmp_da"`
	TotalLMPRT *flexFloat `json:"total_lmp_rt"`
}

// HourlyLMPs returns hourly total LMPs for a zone (or a specific pnode when
// pnodeID is non-zero, which overrides the zone filter).
func (c *Client) HourlyLMPs(ctx context.Context, market types.Market, zone string, pnodeID int64, start, endExclusive time.Time) ([]LMP, error) {
	params := url.Values{}
	params.Set("datetime_beginning_ept", formatEPTRange(start, endExclusive))
	if pnodeID != 0 {
		params.Set("pnode_id", strconv.FormatInt(pnodeID, 10))
	} else if zone != "" {
		params.Set("zone", zone)
	}

	var items []lmpItem
	if err := c.get(ctx, datasetForLMP(market), params, &items); err != nil {
		return nil, err
	}

	lmps := make([]LMP, 0, len(items))
	for _, item := range items {
		ts, err := parseEPT(item.Start)
		if err != nil {
			continue
		}
		price := item.TotalLMPDA
		if market == types.MarketRealTime {
			price = item.TotalLMPRT
		}
		if price == nil || math.IsNaN(float64(*price)) {
			continue
		}
		lmps = append(lmps, LMP{Start: ts, TotalLMP: float64(*price)})
	}
	sort.Slice(lmps, func(i, j int) bool { return lmps[i].Start.Before(lmps[j].Start) })
	return lmps, nil
}

type reserveItem struct {
	Start         string     `json:"datetime_beginning_ept"`
	ClearingPrice *flexFloat `json:"clearing_price"`
	MCP           *flexFloat `json:"mcp"`
	Product       string     `json:"product"`
	MarketArea    string     `json:"market_area"`
}

// ReserveMarketResults returns hourly reserve clearing prices for one
// ancillary product in one market area.
func (c *Client) ReserveMarketResults(ctx context.Context, market types.Market, area, product string, start, endExclusive time.Time) ([]ReservePrice, error) {
	params := url.Values{}
	params.Set("datetime_beginning_ept", formatEPTRange(start, endExclusive))
	if area != "" {
		params.Set("market_area", area)
	}
	if product != "" {
		params.Set("product", product)
	}

	var items []reserveItem
	if err := c.get(ctx, datasetForReserves(market), params, &items); err != nil {
		return nil, err
	}

	prices := make([]ReservePrice, 0, len(items))
	for _, item := range items {
		ts, err := parseEPT(item.Start)
		if err != nil {
			continue
		}
		price := firstFloat(item.ClearingPrice, item.MCP)
		if price == nil || math.IsNaN(*price) {
			continue
		}
		prices = append(prices, ReservePrice{Start: ts, ClearingPrice: *price, Product: item.Product})
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Start.Before(prices[j].Start) })
	return prices, nil
}

func floatOrZero(v *flexFloat) float64 {
	if v == nil || math.IsNaN(float64(*v)) {
		return 0
	}
	return float64(*v)
}

// firstFloat returns the first present, non-NaN candidate
func firstFloat(candidates ...*flexFloat) *float64 {
	for _, c := range candidates {
		if c != nil && !math.IsNaN(float64(*c)) {
			v := float64(*c)
			return &v
		}
	}
	return nil
}
