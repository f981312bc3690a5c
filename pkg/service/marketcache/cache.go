package marketcache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/pjm"
)

// RegHour is one hour of combined regulation data: clearing prices with the
// RegD/RegA mileage ratio merged in at cache time.
type RegHour struct {
	Start        time.Time `json:"start"`
	RMCCP        float64   `json:"rmccp"`
	RMPCP        float64   `json:"rmpcp"`
	MileageRatio float64   `json:"mileage_ratio"`
}

// PriceHour is one hour of a single-price feed (energy LMP or reserve MCP)
type PriceHour struct {
	Start time.Time `json:"start"`
	Price float64   `json:"price"`
}

// MonthAction describes what happened to one month during a window load
type MonthAction string

const (
	MonthLoaded  MonthAction = "loaded"
	MonthFetched MonthAction = "fetched"
	MonthMissing MonthAction = "missing"
	MonthError   MonthAction = "error"
)

// MonthReport is the per-month outcome of a window load
type MonthReport struct {
	Year   int         `json:"year"`
	Month  int         `json:"month"`
	Action MonthAction `json:"action"`
	Rows   int         `json:"rows"`
	Path   string      `json:"path"`
	Error  string      `json:"error,omitempty"`
}

// Cache stores PJM market data as one JSON file per month under its root
// directory, one subdirectory per feed. Months are immutable once written,
// so repeated valuations never re-hit the Data Miner API.
type Cache struct {
	root   string
	client *pjm.Client
}

func New(root string, client *pjm.Client) (*Cache, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create market cache root", goerr.V("root", root))
	}
	return &Cache{root: root, client: client}, nil
}

// HasClient reports whether missing months can be fetched
func (x *Cache) HasClient() bool {
	return x.client != nil
}

func (x *Cache) feedDir(parts ...string) string {
	return filepath.Join(append([]string{x.root}, parts...)...)
}

func monthPath(dir string, y, m int) string {
	return filepath.Join(dir, fmt.Sprintf("%04d_%02d.json", y, m))
}

func readMonth[T any](path string) ([]T, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read cached month", goerr.V("path", path))
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, goerr.Wrap(err, "failed to parse cached month", goerr.V("path", path))
	}
	return rows, nil
}

func writeMonth[T any](dir string, y, m int, rows []T) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create feed directory", goerr.V("dir", dir))
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode month")
	}
	path := monthPath(dir, y, m)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", goerr.Wrap(err, "failed to write cached month", goerr.V("path", path))
	}
	return path, nil
}

// mergeMileage computes the per-hour mileage ratio regd/rega and joins it
// onto the price hours. Zero or missing RegA, and non-finite ratios, default
// to 1.0. When one hour has several market rows the ratios are averaged.
func mergeMileage(prices []pjm.RegPrice, market []pjm.RegMarket) []RegHour {
	type acc struct {
		sum float64
		n   int
	}
	ratios := make(map[time.Time]*acc, len(market))
	for _, row := range market {
		if row.RegAHourly == nil || row.RegDHourly == nil || *row.RegAHourly == 0 {
			continue
		}
		ratio := *row.RegDHourly / *row.RegAHourly
		a, ok := ratios[row.Start]
		if !ok {
			a = &acc{}
			ratios[row.Start] = a
		}
		a.sum += ratio
		a.n++
	}

	hours := make([]RegHour, 0, len(prices))
	for _, p := range prices {
		ratio := 1.0
		if a, ok := ratios[p.Start]; ok && a.n > 0 {
			ratio = a.sum / float64(a.n)
		}
		hours = append(hours, RegHour{
			Start:        p.Start,
			RMCCP:        p.RMCCP,
			RMPCP:        p.RMPCP,
			MileageRatio: ratio,
		})
	}
	return hours
}

// FetchRegulationMonth fetches one month of regulation prices and market
// signals and writes the combined month file. A month with no price rows is
// not cached and returns nil. A failed market fetch degrades to ratio 1.0.
func (x *Cache) FetchRegulationMonth(ctx context.Context, y, m int) ([]RegHour, error) {
	if x.client == nil {
		return nil, goerr.New("market cache has no PJM client configured")
	}

	start, end := MonthBounds(y, m)
	prices, err := x.client.RegZonePrelimBill(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}

	market, err := x.client.RegMarketResults(ctx, start, end)
	if err != nil {
		market = nil
	}

	hours := mergeMileage(prices, market)
	if _, err := writeMonth(x.feedDir("regulation"), y, m, hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// LoadRegulationWindow returns combined regulation hours for [start, end),
// reading cached months and optionally fetching missing ones. Duplicate
// hours are dropped and the result is sorted.
func (x *Cache) LoadRegulationWindow(ctx context.Context, start, end time.Time, fetchMissing bool) ([]RegHour, error) {
	hours, _, err := x.LoadRegulationWindowReport(ctx, start, end, fetchMissing)
	return hours, err
}

// LoadRegulationWindowReport is LoadRegulationWindow plus a per-month report
// of what was loaded, fetched, or missing.
func (x *Cache) LoadRegulationWindowReport(ctx context.Context, start, end time.Time, fetchMissing bool) ([]RegHour, []MonthReport, error) {
	dir := x.feedDir("regulation")

	var all []RegHour
	var reports []MonthReport
	for _, ym := range MonthsInWindow(start, end) {
		path := monthPath(dir, ym.Year, ym.Month)
		report := MonthReport{Year: ym.Year, Month: ym.Month, Path: path}

		rows, err := readMonth[RegHour](path)
		switch {
		case err == nil:
			report.Action = MonthLoaded
		case fetchMissing && x.client != nil:
			rows, err = x.FetchRegulationMonth(ctx, ym.Year, ym.Month)
			if err != nil {
				report.Action = MonthError
				report.Error = err.Error()
			} else if len(rows) == 0 {
				report.Action = MonthMissing
			} else {
				report.Action = MonthFetched
			}
		default:
			report.Action = MonthMissing
		}

		report.Rows = len(rows)
		all = append(all, rows...)
		reports = append(reports, report)
	}

	return dedupeRegHours(all), reports, nil
}

func dedupeRegHours(hours []RegHour) []RegHour {
	seen := make(map[time.Time]struct{}, len(hours))
	out := hours[:0]
	for _, h := range hours {
		if _, ok := seen[h.Start]; ok {
			continue
		}
		seen[h.Start] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func dedupePriceHours(hours []PriceHour) []PriceHour {
	seen := make(map[time.Time]struct{}, len(hours))
	out := hours[:0]
	for _, h := range hours {
		if _, ok := seen[h.Start]; ok {
			continue
		}
		seen[h.Start] = struct{}{}
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FetchEnergyMonth fetches one month of hourly LMPs for a zone (or pnode)
// and caches it under the per-market energy feed.
func (x *Cache) FetchEnergyMonth(ctx context.Context, market types.Market, zone string, pnodeID int64, y, m int) ([]PriceHour, error) {
	if x.client == nil {
		return nil, goerr.New("market cache has no PJM client configured")
	}

	start, end := MonthBounds(y, m)
	lmps, err := x.client.HourlyLMPs(ctx, market, zone, pnodeID, start, end)
	if err != nil {
		return nil, err
	}
	if len(lmps) == 0 {
		return nil, nil
	}

	hours := make([]PriceHour, 0, len(lmps))
	for _, lmp := range lmps {
		hours = append(hours, PriceHour{Start: lmp.Start, Price: lmp.TotalLMP})
	}
	if _, err := writeMonth(x.energyDir(market), y, m, hours); err != nil {
		return nil, err
	}
	return hours, nil
}

func (x *Cache) energyDir(market types.Market) string {
	return x.feedDir("energy_" + marketSuffix(market))
}

func (x *Cache) reservesDir(market types.Market, product string) string {
	return x.feedDir("reserves_"+marketSuffix(market), product)
}

func marketSuffix(market types.Market) string {
	if market == types.MarketRealTime {
		return "rt"
	}
	return "da"
}

// LoadEnergyWindow returns hourly LMPs for [start, end) from the cache,
// optionally fetching missing months.
func (x *Cache) LoadEnergyWindow(ctx context.Context, market types.Market, zone string, pnodeID int64, start, end time.Time, fetchMissing bool) ([]PriceHour, error) {
	dir := x.energyDir(market)

	var all []PriceHour
	for _, ym := range MonthsInWindow(start, end) {
		rows, err := readMonth[PriceHour](monthPath(dir, ym.Year, ym.Month))
		if err != nil && fetchMissing && x.client != nil {
			rows, err = x.FetchEnergyMonth(ctx, market, zone, pnodeID, ym.Year, ym.Month)
			if err != nil {
				return nil, err
			}
		}
		all = append(all, rows...)
	}
	return dedupePriceHours(all), nil
}

// FetchReservesMonth fetches one month of reserve clearing prices for one
// ancillary product and caches it.
func (x *Cache) FetchReservesMonth(ctx context.Context, market types.Market, area, product string, y, m int) ([]PriceHour, error) {
	if x.client == nil {
		return nil, goerr.New("market cache has no PJM client configured")
	}

	start, end := MonthBounds(y, m)
	prices, err := x.client.ReserveMarketResults(ctx, market, area, product, start, end)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, nil
	}

	hours := make([]PriceHour, 0, len(prices))
	for _, p := range prices {
		hours = append(hours, PriceHour{Start: p.Start, Price: p.ClearingPrice})
	}
	if _, err := writeMonth(x.reservesDir(market, product), y, m, hours); err != nil {
		return nil, err
	}
	return hours, nil
}

// LoadReservesWindow returns hourly reserve clearing prices for [start, end)
// from the cache, optionally fetching missing months.
func (x *Cache) LoadReservesWindow(ctx context.Context, market types.Market, area, product string, start, end time.Time, fetchMissing bool) ([]PriceHour, error) {
	dir := x.reservesDir(market, product)

	var all []PriceHour
	for _, ym := range MonthsInWindow(start, end) {
		rows, err := readMonth[PriceHour](monthPath(dir, ym.Year, ym.Month))
		if err != nil && fetchMissing && x.client != nil {
			rows, err = x.FetchReservesMonth(ctx, market, area, product, ym.Year, ym.Month)
			if err != nil {
				return nil, err
			}
		}
		all = append(all, rows...)
	}
	return dedupePriceHours(all), nil
}
