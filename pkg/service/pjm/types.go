package pjm

import (
	"bytes"
	"math"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// RegPrice is one hour of regulation clearing prices (PJM-wide)
type RegPrice struct {
	Start time.Time
	RMCCP float64
	RMPCP float64
}

// RegMarket is one hour of regulation market signal data, used for the
// RegD/RegA mileage ratio. Fields are pointers because Data Miner schemas
// vary by vintage and either signal may be absent.
type RegMarket struct {
	Start      time.Time
	RegAHourly *float64
	RegDHourly *float64
	MarketArea string
	Product    string
}

// LMP is one hour of locational marginal prices for a zone or pnode
type LMP struct {
	Start    time.Time
	TotalLMP float64
}

// ReservePrice is one hour of reserve market clearing prices
type ReservePrice struct {
	Start         time.Time
	ClearingPrice float64
	Product       string
}

// Data Miner serves numbers as JSON numbers or quoted strings depending on
// the dataset vintage. Unparseable cells coerce to NaN rather than failing
// the whole page.
type flexFloat float64

func (x *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		*x = flexFloat(math.NaN())
		return nil
	}
	*x = flexFloat(v)
	return nil
}

// eptLayouts are the timestamp formats observed across Data Miner datasets
var eptLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"1/2/2006 3:04:05 PM",
}

func parseEPT(s string) (time.Time, error) {
	for _, layout := range eptLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, goerr.New("unrecognized EPT timestamp", goerr.V("value", s))
}

func datasetForLMP(market types.Market) string {
	if market == types.MarketRealTime {
		return "rt_hrl_lmps"
	}
	return "da_hrl_lmps"
}

func datasetForReserves(market types.Market) string {
	if market == types.MarketRealTime {
		return "reserve_market_results"
	}
	return "da_reserve_market_results"
}
