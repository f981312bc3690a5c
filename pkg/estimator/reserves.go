package estimator

import (
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
)

// ReserveParams are the inputs to the reserve revenue screen
type ReserveParams struct {
	Market           types.Market `json:"market"`
	AncillaryService string       `json:"ancillary_service"`
	OfferedMW        float64      `json:"offered_mw"`
	HoursPerYear     int          `json:"hours_per_year"`
}

// ReserveEstimate is the reserve revenue screen over a price window
type ReserveEstimate struct {
	AvgMCPUSD float64 `json:"avg_mcp_usd"`
	GrossUSD  float64 `json:"gross_usd"`
	Hours     int     `json:"hours"`
}

// EstimateReserves screens reserve capacity revenue as the average clearing
// price over the window times offered MW and committed hours per year.
func EstimateReserves(hours []marketcache.PriceHour, params ReserveParams) ReserveEstimate {
	if len(hours) == 0 {
		return ReserveEstimate{}
	}

	var total float64
	for _, h := range hours {
		total += h.Price
	}
	avg := total / float64(len(hours))

	return ReserveEstimate{
		AvgMCPUSD: avg,
		GrossUSD:  avg * params.OfferedMW * float64(params.HoursPerYear),
		Hours:     len(hours),
	}
}
