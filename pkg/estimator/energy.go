package estimator

import (
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
)

// EnergyArbParams are the inputs to the energy arbitrage estimate
type EnergyArbParams struct {
	Market       types.Market `json:"market"`
	PowerKW      float64      `json:"power_kw"`
	EnergyKWH    float64      `json:"energy_kwh"`
	DurationHr   float64      `json:"duration_hr"`
	RoundTripEff float64      `json:"round_trip_eff"`
}

// EnergyEstimate is the energy arbitrage screen over a price window
type EnergyEstimate struct {
	GrossUSD     float64 `json:"gross_usd"`
	AvgSpreadUSD float64 `json:"avg_spread_usd"`
	Days         int     `json:"days"`
}

// dailyBestSpread finds max(price[j] - price[i]) with j > i in one pass,
// the one-cycle buy-low sell-high spread for the day.
func dailyBestSpread(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	minSoFar := prices[0]
	best := 0.0
	for _, p := range prices[1:] {
		if spread := p - minSoFar; spread > best {
			best = spread
		}
		if p < minSoFar {
			minSoFar = p
		}
	}
	return best
}

// EstimateEnergyArbitrage screens one-cycle-per-day arbitrage value: the
// average daily best spread, derated by round-trip efficiency, times power
// and 365 cycles per year.
func EstimateEnergyArbitrage(hours []marketcache.PriceHour, params EnergyArbParams) EnergyEstimate {
	if len(hours) == 0 {
		return EnergyEstimate{}
	}

	// hours arrive sorted from the cache; split on calendar day
	var days [][]float64
	var cur []float64
	curDay := hours[0].Start.Truncate(24 * time.Hour)
	for _, h := range hours {
		day := h.Start.Truncate(24 * time.Hour)
		if !day.Equal(curDay) {
			days = append(days, cur)
			cur = nil
			curDay = day
		}
		cur = append(cur, h.Price)
	}
	days = append(days, cur)

	var total float64
	for _, day := range days {
		total += dailyBestSpread(day)
	}
	avgSpread := total / float64(len(days))

	rte := params.RoundTripEff
	if rte == 0 {
		rte = 0.9
	}
	powerMW := params.PowerKW / 1000.0
	gross := avgSpread * rte * powerMW * 365.0

	return EnergyEstimate{
		GrossUSD:     gross,
		AvgSpreadUSD: avgSpread,
		Days:         len(days),
	}
}
