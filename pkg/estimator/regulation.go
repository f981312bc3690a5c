package estimator

import (
	"sort"
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
)

// topHourCount bounds the per-hour detail returned with a regulation estimate
const topHourCount = 50

// BESSParams describes the battery offered into a market program
type BESSParams struct {
	NameplateMW     float64 `json:"nameplate_mw"`
	DurationHours   float64 `json:"duration_hours"`
	AnnualCycles    int     `json:"annual_cycles"`
	ThroughputRatio float64 `json:"throughput_ratio"`
	RoundTripEff    float64 `json:"round_trip_eff"`
}

// RegulationParams are the inputs to the frequency regulation estimate
type RegulationParams struct {
	BESS             BESSParams          `json:"bess"`
	PerformanceScore float64             `json:"performance_score"`
	Ranking          types.RankingMetric `json:"ranking"`
}

// RegulationHour is one hour of the estimate detail
type RegulationHour struct {
	Start        time.Time `json:"start"`
	HourlyUSD    float64   `json:"hourly_usd"`
	RMCCP        float64   `json:"rmccp"`
	RMPCP        float64   `json:"rmpcp"`
	MileageRatio float64   `json:"mileage_ratio"`
}

// RegulationEstimate is the regulation revenue proxy over a price window
type RegulationEstimate struct {
	GrossUSD float64          `json:"gross_usd"`
	Hours    int              `json:"hours"`
	TopHours []RegulationHour `json:"top_hours"`
}

// EstimateRegulation computes the regulation revenue proxy: per hour,
// performance × compensation × MW, where compensation depends on the ranking
// metric (full: RMCCP + RMPCP × mileage; or either component alone). Gross
// is the sum over the window; the 50 most valuable hours are returned as
// detail.
func EstimateRegulation(hours []marketcache.RegHour, params RegulationParams) RegulationEstimate {
	ranking := params.Ranking.Normalize()
	mw := params.BESS.NameplateMW
	perf := params.PerformanceScore

	detail := make([]RegulationHour, 0, len(hours))
	var gross float64
	for _, h := range hours {
		var comp float64
		switch ranking {
		case types.RankingCapability:
			comp = h.RMCCP
		case types.RankingPerformance:
			comp = h.RMPCP * h.MileageRatio
		default:
			comp = h.RMCCP + h.RMPCP*h.MileageRatio
		}

		usd := perf * comp * mw
		gross += usd
		detail = append(detail, RegulationHour{
			Start:        h.Start,
			HourlyUSD:    usd,
			RMCCP:        h.RMCCP,
			RMPCP:        h.RMPCP,
			MileageRatio: h.MileageRatio,
		})
	}

	sort.Slice(detail, func(i, j int) bool { return detail[i].HourlyUSD > detail[j].HourlyUSD })
	if len(detail) > topHourCount {
		detail = detail[:topHourCount]
	}

	return RegulationEstimate{
		GrossUSD: gross,
		Hours:    len(hours),
		TopHours: detail,
	}
}
