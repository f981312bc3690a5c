package types

import "github.com/m-mizutani/goerr/v2"

// Market distinguishes day-ahead and real-time market runs
type Market string

const (
	MarketDayAhead Market = "DA"
	MarketRealTime Market = "RT"
)

// AllMarkets returns all valid markets
func AllMarkets() []Market {
	return []Market{MarketDayAhead, MarketRealTime}
}

// IsValid checks if the market is valid
func (m Market) IsValid() bool {
	switch m {
	case MarketDayAhead, MarketRealTime:
		return true
	default:
		return false
	}
}

// String returns the string representation of the market
func (m Market) String() string {
	return string(m)
}

// Normalize returns the market, treating empty as MarketDayAhead
func (m Market) Normalize() Market {
	if m == "" {
		return MarketDayAhead
	}
	return m
}

// ParseMarket parses a string into a Market
func ParseMarket(s string) (Market, error) {
	m := Market(s)
	if !m.IsValid() {
		return "", goerr.New("invalid market", goerr.V("market", s))
	}
	return m, nil
}

// RankingMetric selects which regulation price component ranks and credits hours
type RankingMetric string

const (
	// RankingFull credits capability plus mileage-weighted performance
	RankingFull RankingMetric = "full"
	// RankingCapability credits RMCCP only
	RankingCapability RankingMetric = "rmccp"
	// RankingPerformance credits mileage-weighted RMPCP only
	RankingPerformance RankingMetric = "rmpcp"
)

// IsValid checks if the ranking metric is valid
func (r RankingMetric) IsValid() bool {
	switch r {
	case RankingFull, RankingCapability, RankingPerformance:
		return true
	default:
		return false
	}
}

// String returns the string representation of the ranking metric
func (r RankingMetric) String() string {
	return string(r)
}

// Normalize returns the metric, treating empty as RankingFull
func (r RankingMetric) Normalize() RankingMetric {
	if r == "" {
		return RankingFull
	}
	return r
}
