package estimator

import (
	"sort"
	"strings"

	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

// sectorMap folds free-form customer types onto EIA-861 customer classes
var sectorMap = map[string]string{
	"residential":   "Residential",
	"commercial":    "Commercial",
	"industrial":    "Industrial",
	"gov":           "Commercial",
	"government":    "Commercial",
	"institutional": "Commercial",
	"ag":            "Industrial",
	"agricultural":  "Industrial",
	"muni":          "Commercial",
	"municipal":     "Commercial",
	"other":         "Commercial",
}

// SectorFromCustomerType maps a project customer type onto an EIA-861
// customer class, or "" when nothing matches. "C&I" style composites match
// on their first segment.
func SectorFromCustomerType(customerType string) string {
	key := strings.ToLower(strings.TrimSpace(customerType))
	if key == "" {
		return ""
	}
	if sector, ok := sectorMap[key]; ok {
		return sector
	}
	if head, _, found := strings.Cut(key, "/"); found {
		if sector, ok := sectorMap[head]; ok {
			return sector
		}
	}
	return ""
}

// DRFilter narrows demand response rows to one entity. Preference order:
// utility EIA ID, then balancing authority, then state. Sector further
// filters by customer class when set.
type DRFilter struct {
	UtilityIDEIA int64
	BAIDEIA      int64
	State        string
	Sector       string
}

// FilterDemandResponse applies the filter and returns rows sorted by report
// date ascending.
func FilterDemandResponse(rows []pudl.DemandResponseRow, filter DRFilter) []pudl.DemandResponseRow {
	var out []pudl.DemandResponseRow
	for _, row := range rows {
		switch {
		case filter.UtilityIDEIA != 0:
			if row.UtilityIDEIA != filter.UtilityIDEIA {
				continue
			}
		case filter.BAIDEIA != 0:
			if row.BalancingAuthorityIDEIA != filter.BAIDEIA {
				continue
			}
		case filter.State != "":
			if !strings.EqualFold(row.State, filter.State) {
				continue
			}
		}

		if filter.Sector != "" &&
			!strings.Contains(strings.ToLower(row.Class()), strings.ToLower(filter.Sector)) {
			continue
		}
		out = append(out, row)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ReportDate.Before(out[j].ReportDate)
	})
	return out
}

// DREstimate is the utility demand response benchmark derived from EIA-861
type DREstimate struct {
	Year              int      `json:"year,omitempty"`
	ExpendituresUSD   *float64 `json:"expenditures_usd,omitempty"`
	ActualReductionMW *float64 `json:"actual_reduction_mw,omitempty"`
	USDPerKWYear      *float64 `json:"usd_per_kw_year,omitempty"`
}

// LatestDREstimate derives a $/kW-year benchmark from the latest filtered
// row: program expenditures over actual peak reduction.
func LatestDREstimate(rows []pudl.DemandResponseRow) DREstimate {
	if len(rows) == 0 {
		return DREstimate{}
	}
	latest := rows[len(rows)-1]

	est := DREstimate{
		Year:              latest.ReportDate.Year(),
		ExpendituresUSD:   latest.ExpendituresUSD,
		ActualReductionMW: latest.ActualPeakReductionMW,
	}
	if est.ExpendituresUSD != nil && est.ActualReductionMW != nil && *est.ActualReductionMW > 0 {
		v := *est.ExpendituresUSD / (*est.ActualReductionMW * 1000.0)
		est.USDPerKWYear = &v
	}
	return est
}
