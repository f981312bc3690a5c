package estimator

import "github.com/gridmetrics-lab/derrev/pkg/domain/model"

// KWRates are $/kW-year rates inferred from billing history. Nil means the
// rate could not be inferred (no charges entered, or a zero tag).
type KWRates struct {
	CapacityRatePerKWYear     *float64 `json:"capacity_rate_per_kw_year"`
	TransmissionRatePerKWYear *float64 `json:"transmission_rate_per_kw_year"`
}

// InferKWRates derives effective capacity and transmission rates from the
// project's monthly billing rows: annual capacity charges over the PLC tag,
// and annual transmission charges over the NSPL tag.
func InferKWRates(rows []model.BillingMonth, currentPLCKW, currentNSPLKW float64) KWRates {
	var totalCap, totalTx float64
	var countCap, countTx int

	for _, row := range rows {
		if row.CapacityUSD != nil {
			totalCap += *row.CapacityUSD
			countCap++
		}
		if row.TransmissionUSD != nil {
			totalTx += *row.TransmissionUSD
			countTx++
		}
	}

	var rates KWRates
	if currentPLCKW > 0 && countCap > 0 {
		v := totalCap / currentPLCKW
		rates.CapacityRatePerKWYear = &v
	}
	if currentNSPLKW > 0 && countTx > 0 {
		v := totalTx / currentNSPLKW
		rates.TransmissionRatePerKWYear = &v
	}
	return rates
}
