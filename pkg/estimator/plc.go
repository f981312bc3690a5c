package estimator

import "math"

// PLCParams are the inputs to the PLC/NSPL savings screen. Coverage
// fractions express how much of the average reduction lands on the
// coincident peak hours that set each tag.
type PLCParams struct {
	CurrentPLCKW              float64 `json:"current_plc_kw"`
	CurrentNSPLKW             float64 `json:"current_nspl_kw"`
	CapacityRatePerKWYear     float64 `json:"capacity_rate_per_kw_year"`
	TransmissionRatePerKWYear float64 `json:"transmission_rate_per_kw_year"`
	AvgReductionKW            float64 `json:"avg_reduction_kw"`
	CoverageCapacity          float64 `json:"coverage_fraction_capacity"`
	CoverageTransmission      float64 `json:"coverage_fraction_transmission"`
}

// PLCSavings is the PLC/NSPL savings screen result
type PLCSavings struct {
	PLCReductionKW           float64 `json:"plc_reduction_kw"`
	NewPLCKW                 float64 `json:"new_plc_kw"`
	CapacitySavingsUSDYr     float64 `json:"capacity_savings_usd_yr"`
	NSPLReductionKW          float64 `json:"nspl_reduction_kw"`
	NewNSPLKW                float64 `json:"new_nspl_kw"`
	TransmissionSavingsUSDYr float64 `json:"transmission_savings_usd_yr"`
	TotalSavingsUSDYr        float64 `json:"total_savings_usd_yr"`
}

// EstimatePLCNSPLSavings screens capacity and transmission tag savings.
// Reductions are clamped to [0, current tag] so a large battery cannot
// produce a negative tag.
func EstimatePLCNSPLSavings(params PLCParams) PLCSavings {
	plcRed := math.Max(math.Min(params.AvgReductionKW*params.CoverageCapacity, params.CurrentPLCKW), 0)
	nsplRed := math.Max(math.Min(params.AvgReductionKW*params.CoverageTransmission, params.CurrentNSPLKW), 0)

	capSave := plcRed * params.CapacityRatePerKWYear
	txSave := nsplRed * params.TransmissionRatePerKWYear

	return PLCSavings{
		PLCReductionKW:           plcRed,
		NewPLCKW:                 math.Max(params.CurrentPLCKW-plcRed, 0),
		CapacitySavingsUSDYr:     capSave,
		NSPLReductionKW:          nsplRed,
		NewNSPLKW:                math.Max(params.CurrentNSPLKW-nsplRed, 0),
		TransmissionSavingsUSDYr: txSave,
		TotalSavingsUSDYr:        capSave + txSave,
	}
}
