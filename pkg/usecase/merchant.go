package usecase

import (
	"context"
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/estimator"
	"github.com/gridmetrics-lab/derrev/pkg/service/marketcache"
)

// defaultPerformanceScore is the assumed regulation performance for a BESS
const defaultPerformanceScore = 0.95

// resolveWindow turns a trailing-months request into a [start, end) month
// window ending at the last full month before asof.
func resolveWindow(months int, asof time.Time) (time.Time, time.Time) {
	if asof.IsZero() {
		asof = time.Now().UTC()
	}
	if months <= 0 {
		months = 12
	}
	end := time.Date(asof.Year(), asof.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(0, -months, 0), end
}

func bessParams(project *model.Project) estimator.BESSParams {
	return estimator.BESSParams{
		NameplateMW:   project.BESS.TotalPowerKW() / 1000.0,
		DurationHours: project.BESS.DurationHours(),
	}
}

// RegulationRequest parameterizes the frequency regulation screen
type RegulationRequest struct {
	Months           int                 `json:"months,omitempty"`
	AsOf             time.Time           `json:"as_of,omitempty"`
	PerformanceScore float64             `json:"performance_score,omitempty"`
	Ranking          types.RankingMetric `json:"ranking,omitempty"`
	FetchMissing     bool                `json:"fetch_missing,omitempty"`
}

// RegulationResult is the screen output plus the cache actions per month
type RegulationResult struct {
	Estimate estimator.RegulationEstimate `json:"estimate"`
	Months   []marketcache.MonthReport    `json:"months"`
	Start    time.Time                    `json:"window_start"`
	End      time.Time                    `json:"window_end"`
}

// EstimateRegulation screens regulation revenue for a project over the
// trailing window.
func (uc *UseCases) EstimateRegulation(ctx context.Context, id types.ProjectID, req RegulationRequest) (*RegulationResult, error) {
	if uc.cache == nil {
		return nil, ErrMarketCacheUnavailable
	}
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end := resolveWindow(req.Months, req.AsOf)
	hours, reports, err := uc.cache.LoadRegulationWindowReport(ctx, start, end, req.FetchMissing)
	if err != nil {
		return nil, err
	}

	perf := req.PerformanceScore
	if perf == 0 {
		perf = defaultPerformanceScore
	}

	estimate := estimator.EstimateRegulation(hours, estimator.RegulationParams{
		BESS:             bessParams(project),
		PerformanceScore: perf,
		Ranking:          req.Ranking,
	})
	return &RegulationResult{Estimate: estimate, Months: reports, Start: start, End: end}, nil
}

// EnergyRequest parameterizes the energy arbitrage screen
type EnergyRequest struct {
	Months       int          `json:"months,omitempty"`
	AsOf         time.Time    `json:"as_of,omitempty"`
	Market       types.Market `json:"market,omitempty"`
	Zone         string       `json:"zone,omitempty"`
	PnodeID      int64        `json:"pnode_id,omitempty"`
	RoundTripEff float64      `json:"round_trip_eff,omitempty"`
	FetchMissing bool         `json:"fetch_missing,omitempty"`
}

// EnergyResult is the arbitrage screen output
type EnergyResult struct {
	Estimate estimator.EnergyEstimate `json:"estimate"`
	Start    time.Time                `json:"window_start"`
	End      time.Time                `json:"window_end"`
}

// EstimateEnergyArbitrage screens one-cycle-per-day arbitrage revenue
func (uc *UseCases) EstimateEnergyArbitrage(ctx context.Context, id types.ProjectID, req EnergyRequest) (*EnergyResult, error) {
	if uc.cache == nil {
		return nil, ErrMarketCacheUnavailable
	}
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	market := req.Market.Normalize()
	start, end := resolveWindow(req.Months, req.AsOf)
	hours, err := uc.cache.LoadEnergyWindow(ctx, market, req.Zone, req.PnodeID, start, end, req.FetchMissing)
	if err != nil {
		return nil, err
	}

	estimate := estimator.EstimateEnergyArbitrage(hours, estimator.EnergyArbParams{
		Market:       market,
		PowerKW:      project.BESS.TotalPowerKW(),
		EnergyKWH:    project.BESS.TotalEnergyKWH(),
		DurationHr:   project.BESS.DurationHours(),
		RoundTripEff: req.RoundTripEff,
	})
	return &EnergyResult{Estimate: estimate, Start: start, End: end}, nil
}

// ReservesRequest parameterizes the operating reserves screen
type ReservesRequest struct {
	Months       int          `json:"months,omitempty"`
	AsOf         time.Time    `json:"as_of,omitempty"`
	Market       types.Market `json:"market,omitempty"`
	Area         string       `json:"area,omitempty"`
	Products     []string     `json:"products,omitempty"`
	OfferedMW    float64      `json:"offered_mw,omitempty"`
	HoursPerYear int          `json:"hours_per_year,omitempty"`
	FetchMissing bool         `json:"fetch_missing,omitempty"`
}

// ReserveProductResult is the screen output for one ancillary product
type ReserveProductResult struct {
	Product  string                    `json:"product"`
	Estimate estimator.ReserveEstimate `json:"estimate"`
}

// ReservesResult is the screen output across products
type ReservesResult struct {
	Products []ReserveProductResult `json:"products"`
	Start    time.Time              `json:"window_start"`
	End      time.Time              `json:"window_end"`
}

// EstimateReserves screens reserve capacity revenue per ancillary product.
// OfferedMW defaults to the project's BESS nameplate; hours per year to a
// full year of commitment.
func (uc *UseCases) EstimateReserves(ctx context.Context, id types.ProjectID, req ReservesRequest) (*ReservesResult, error) {
	if uc.cache == nil {
		return nil, ErrMarketCacheUnavailable
	}
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	market := req.Market.Normalize()
	products := req.Products
	if len(products) == 0 {
		products = marketcache.DefaultReserveProducts
	}
	offeredMW := req.OfferedMW
	if offeredMW == 0 {
		offeredMW = project.BESS.TotalPowerKW() / 1000.0
	}
	hoursPerYear := req.HoursPerYear
	if hoursPerYear == 0 {
		hoursPerYear = 8760
	}

	start, end := resolveWindow(req.Months, req.AsOf)
	result := &ReservesResult{Start: start, End: end}
	for _, product := range products {
		hours, err := uc.cache.LoadReservesWindow(ctx, market, req.Area, product, start, end, req.FetchMissing)
		if err != nil {
			return nil, err
		}
		result.Products = append(result.Products, ReserveProductResult{
			Product: product,
			Estimate: estimator.EstimateReserves(hours, estimator.ReserveParams{
				Market:           market,
				AncillaryService: product,
				OfferedMW:        offeredMW,
				HoursPerYear:     hoursPerYear,
			}),
		})
	}
	return result, nil
}

// PLCRequest parameterizes the capacity/transmission tag savings screen.
// Zero rates are inferred from the project's billing months; zero coverage
// fractions default to full coverage.
type PLCRequest struct {
	CurrentPLCKW              float64 `json:"current_plc_kw"`
	CurrentNSPLKW             float64 `json:"current_nspl_kw"`
	CapacityRatePerKWYear     float64 `json:"capacity_rate_per_kw_year,omitempty"`
	TransmissionRatePerKWYear float64 `json:"transmission_rate_per_kw_year,omitempty"`
	AvgReductionKW            float64 `json:"avg_reduction_kw,omitempty"`
	CoverageCapacity          float64 `json:"coverage_fraction_capacity,omitempty"`
	CoverageTransmission      float64 `json:"coverage_fraction_transmission,omitempty"`
}

// PLCResult is the savings screen output plus the rates actually used
type PLCResult struct {
	Savings estimator.PLCSavings `json:"savings"`
	Rates   estimator.KWRates    `json:"rates"`
}

// EstimatePLCSavings screens PLC/NSPL tag savings for a project
func (uc *UseCases) EstimatePLCSavings(ctx context.Context, id types.ProjectID, req PLCRequest) (*PLCResult, error) {
	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rates := estimator.InferKWRates(project.Tariff.MonthlyBilling, req.CurrentPLCKW, req.CurrentNSPLKW)
	capacityRate := req.CapacityRatePerKWYear
	if capacityRate == 0 && rates.CapacityRatePerKWYear != nil {
		capacityRate = *rates.CapacityRatePerKWYear
	}
	transmissionRate := req.TransmissionRatePerKWYear
	if transmissionRate == 0 && rates.TransmissionRatePerKWYear != nil {
		transmissionRate = *rates.TransmissionRatePerKWYear
	}

	reduction := req.AvgReductionKW
	if reduction == 0 {
		reduction = project.BESS.TotalPowerKW()
	}
	coverageCap := req.CoverageCapacity
	if coverageCap == 0 {
		coverageCap = 1.0
	}
	coverageTx := req.CoverageTransmission
	if coverageTx == 0 {
		coverageTx = 1.0
	}

	savings := estimator.EstimatePLCNSPLSavings(estimator.PLCParams{
		CurrentPLCKW:              req.CurrentPLCKW,
		CurrentNSPLKW:             req.CurrentNSPLKW,
		CapacityRatePerKWYear:     capacityRate,
		TransmissionRatePerKWYear: transmissionRate,
		AvgReductionKW:            reduction,
		CoverageCapacity:          coverageCap,
		CoverageTransmission:      coverageTx,
	})
	return &PLCResult{Savings: savings, Rates: rates}, nil
}
