package usecase_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	dsirecat "github.com/gridmetrics-lab/derrev/pkg/catalog/dsire"
	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/repository/memory"
	"github.com/gridmetrics-lab/derrev/pkg/service/dsire"
	"github.com/gridmetrics-lab/derrev/pkg/usecase"
	"github.com/gridmetrics-lab/derrev/pkg/valuation"
)

func f(v float64) *float64 { return &v }

func testProject(name string) *model.Project {
	return &model.Project{
		Identity: model.Identity{
			Name:         name,
			CustomerType: "C&I",
			SiteAddress:  "200 Canal St, Chicago, IL",
		},
		Load: model.LoadMeta{
			PerMeter:        true,
			MeterIDs:        []string{"MTR-1", "MTR-2"},
			IntervalMinutes: 15,
			Start:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:             time.Date(2024, 12, 31, 23, 45, 0, 0, time.UTC),
		},
		BESS: model.BESSInputs{
			Mode: types.AllocationAggregate,
			Rows: []model.BESSRow{{MeterID: "ALL", PowerKW: 200, EnergyKWH: 800}},
		},
	}
}

func TestProjectLifecycle(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	created := gt.R1(uc.CreateProject(ctx, testProject("Canal St Storage"))).NoError(t)
	gt.String(t, string(created.ID)).NotEqual("")

	got := gt.R1(uc.GetProject(ctx, created.ID)).NoError(t)
	gt.Equal(t, got.Identity.Name, "Canal St Storage")

	bySlug := gt.R1(uc.GetProjectBySlug(ctx, "canal_st_storage")).NoError(t)
	gt.Equal(t, bySlug.ID, created.ID)

	summaries := gt.R1(uc.ListProjects(ctx)).NoError(t)
	gt.Array(t, summaries).Length(1)

	got.Identity.Notes = "updated"
	updated := gt.R1(uc.UpdateProject(ctx, got)).NoError(t)
	gt.Equal(t, updated.Identity.Notes, "updated")

	gt.NoError(t, uc.DeleteProject(ctx, created.ID))
	_, err := uc.GetProject(ctx, created.ID)
	gt.Error(t, err)
}

func TestUpdateProjectRequiresID(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	p := testProject("No ID Yet")
	_, err := uc.UpdateProject(ctx, p)
	gt.Error(t, err)
}

func TestPutLoadRejectsColumnMismatch(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	created := gt.R1(uc.CreateProject(ctx, testProject("Two Meters"))).NoError(t)

	series := model.NewLoadSeries(true, []string{"MTR-1"}) // project has two meters
	err := uc.PutLoad(ctx, created.ID, series)
	gt.Error(t, err)

	ok := model.NewLoadSeries(true, []string{"MTR-1", "MTR-2"})
	gt.NoError(t, uc.PutLoad(ctx, created.ID, ok))

	got := gt.R1(uc.GetLoad(ctx, created.ID)).NoError(t)
	gt.Array(t, got.Columns).Length(2)
}

func TestUnavailableServices(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())
	created := gt.R1(uc.CreateProject(ctx, testProject("Bare Server"))).NoError(t)

	_, err := uc.InferLocation(ctx, created.ID, 0)
	gt.True(t, errors.Is(err, usecase.ErrLocatorUnavailable))

	_, err = uc.EstimateRegulation(ctx, created.ID, usecase.RegulationRequest{})
	gt.True(t, errors.Is(err, usecase.ErrMarketCacheUnavailable))

	_, err = uc.Programs(ctx, created.ID, usecase.ProgramFilter{})
	gt.True(t, errors.Is(err, usecase.ErrCatalogUnavailable))

	_, err = uc.DemandResponse(ctx, created.ID)
	gt.True(t, errors.Is(err, usecase.ErrPUDLUnavailable))
}

func TestProgramsFiltering(t *testing.T) {
	ctx := context.Background()

	catalog := gt.R1(dsirecat.Open(filepath.Join(t.TempDir(), "dsire.db"))).NoError(t)
	defer func() { _ = catalog.Close() }()

	records := []dsire.Record{
		{
			"ProgramId": "101", "Name": "IL Storage Rebate", "State": "Illinois",
			"Type": "Rebate Program", "Category": "Financial Incentive",
			"Technologies": "Energy Storage", "LastUpdated": "06/01/2024",
		},
		{
			"ProgramId": "102", "Name": "IL Solar Grant", "State": "Illinois",
			"Type": "Grant Program", "Category": "Financial Incentive",
			"Technologies": "Solar Photovoltaics", "LastUpdated": "03/15/2012",
		},
		{
			"ProgramId": "103", "Name": "TX Wind Credit", "State": "Texas",
			"Type": "Tax Credit", "Category": "Financial Incentive",
		},
	}
	gt.R1(catalog.UpsertRecords(ctx, records, "test")).NoError(t)

	uc := usecase.New(memory.New(), usecase.WithCatalog(catalog))
	created := gt.R1(uc.CreateProject(ctx, testProject("Chicago Site"))).NoError(t)

	t.Run("state from site address", func(t *testing.T) {
		programs := gt.R1(uc.Programs(ctx, created.ID, usecase.ProgramFilter{})).NoError(t)
		gt.Array(t, programs).Length(2)
	})

	t.Run("technology filter", func(t *testing.T) {
		programs := gt.R1(uc.Programs(ctx, created.ID, usecase.ProgramFilter{
			Technology: "storage",
		})).NoError(t)
		gt.Array(t, programs).Length(1)
		gt.Equal(t, programs[0].Name, "IL Storage Rebate")
	})

	t.Run("updated-since filter drops stale programs", func(t *testing.T) {
		programs := gt.R1(uc.Programs(ctx, created.ID, usecase.ProgramFilter{
			UpdatedSinceYears: 5,
		})).NoError(t)
		gt.Array(t, programs).Length(1)
		gt.Equal(t, programs[0].ProgramID, "101")
	})

	t.Run("explicit state override", func(t *testing.T) {
		programs := gt.R1(uc.Programs(ctx, created.ID, usecase.ProgramFilter{
			State: "TX",
		})).NoError(t)
		gt.Array(t, programs).Length(1)
		gt.Equal(t, programs[0].Name, "TX Wind Credit")
	})
}

func TestEstimatePLCSavingsInfersRates(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())

	p := testProject("Tagged Site")
	for m := 1; m <= 12; m++ {
		p.Tariff.MonthlyBilling = append(p.Tariff.MonthlyBilling, model.BillingMonth{
			Month:           time.Date(2024, time.Month(m), 1, 0, 0, 0, 0, time.UTC).Format("2006-01"),
			CapacityUSD:     f(1000),
			TransmissionUSD: f(500),
		})
	}
	created := gt.R1(uc.CreateProject(ctx, p)).NoError(t)

	result := gt.R1(uc.EstimatePLCSavings(ctx, created.ID, usecase.PLCRequest{
		CurrentPLCKW:  500,
		CurrentNSPLKW: 400,
	})).NoError(t)

	// 12000/500 and 6000/400 $/kW-yr; 200 kW BESS reduction at full coverage
	gt.Value(t, result.Rates.CapacityRatePerKWYear).NotNil()
	gt.Equal(t, *result.Rates.CapacityRatePerKWYear, 24.0)
	gt.Equal(t, *result.Rates.TransmissionRatePerKWYear, 15.0)
	gt.Equal(t, result.Savings.CapacitySavingsUSDYr, 4800.0)
	gt.Equal(t, result.Savings.TransmissionSavingsUSDYr, 3000.0)
	gt.Equal(t, result.Savings.TotalSavingsUSDYr, 7800.0)
}

func TestUnderwriteWithExplicitStreams(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())
	created := gt.R1(uc.CreateProject(ctx, testProject("Underwritten"))).NoError(t)

	streams := []model.RevenueStream{
		{Label: "Regulation", Class: types.RevenueMerchant, AnnualGrossUSD: 200000},
		{Label: "PLC savings", Class: types.RevenueSavings, AnnualGrossUSD: 50000},
	}

	target := 1.25
	result := gt.R1(uc.Underwrite(ctx, created.ID, usecase.UnderwritingRequest{
		Streams: streams,
		Policy:  &usecase.PolicyOverrides{TargetDSCR: &target},
	})).NoError(t)

	// merchant 50% + savings 15% haircuts under the default policy
	gt.Equal(t, result.AnnualBankableUSD, 142500.0)
	gt.Equal(t, result.TargetDSCR, 1.25)
	gt.True(t, result.MaxSupportableDebt > 0)
	gt.Array(t, result.Haircuts).Length(2)

	year1 := result.CashFlows[0]
	if math.Abs(year1.DSCR-1.25) > 1e-9 {
		t.Errorf("year 1 DSCR = %v, want target 1.25", year1.DSCR)
	}
}

func TestUnderwriteRejectsBadOverrides(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())
	created := gt.R1(uc.CreateProject(ctx, testProject("Bad Policy"))).NoError(t)

	target := 0.5 // below 1.0
	_, err := uc.Underwrite(ctx, created.ID, usecase.UnderwritingRequest{
		Streams: []model.RevenueStream{{Label: "x", Class: types.RevenueMerchant, AnnualGrossUSD: 1}},
		Policy:  &usecase.PolicyOverrides{TargetDSCR: &target},
	})
	gt.Error(t, err)
}

func TestUnderwriteNoStreams(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New())
	created := gt.R1(uc.CreateProject(ctx, testProject("Empty"))).NoError(t)

	_, err := uc.Underwrite(ctx, created.ID, usecase.UnderwritingRequest{})
	gt.True(t, errors.Is(err, usecase.ErrNoRevenueStreams))
}

func TestBuildReportBareServer(t *testing.T) {
	ctx := context.Background()
	uc := usecase.New(memory.New(), usecase.WithPolicy(valuation.DefaultPolicy()))
	created := gt.R1(uc.CreateProject(ctx, testProject("Report Only"))).NoError(t)

	report := gt.R1(uc.BuildReport(ctx, created.ID)).NoError(t)
	gt.Equal(t, report.Project.ID, created.ID)
	gt.Value(t, report.Location).Nil()
	gt.Value(t, report.Underwriting).Nil()
	gt.False(t, report.GeneratedAt.IsZero())
}

func TestWriteReportCSV(t *testing.T) {
	report := &model.Report{
		Underwriting: &model.Underwriting{
			CashFlows: []model.CashFlowLine{
				{Year: 1, GrossUSD: 100000, BankableUSD: 85000, DebtServiceUSD: 65000, DSCR: 1.3077},
				{Year: 2, GrossUSD: 102000, BankableUSD: 86700, DebtServiceUSD: 65000, DSCR: 1.3338},
			},
		},
	}

	var buf bytes.Buffer
	gt.NoError(t, usecase.WriteReportCSV(&buf, report))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.Array(t, lines).Length(3)
	gt.Equal(t, lines[0], "year,gross_usd,bankable_usd,debt_service_usd,dscr")
	gt.True(t, strings.HasPrefix(lines[1], "1,100000.00,85000.00,65000.00,"))
}

func TestWriteProgramsCSV(t *testing.T) {
	programs := []model.Program{
		{ProgramID: "101", Name: "IL Storage Rebate", State: "IL", Type: "Rebate Program"},
	}

	var buf bytes.Buffer
	gt.NoError(t, usecase.WriteProgramsCSV(&buf, programs))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	gt.Array(t, lines).Length(2)
	gt.True(t, strings.Contains(lines[1], "IL Storage Rebate"))
}
