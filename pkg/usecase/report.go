package usecase

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

// screenStreams assembles revenue streams from whatever services are
// configured. Regulation needs the market cache; the demand response
// benchmark needs PUDL and the locator. PLC/NSPL savings need the current
// tags, which only arrive via explicit streams. A service error skips that
// stream rather than failing the screen.
func (uc *UseCases) screenStreams(ctx context.Context, project *model.Project) ([]model.RevenueStream, error) {
	logger := logging.From(ctx)
	var streams []model.RevenueStream

	if uc.cache != nil {
		result, err := uc.EstimateRegulation(ctx, project.ID, RegulationRequest{})
		if err != nil {
			logger.Warn("regulation screen skipped", "id", project.ID, "error", err)
		} else if result.Estimate.GrossUSD > 0 {
			streams = append(streams, model.RevenueStream{
				Label:          "Frequency regulation (trailing 12mo)",
				Class:          types.RevenueMerchant,
				AnnualGrossUSD: result.Estimate.GrossUSD,
				Source:         "merchant/regulation",
			})
		}
	}

	if uc.store != nil && uc.locator != nil {
		result, err := uc.DemandResponse(ctx, project.ID)
		if err != nil {
			logger.Warn("demand response screen skipped", "id", project.ID, "error", err)
		} else if result.Estimate.USDPerKWYear != nil {
			gross := *result.Estimate.USDPerKWYear * project.BESS.TotalPowerKW()
			if gross > 0 {
				streams = append(streams, model.RevenueStream{
					Label:          "Utility demand response (EIA-861 benchmark)",
					Class:          types.RevenueContracted,
					AnnualGrossUSD: gross,
					Source:         "demand-response",
				})
			}
		}
	}

	return streams, nil
}

// BuildReport assembles the lender-facing report: project bundle, inferred
// grid context, incentive programs, screened revenue streams, and the
// underwriting under the configured policy. Sections whose backing service
// is not configured are omitted rather than failing the whole report.
func (uc *UseCases) BuildReport(ctx context.Context, id types.ProjectID) (*model.Report, error) {
	logger := logging.From(ctx)

	project, err := uc.repo.Project().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &model.Report{
		Project:     project,
		GeneratedAt: time.Now().UTC(),
	}

	if uc.locator != nil && project.Identity.SiteAddress != "" {
		location, err := uc.locator.InferFromAddress(ctx, project.Identity.SiteAddress, 0)
		if err != nil {
			logger.Warn("report location section skipped", "id", id, "error", err)
		} else {
			report.Location = location
		}
	}

	if uc.catalog != nil {
		programs, err := uc.Programs(ctx, id, ProgramFilter{})
		if err != nil {
			logger.Warn("report programs section skipped", "id", id, "error", err)
		} else {
			report.Programs = programs
		}
	}

	streams, err := uc.screenStreams(ctx, project)
	if err != nil {
		return nil, err
	}
	report.Streams = streams

	if len(streams) > 0 {
		underwriting, err := uc.Underwrite(ctx, id, UnderwritingRequest{Streams: streams})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to underwrite screened streams", goerr.V("id", id))
		}
		report.Underwriting = underwriting
	}

	return report, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// WriteReportCSV renders the report's cash-flow lines as CSV, matching the
// report page download.
func WriteReportCSV(w io.Writer, report *model.Report) error {
	cw := csv.NewWriter(w)
	header := []string{"year", "gross_usd", "bankable_usd", "debt_service_usd", "dscr"}
	if err := cw.Write(header); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}

	if report.Underwriting != nil {
		for _, line := range report.Underwriting.CashFlows {
			row := []string{
				strconv.Itoa(line.Year),
				money(line.GrossUSD),
				money(line.BankableUSD),
				money(line.DebtServiceUSD),
				strconv.FormatFloat(line.DSCR, 'f', 4, 64),
			}
			if err := cw.Write(row); err != nil {
				return goerr.Wrap(err, "failed to write CSV row")
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}

// WriteProgramsCSV renders an incentive program table as CSV, matching the
// programs page download.
func WriteProgramsCSV(w io.Writer, programs []model.Program) error {
	cw := csv.NewWriter(w)
	header := []string{"program_id", "name", "state", "type", "category", "administrator", "website", "last_update"}
	if err := cw.Write(header); err != nil {
		return goerr.Wrap(err, "failed to write CSV header")
	}

	for _, p := range programs {
		row := []string{
			p.ProgramID, p.Name, p.State, p.Type, p.Category,
			p.Administrator, p.WebsiteURL, p.LastUpdate,
		}
		if err := cw.Write(row); err != nil {
			return goerr.Wrap(err, "failed to write CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush CSV")
	}
	return nil
}
