package valuation

import (
	"math"
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
)

// ApplyHaircuts converts gross revenue streams into bankable lines per the
// policy's class fractions.
func ApplyHaircuts(streams []model.RevenueStream, policy *Policy) []model.HaircutLine {
	lines := make([]model.HaircutLine, 0, len(streams))
	for _, s := range streams {
		fraction := policy.FractionFor(s.Class)
		lines = append(lines, model.HaircutLine{
			Label:             s.Label,
			Class:             s.Class,
			AnnualGrossUSD:    s.AnnualGrossUSD,
			HaircutFraction:   fraction,
			AnnualBankableUSD: s.AnnualGrossUSD * (1 - fraction),
		})
	}
	return lines
}

// annuityPayment is the level monthly payment that amortizes principal over
// months at the given monthly rate.
func annuityPayment(principal, monthlyRate float64, months int) float64 {
	if months <= 0 {
		return 0
	}
	if monthlyRate == 0 {
		return principal / float64(months)
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	return principal * monthlyRate * factor / (factor - 1)
}

// annuityPrincipal inverts annuityPayment: the largest principal a level
// monthly payment can amortize.
func annuityPrincipal(payment, monthlyRate float64, months int) float64 {
	if months <= 0 || payment <= 0 {
		return 0
	}
	if monthlyRate == 0 {
		return payment * float64(months)
	}
	factor := math.Pow(1+monthlyRate, float64(months))
	return payment * (factor - 1) / (monthlyRate * factor)
}

// MaxSupportableDebt sizes the principal whose annual debt service keeps the
// minimum-year DSCR at the target. With non-negative escalation the first
// year is the minimum, so the sizing constraint is year-one bankable cash
// flow over target DSCR.
func MaxSupportableDebt(annualBankableUSD float64, policy *Policy) float64 {
	if annualBankableUSD <= 0 {
		return 0
	}
	monthlyPayment := annualBankableUSD / policy.TargetDSCR / 12.0
	return annuityPrincipal(monthlyPayment, policy.AnnualInterestRate/12.0, policy.DebtTermMonths)
}

// AmortizationSchedule returns the month-by-month schedule for the sized
// principal. The final payment is adjusted so the balance lands on zero.
func AmortizationSchedule(principal float64, annualRate float64, months int) []model.AmortizationRow {
	if principal <= 0 || months <= 0 {
		return nil
	}
	monthlyRate := annualRate / 12.0
	payment := annuityPayment(principal, monthlyRate, months)

	rows := make([]model.AmortizationRow, 0, months)
	balance := principal
	for m := 1; m <= months; m++ {
		interest := balance * monthlyRate
		principalPart := payment - interest
		pay := payment
		if m == months || principalPart > balance {
			principalPart = balance
			pay = interest + principalPart
		}
		balance -= principalPart
		rows = append(rows, model.AmortizationRow{
			Month:        m,
			PaymentUSD:   pay,
			InterestUSD:  interest,
			PrincipalUSD: principalPart,
			BalanceUSD:   balance,
		})
		if balance <= 0 {
			break
		}
	}
	return rows
}

// Underwrite runs the full debt-sizing pass: haircuts, sizing, projected
// cash flows over the analysis term, and the amortization schedule.
func Underwrite(streams []model.RevenueStream, policy *Policy) *model.Underwriting {
	haircuts := ApplyHaircuts(streams, policy)

	var gross, bankable float64
	for _, line := range haircuts {
		gross += line.AnnualGrossUSD
		bankable += line.AnnualBankableUSD
	}

	principal := MaxSupportableDebt(bankable, policy)
	monthlyPayment := annuityPayment(principal, policy.AnnualInterestRate/12.0, policy.DebtTermMonths)
	annualDebtService := monthlyPayment * 12.0

	debtYears := policy.DebtTermMonths / 12
	residualMonths := policy.DebtTermMonths % 12

	cashFlows := make([]model.CashFlowLine, 0, policy.TermYears)
	for year := 1; year <= policy.TermYears; year++ {
		escalation := math.Pow(1+policy.EscalationRate, float64(year-1))
		line := model.CashFlowLine{
			Year:        year,
			GrossUSD:    gross * escalation,
			BankableUSD: bankable * escalation,
		}
		switch {
		case year <= debtYears:
			line.DebtServiceUSD = annualDebtService
		case year == debtYears+1 && residualMonths > 0:
			line.DebtServiceUSD = monthlyPayment * float64(residualMonths)
		}
		if line.DebtServiceUSD > 0 {
			line.DSCR = line.BankableUSD / line.DebtServiceUSD
		}
		cashFlows = append(cashFlows, line)
	}

	return &model.Underwriting{
		TermYears:            policy.TermYears,
		DebtTermMonths:       policy.DebtTermMonths,
		AnnualInterestRate:   policy.AnnualInterestRate,
		TargetDSCR:           policy.TargetDSCR,
		AnnualBankableUSD:    bankable,
		MaxSupportableDebt:   principal,
		AnnualDebtServiceUSD: annualDebtService,
		Haircuts:             haircuts,
		CashFlows:            cashFlows,
		Schedule:             AmortizationSchedule(principal, policy.AnnualInterestRate, policy.DebtTermMonths),
		GeneratedAt:          time.Now().UTC(),
	}
}
