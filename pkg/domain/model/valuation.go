package model

import (
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// RevenueStream is one annualized gross revenue (or savings) line feeding
// the haircut and underwriting steps.
type RevenueStream struct {
	Label          string             `json:"label"`
	Class          types.RevenueClass `json:"class"`
	AnnualGrossUSD float64            `json:"annual_gross_usd"`
	Source         string             `json:"source,omitempty"`
}

// HaircutLine is a revenue stream after the class haircut is applied
type HaircutLine struct {
	Label             string             `json:"label"`
	Class             types.RevenueClass `json:"class"`
	AnnualGrossUSD    float64            `json:"annual_gross_usd"`
	HaircutFraction   float64            `json:"haircut_fraction"`
	AnnualBankableUSD float64            `json:"annual_bankable_usd"`
}

// CashFlowLine is one projected year of the valuation
type CashFlowLine struct {
	Year           int     `json:"year"`
	GrossUSD       float64 `json:"gross_usd"`
	BankableUSD    float64 `json:"bankable_usd"`
	DebtServiceUSD float64 `json:"debt_service_usd"`
	DSCR           float64 `json:"dscr"`
}

// AmortizationRow is one month of the sized debt's schedule
type AmortizationRow struct {
	Month        int     `json:"month"`
	PaymentUSD   float64 `json:"payment_usd"`
	InterestUSD  float64 `json:"interest_usd"`
	PrincipalUSD float64 `json:"principal_usd"`
	BalanceUSD   float64 `json:"balance_usd"`
}

// Underwriting is the debt-sizing result for a project
type Underwriting struct {
	TermYears            int               `json:"term_years"`
	DebtTermMonths       int               `json:"debt_term_months"`
	AnnualInterestRate   float64           `json:"annual_interest_rate"`
	TargetDSCR           float64           `json:"target_dscr"`
	AnnualBankableUSD    float64           `json:"annual_bankable_usd"`
	MaxSupportableDebt   float64           `json:"max_supportable_debt_usd"`
	AnnualDebtServiceUSD float64           `json:"annual_debt_service_usd"`
	Haircuts             []HaircutLine     `json:"haircuts"`
	CashFlows            []CashFlowLine    `json:"cash_flows"`
	Schedule             []AmortizationRow `json:"schedule,omitempty"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

// Report is the full lender-facing document for one project
type Report struct {
	Project      *Project        `json:"project"`
	Location     *Location       `json:"location,omitempty"`
	Programs     []Program       `json:"programs,omitempty"`
	Streams      []RevenueStream `json:"revenue_streams,omitempty"`
	Underwriting *Underwriting   `json:"underwriting,omitempty"`
	GeneratedAt  time.Time       `json:"generated_at"`
}
