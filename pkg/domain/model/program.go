package model

import "time"

// Program is one incentive program record from the DSIRE catalog
type Program struct {
	ProgramID     string    `json:"program_id"`
	State         string    `json:"state"`
	Name          string    `json:"program_name"`
	Administrator string    `json:"administrator,omitempty"`
	Type          string    `json:"type,omitempty"`
	Category      string    `json:"category,omitempty"`
	WebsiteURL    string    `json:"website_url,omitempty"`
	Status        string    `json:"status,omitempty"`
	LastUpdate    string    `json:"last_update,omitempty"`
	Technologies  string    `json:"technologies,omitempty"`
	Sectors       string    `json:"sectors,omitempty"`
	Utilities     string    `json:"utilities,omitempty"`
	RawJSON       string    `json:"raw_json,omitempty"`
	SourceTag     string    `json:"source_tag,omitempty"`
	UpdatedTS     time.Time `json:"updated_ts,omitempty"`
}

// ProgramParameter is one extracted incentive amount for a program.
// Source distinguishes structured parameter sets from values derived out of
// the narrative Details text.
type ProgramParameter struct {
	ProgramID string  `json:"program_id"`
	Tech      string  `json:"tech,omitempty"`
	Sector    string  `json:"sector,omitempty"`
	Source    string  `json:"source"`
	Qualifier string  `json:"qualifier,omitempty"`
	Amount    float64 `json:"amount"`
	Units     string  `json:"units"`
	RawLabel  string  `json:"raw_label,omitempty"`
	RawValue  string  `json:"raw_value,omitempty"`
}

// MarketProgram is one entry of the static per-ISO merchant program registry
type MarketProgram struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ISO          string `json:"iso"`
	Description  string `json:"description"`
	Implemented  bool   `json:"implemented"`
	CalculatorID string `json:"calculator_id,omitempty"`
}
