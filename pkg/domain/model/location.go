package model

import (
	"time"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// LocatorMethod records which data source produced an ISO/BA inference
type LocatorMethod string

const (
	LocatorMethodPUDL           LocatorMethod = "pudl"
	LocatorMethodOpenEIOnly     LocatorMethod = "openei_only"
	LocatorMethodStateHeuristic LocatorMethod = "state_heuristic"
	LocatorMethodUnknown        LocatorMethod = "unknown"
)

// Location is the inferred grid context of a project site
type Location struct {
	UtilityName             string         `json:"utility_name,omitempty"`
	UtilityIDEIA            int64          `json:"utility_id_eia,omitempty"`
	BalancingAuthorityIDEIA int64          `json:"balancing_authority_id_eia,omitempty"`
	BalancingAuthorityName  string         `json:"balancing_authority_name,omitempty"`
	ISORTO                  types.ISO      `json:"iso_rto,omitempty"`
	State                   string         `json:"state,omitempty"`
	Method                  LocatorMethod  `json:"method"`
	Provenance              map[string]any `json:"provenance,omitempty"`
	Trace                   []TraceRow     `json:"trace,omitempty"`
}

// TraceRow records one EIA-861 row consulted during inference so QA can see
// which table and vintage produced each field.
type TraceRow struct {
	Table        string    `json:"table"`
	UtilityIDEIA int64     `json:"utility_id_eia"`
	ReportDate   time.Time `json:"report_date"`
	Detail       string    `json:"detail,omitempty"`
}

// IsPUDLBased reports whether the inference came from the EIA-861 tables
// rather than a fallback.
func (x *Location) IsPUDLBased() bool {
	return x.Method == LocatorMethodPUDL
}
