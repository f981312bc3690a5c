package pudl

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/parquet-go/parquet-go"
)

// BalancingAuthorityRow is one row of the EIA-861 balancing authority
// association table.
type BalancingAuthorityRow struct {
	UtilityIDEIA              int64     `parquet:"utility_id_eia,optional"`
	BalancingAuthorityIDEIA   int64     `parquet:"balancing_authority_id_eia,optional"`
	BalancingAuthorityNameEIA string    `parquet:"balancing_authority_name_eia,optional"`
	State                     string    `parquet:"state,optional"`
	ReportDate                time.Time `parquet:"report_date,optional"`
}

// RTORow is one row of the yearly utility RTO membership table. Column
// names for the RTO code differ across vintages.
type RTORow struct {
	UtilityIDEIA int64     `parquet:"utility_id_eia,optional"`
	RTO          string    `parquet:"rto,optional"`
	RTOISO       string    `parquet:"rto_iso,optional"`
	RTOISOCode   string    `parquet:"rto_iso_code,optional"`
	RTOName      string    `parquet:"rto_name,optional"`
	ReportDate   time.Time `parquet:"report_date,optional"`
}

// ISOCode returns the first populated RTO/ISO column
func (x *RTORow) ISOCode() string {
	for _, v := range []string{x.RTO, x.RTOISO, x.RTOISOCode, x.RTOName} {
		if v != "" {
			return v
		}
	}
	return ""
}

// MiscRow is one row of the yearly utility misc table, carrying the NERC
// region as a coarse fallback.
type MiscRow struct {
	UtilityIDEIA int64     `parquet:"utility_id_eia,optional"`
	NERCRegion   string    `parquet:"nerc_region,optional"`
	State        string    `parquet:"state,optional"`
	ReportDate   time.Time `parquet:"report_date,optional"`
}

// DemandResponseRow is one row of the EIA-861 yearly demand response table.
// Money and MW fields are pointers because many utility-years report blanks.
type DemandResponseRow struct {
	UtilityIDEIA            int64     `parquet:"utility_id_eia,optional"`
	UtilityNameEIA          string    `parquet:"utility_name_eia,optional"`
	BalancingAuthorityIDEIA int64     `parquet:"balancing_authority_id_eia,optional"`
	State                   string    `parquet:"state,optional"`
	CustomerClass           string    `parquet:"customer_class,optional"`
	Sector                  string    `parquet:"sector,optional"`
	ReportDate              time.Time `parquet:"report_date,optional"`
	CustomersEnrolled       *float64  `parquet:"customers_enrolled,optional"`
	PotentialPeakReductionMW *float64 `parquet:"potential_peak_reduction_mw,optional"`
	ActualPeakReductionMW   *float64  `parquet:"actual_peak_reduction_mw,optional"`
	ExpendituresUSD         *float64  `parquet:"expenditures,optional"`
}

// Class returns customer_class, falling back to the older sector column
func (x *DemandResponseRow) Class() string {
	if x.CustomerClass != "" {
		return x.CustomerClass
	}
	return x.Sector
}

func readTable[T any](s *Store, name string) ([]T, error) {
	path := s.tablePath(name)
	if !fileUsable(path) {
		return nil, goerr.Wrap(ErrTableMissing, "PUDL table not present locally",
			goerr.V("table", name), goerr.V("path", path))
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read PUDL parquet", goerr.V("path", path))
	}
	return rows, nil
}

var ErrTableMissing = goerr.New("PUDL table missing")

// ReadBalancingAuthority loads the BA association table
func (s *Store) ReadBalancingAuthority() ([]BalancingAuthorityRow, error) {
	return readTable[BalancingAuthorityRow](s, TableBalancingAuthority)
}

// ReadUtilityRTO loads the yearly RTO membership table
func (s *Store) ReadUtilityRTO() ([]RTORow, error) {
	return readTable[RTORow](s, TableUtilityRTO)
}

// ReadUtilityMisc loads the yearly utility misc table
func (s *Store) ReadUtilityMisc() ([]MiscRow, error) {
	return readTable[MiscRow](s, TableUtilityMisc)
}

// ReadDemandResponse loads the yearly demand response table
func (s *Store) ReadDemandResponse() ([]DemandResponseRow, error) {
	return readTable[DemandResponseRow](s, TableDemandResponse)
}
