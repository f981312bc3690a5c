package model

import (
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// BundleVersion is stamped on every saved project bundle
const BundleVersion = "0.1.0"

// Identity holds the descriptive fields of a project
type Identity struct {
	Name         string `json:"name"`
	CustomerType string `json:"customer_type"`
	SiteAddress  string `json:"site_address"`
	Notes        string `json:"notes,omitempty"`
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slug derives a filesystem-safe identifier from the project name.
// Non-alphanumeric runs collapse to a single underscore.
func (x *Identity) Slug() string {
	slug := slugPattern.ReplaceAllString(x.Name, "_")
	slug = strings.Trim(slug, "_")
	slug = strings.ToLower(slug)
	if slug == "" {
		return "project"
	}
	return slug
}

// LoadMeta describes the shape and coverage of the interval load data
type LoadMeta struct {
	PerMeter        bool      `json:"per_meter"`
	MeterIDs        []string  `json:"meter_ids,omitempty"`
	IntervalMinutes int       `json:"interval_minutes"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	EstIncreaseKW   *float64  `json:"est_increase_kw,omitempty"`
	EstIncreasePct  *float64  `json:"est_increase_pct,omitempty"`
}

// NormalizeMeterIDs trims, drops blanks, and removes duplicates while
// preserving first-seen order.
func NormalizeMeterIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// BillingMonth is one month of utility bill charges, optionally per meter
type BillingMonth struct {
	Month           string   `json:"month"` // YYYY-MM
	MeterID         string   `json:"meter_id,omitempty"`
	EnergyUSD       *float64 `json:"energy_usd,omitempty"`
	PeakDemandUSD   *float64 `json:"peak_demand_usd,omitempty"`
	CapacityUSD     *float64 `json:"capacity_usd,omitempty"`
	TransmissionUSD *float64 `json:"transmission_usd,omitempty"`
	TotalSpendUSD   *float64 `json:"total_spend_usd,omitempty"`
}

// Tariff carries the baseline tariff reference and the billing summary
type Tariff struct {
	BaselineTariffName string               `json:"baseline_tariff_name,omitempty"`
	MonthlyMode        types.AllocationMode `json:"monthly_mode"`
	MonthlyBilling     []BillingMonth       `json:"monthly_billing,omitempty"`
}

// PVRow is the PV nameplate for one meter (or the aggregate row)
type PVRow struct {
	MeterID string  `json:"meter_id"`
	DCKW    float64 `json:"dc_kw"`
	ACKW    float64 `json:"ac_kw"`
}

// PVInputs is the PV system description
type PVInputs struct {
	Mode types.AllocationMode `json:"mode"`
	Rows []PVRow              `json:"rows,omitempty"`
}

// BESSRow is the battery nameplate for one meter (or the aggregate row)
type BESSRow struct {
	MeterID   string  `json:"meter_id"`
	PowerKW   float64 `json:"power_kw"`
	EnergyKWH float64 `json:"energy_kwh"`
}

// BESSInputs is the battery system description
type BESSInputs struct {
	Mode types.AllocationMode `json:"mode"`
	Rows []BESSRow            `json:"rows,omitempty"`
}

// TotalPowerKW sums the nameplate power across rows
func (x *BESSInputs) TotalPowerKW() float64 {
	var total float64
	for _, r := range x.Rows {
		total += r.PowerKW
	}
	return total
}

// TotalEnergyKWH sums the nameplate energy across rows
func (x *BESSInputs) TotalEnergyKWH() float64 {
	var total float64
	for _, r := range x.Rows {
		total += r.EnergyKWH
	}
	return total
}

// DurationHours is energy over power; zero when the system has no power rating
func (x *BESSInputs) DurationHours() float64 {
	p := x.TotalPowerKW()
	if p <= 0 {
		return 0
	}
	return x.TotalEnergyKWH() / p
}

// Inferred holds attributes derived from the site address rather than entered
type Inferred struct {
	Timezone         string    `json:"timezone,omitempty"`
	UtilityName      string    `json:"utility_name,omitempty"`
	ServiceTerritory string    `json:"service_territory,omitempty"`
	ISORTO           types.ISO `json:"iso_rto,omitempty"`
	PricingNode      string    `json:"pricing_node,omitempty"`
	Notes            string    `json:"notes,omitempty"`
}

// Project is the bundle of all inputs describing one DER project site
type Project struct {
	ID        types.ProjectID `json:"id"`
	Version   string          `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Identity  Identity        `json:"identity"`
	Load      LoadMeta        `json:"load"`
	Tariff    Tariff          `json:"tariff"`
	PV        PVInputs        `json:"pv"`
	BESS      BESSInputs      `json:"bess"`
	Inferred  *Inferred       `json:"inferred,omitempty"`
}

var validIntervals = map[int]struct{}{15: {}, 30: {}, 60: {}}

// Validate enforces bundle invariants. Meter IDs are normalized in place.
func (x *Project) Validate() error {
	if strings.TrimSpace(x.Identity.Name) == "" {
		return goerr.Wrap(ErrMissingProjectName, "project validation failed")
	}
	if _, ok := validIntervals[x.Load.IntervalMinutes]; !ok {
		return goerr.Wrap(ErrInvalidInterval, "project validation failed",
			goerr.V("interval_minutes", x.Load.IntervalMinutes))
	}

	x.Load.MeterIDs = NormalizeMeterIDs(x.Load.MeterIDs)
	if x.Load.PerMeter && len(x.Load.MeterIDs) == 0 {
		return goerr.Wrap(ErrMissingMeterIDs, "project validation failed")
	}

	if !x.Load.End.IsZero() && !x.Load.Start.IsZero() && x.Load.End.Before(x.Load.Start) {
		return goerr.Wrap(ErrInvalidCoverage, "project validation failed",
			goerr.V("start", x.Load.Start), goerr.V("end", x.Load.End))
	}

	x.Tariff.MonthlyMode = x.Tariff.MonthlyMode.Normalize()
	x.PV.Mode = x.PV.Mode.Normalize()
	x.BESS.Mode = x.BESS.Mode.Normalize()

	if x.Version == "" {
		x.Version = BundleVersion
	}
	return nil
}

// MeterCount is 1 for aggregate projects, the meter ID count otherwise
func (x *Project) MeterCount() int {
	if !x.Load.PerMeter {
		return 1
	}
	return len(x.Load.MeterIDs)
}

// Summary is the listing row for a project, used by the projects index
type Summary struct {
	ID           types.ProjectID `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	CustomerType string          `json:"customer_type"`
	PerMeter     bool            `json:"per_meter"`
	Meters       int             `json:"meters"`
	IntervalMin  int             `json:"interval_min"`
	Start        time.Time       `json:"start"`
	End          time.Time       `json:"end"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SortSummaries orders listing rows newest first by creation time, breaking
// ties by name so the index is stable across backends.
func SortSummaries(summaries []Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
		}
		return summaries[i].Name < summaries[j].Name
	})
}

// Summarize builds the listing row for this project
func (x *Project) Summarize() Summary {
	return Summary{
		ID:           x.ID,
		Name:         x.Identity.Name,
		Slug:         x.Identity.Slug(),
		CustomerType: x.Identity.CustomerType,
		PerMeter:     x.Load.PerMeter,
		Meters:       x.MeterCount(),
		IntervalMin:  x.Load.IntervalMinutes,
		Start:        x.Load.Start,
		End:          x.Load.End,
		CreatedAt:    x.CreatedAt,
	}
}
