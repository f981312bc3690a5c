package locator

import (
	"context"
	"regexp"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/openei"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
	"github.com/gridmetrics-lab/derrev/pkg/utils/logging"
)

var ErrPUDLRequired = goerr.New("PUDL mapping required but not available")

// stateToISO is the coarse state fallback used when no authoritative
// mapping is found. Several states straddle seams; this picks the dominant
// operator.
var stateToISO = map[string]types.ISO{
	"CA": types.ISOCAISO, "NY": types.ISONYISO, "TX": types.ISOERCOT,
	"ME": types.ISONewEngland, "NH": types.ISONewEngland, "VT": types.ISONewEngland,
	"MA": types.ISONewEngland, "RI": types.ISONewEngland, "CT": types.ISONewEngland,
	"ND": types.ISOMISO, "SD": types.ISOMISO, "MN": types.ISOMISO, "WI": types.ISOMISO,
	"IA": types.ISOMISO, "MI": types.ISOMISO,
	"IL": types.ISOPJM, "IN": types.ISOPJM, "OH": types.ISOPJM, "PA": types.ISOPJM,
	"NJ": types.ISOPJM, "MD": types.ISOPJM, "DE": types.ISOPJM, "DC": types.ISOPJM,
	"VA": types.ISOPJM, "WV": types.ISOPJM, "NC": types.ISOPJM,
	"KS": types.ISOSPP, "OK": types.ISOSPP, "NE": types.ISOSPP,
	"FL": types.ISOFRCC,
	"AL": types.ISOSERC, "GA": types.ISOSERC, "SC": types.ISOSERC, "TN": types.ISOSERC,
	"AZ": types.ISOWECC, "NV": types.ISOWECC, "UT": types.ISOWECC, "CO": types.ISOWECC,
	"NM": types.ISOWECC, "OR": types.ISOWECC, "WA": types.ISOWECC, "ID": types.ISOWECC,
	"MT": types.ISOWECC, "WY": types.ISOWECC,
}

var statePattern = regexp.MustCompile(`\b([A-Z]{2})\b`)

// ParseState extracts the last two-letter state token from an address
func ParseState(address string) string {
	return parseState(address)
}

// parseState extracts the last two-letter state token from an address
func parseState(address string) string {
	matches := statePattern.FindAllStringSubmatch(strings.ToUpper(address), -1)
	if len(matches) == 0 {
		return ""
	}
	return matches[len(matches)-1][1]
}

// Locator infers the grid context (utility, BA, ISO/RTO) of a site address
// by chaining OpenEI utility lookup with the local PUDL EIA-861 tables, with
// a state heuristic as the last resort.
type Locator struct {
	openei      *openei.Client
	store       *pudl.Store
	requirePUDL bool
}

type Option func(*Locator)

// WithRequirePUDL makes inference fail instead of degrading to fallbacks
// when no PUDL-based mapping can be made.
func WithRequirePUDL() Option {
	return func(x *Locator) {
		x.requirePUDL = true
	}
}

func New(openeiClient *openei.Client, store *pudl.Store, opts ...Option) *Locator {
	x := &Locator{openei: openeiClient, store: store}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// pickLatest returns the last row for a utility, ordered by report date, no
// later than year when year is non-zero.
func pickLatest[T any](rows []T, utilID int64, year int, utilOf func(T) int64, yearOf func(T) int) *T {
	var best *T
	bestYear := -1
	for i := range rows {
		if utilOf(rows[i]) != utilID {
			continue
		}
		y := yearOf(rows[i])
		if year != 0 && y > year {
			continue
		}
		if y >= bestYear {
			best = &rows[i]
			bestYear = y
		}
	}
	return best
}

// deriveISOFromBA keyword-matches the balancing authority name
func deriveISOFromBA(baName string) types.ISO {
	s := strings.ToLower(baName)
	switch {
	case strings.Contains(s, "pjm"):
		return types.ISOPJM
	case strings.Contains(s, "midcontinent"), strings.Contains(s, "miso"):
		return types.ISOMISO
	case strings.Contains(s, "california"), strings.Contains(s, "caiso"):
		return types.ISOCAISO
	case strings.Contains(s, "new york"), strings.Contains(s, "nyiso"):
		return types.ISONYISO
	case strings.Contains(s, "iso new england"), strings.Contains(s, "isone"):
		return types.ISONewEngland
	case strings.Contains(s, "southwest power pool"), strings.Contains(s, "spp"):
		return types.ISOSPP
	case strings.Contains(s, "ercot"), strings.Contains(s, "texas"):
		return types.ISOERCOT
	}
	return ""
}

// InferFromAddress resolves an address to its grid context. Year bounds the
// PUDL report vintage used (zero means latest available).
func (x *Locator) InferFromAddress(ctx context.Context, address string, year int) (*model.Location, error) {
	logger := logging.From(ctx)
	stateGuess := parseState(address)

	var utilName string
	var utilID int64

	results, err := x.openei.GetByAddress(ctx, address)
	if err != nil {
		logger.Warn("OpenEI address lookup failed", "error", err)
	} else if len(results) > 0 {
		top := results[0]
		utilName = top.UtilityName
		utilID = top.UtilityIDEIA
		if top.State != "" {
			stateGuess = top.State
		}
	}

	// EIA ID missing from the rate records: try the alias dataset
	if utilID == 0 && utilName != "" {
		aliases, err := x.openei.GetUtilityAliases(ctx, utilName)
		if err != nil {
			logger.Warn("OpenEI alias lookup failed", "error", err)
		}
		for _, alias := range aliases {
			if alias.EIAID != 0 {
				utilID = alias.EIAID
				break
			}
		}
	}

	baRows, baErr := x.store.ReadBalancingAuthority()
	rtoRows, rtoErr := x.store.ReadUtilityRTO()
	miscRows, miscErr := x.store.ReadUtilityMisc()

	if x.requirePUDL && (utilID == 0 || baErr != nil || miscErr != nil) {
		var missing []string
		if utilID == 0 {
			missing = append(missing, "utility_id_eia (OpenEI)")
		}
		if baErr != nil {
			missing = append(missing, pudl.TableBalancingAuthority)
		}
		if miscErr != nil {
			missing = append(missing, pudl.TableUtilityMisc)
		}
		return nil, goerr.Wrap(ErrPUDLRequired, "missing inputs",
			goerr.V("missing", missing))
	}

	if utilID != 0 && (baErr == nil || rtoErr == nil || miscErr == nil) {
		baRow := pickLatest(baRows, utilID, year,
			func(r pudl.BalancingAuthorityRow) int64 { return r.UtilityIDEIA },
			func(r pudl.BalancingAuthorityRow) int { return r.ReportDate.Year() })
		rtoRow := pickLatest(rtoRows, utilID, year,
			func(r pudl.RTORow) int64 { return r.UtilityIDEIA },
			func(r pudl.RTORow) int { return r.ReportDate.Year() })
		miscRow := pickLatest(miscRows, utilID, year,
			func(r pudl.MiscRow) int64 { return r.UtilityIDEIA },
			func(r pudl.MiscRow) int { return r.ReportDate.Year() })

		if baRow != nil || rtoRow != nil || miscRow != nil {
			loc := &model.Location{
				UtilityName:  utilName,
				UtilityIDEIA: utilID,
				State:        stateGuess,
				Method:       model.LocatorMethodPUDL,
				Provenance: map[string]any{
					"pudl_dir": x.store.Dir(),
					"year":     year,
				},
			}
			if baRow != nil {
				loc.BalancingAuthorityIDEIA = baRow.BalancingAuthorityIDEIA
				loc.BalancingAuthorityName = baRow.BalancingAuthorityNameEIA
				loc.Trace = append(loc.Trace, model.TraceRow{
					Table:        pudl.TableBalancingAuthority,
					UtilityIDEIA: baRow.UtilityIDEIA,
					ReportDate:   baRow.ReportDate,
					Detail:       baRow.BalancingAuthorityNameEIA,
				})
			}
			if rtoRow != nil {
				loc.Trace = append(loc.Trace, model.TraceRow{
					Table:        pudl.TableUtilityRTO,
					UtilityIDEIA: rtoRow.UtilityIDEIA,
					ReportDate:   rtoRow.ReportDate,
					Detail:       rtoRow.ISOCode(),
				})
			}
			if miscRow != nil {
				loc.Trace = append(loc.Trace, model.TraceRow{
					Table:        pudl.TableUtilityMisc,
					UtilityIDEIA: miscRow.UtilityIDEIA,
					ReportDate:   miscRow.ReportDate,
					Detail:       miscRow.NERCRegion,
				})
			}

			var iso types.ISO
			if rtoRow != nil {
				if code := rtoRow.ISOCode(); code != "" {
					if parsed, err := types.ParseISO(code); err == nil {
						iso = parsed
					}
				}
			}
			if iso == "" && loc.BalancingAuthorityName != "" {
				iso = deriveISOFromBA(loc.BalancingAuthorityName)
			}
			if iso == "" && stateGuess != "" {
				iso = stateToISO[stateGuess]
			}
			loc.ISORTO = iso
			return loc, nil
		}
	}

	if x.requirePUDL {
		return nil, goerr.Wrap(ErrPUDLRequired, "no PUDL row matched the utility",
			goerr.V("utility_id_eia", utilID))
	}

	// OpenEI matched but PUDL could not corroborate
	if utilName != "" || utilID != 0 {
		return &model.Location{
			UtilityName:  utilName,
			UtilityIDEIA: utilID,
			State:        stateGuess,
			ISORTO:       stateToISO[stateGuess],
			Method:       model.LocatorMethodOpenEIOnly,
			Provenance:   map[string]any{"reason": "no PUDL row matched"},
		}, nil
	}

	method := model.LocatorMethodUnknown
	if stateGuess != "" {
		method = model.LocatorMethodStateHeuristic
	}
	return &model.Location{
		State:      stateGuess,
		ISORTO:     stateToISO[stateGuess],
		Method:     method,
		Provenance: map[string]any{"reason": "no OpenEI match"},
	}, nil
}
