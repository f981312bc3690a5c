package dsire

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
)

// Record is one raw program record as returned by the API. Field names vary
// across API vintages, so lookups are multi-key and case-insensitive.
type Record map[string]any

func (r Record) getAny(keys ...string) any {
	for _, key := range keys {
		if v, ok := r[key]; ok {
			return v
		}
		lower := strings.ToLower(key)
		for k, v := range r {
			if strings.ToLower(k) == lower {
				return v
			}
		}
	}
	return nil
}

func (r Record) getString(keys ...string) string {
	v := r.getAny(keys...)
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ProgramID extracts a stable program identifier, falling back to the
// program website URL when no explicit ID is present.
func (r Record) ProgramID() string {
	if v := r.getAny("ProgramId", "programId", "id", "Program ID"); v != nil {
		if f, ok := v.(float64); ok && f == math.Trunc(f) {
			return strconv.FormatInt(int64(f), 10)
		}
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(r.getString("Website", "URL", "url", "Website URL", "WebsiteUrl", "ProgramURL"))
}

// DedupeByProgramID drops records without an identifier and keeps the first
// occurrence of each ID.
func DedupeByProgramID(records []Record) []Record {
	seen := map[string]struct{}{}
	var out []Record
	for _, r := range records {
		key := r.ProgramID()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// joinNames flattens a string, or a list of strings / objects carrying a
// name-like field, into a sorted comma-separated string.
func joinNames(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []any:
		set := map[string]struct{}{}
		for _, item := range val {
			switch x := item.(type) {
			case string:
				if s := strings.TrimSpace(x); s != "" {
					set[s] = struct{}{}
				}
			case map[string]any:
				if name := Record(x).getString("Name", "name", "Technology", "Utility", "Sector"); name != "" {
					set[strings.TrimSpace(name)] = struct{}{}
				}
			}
		}
		parts := make([]string, 0, len(set))
		for s := range set {
			parts = append(parts, s)
		}
		sort.Strings(parts)
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(v)
	}
}

// NormalizePrograms maps raw records onto catalog rows. State is normalized
// to a two-letter code when recognizable, otherwise kept raw. The exact
// source record is preserved in RawJSON for audit.
func NormalizePrograms(records []Record) []model.Program {
	out := make([]model.Program, 0, len(records))
	for _, r := range records {
		stateRaw := r.getString("State", "state")
		state := NormalizeState(stateRaw)
		if state == "" {
			state = strings.TrimSpace(stateRaw)
		}

		raw, err := json.Marshal(map[string]any(r))
		if err != nil {
			raw = nil
		}

		out = append(out, model.Program{
			ProgramID:     r.ProgramID(),
			State:         state,
			Name:          strings.TrimSpace(r.getString("Program Name", "ProgramName", "Name", "name")),
			Administrator: r.getString("Administrator", "AdministratorName", "admin"),
			Type:          r.getString("Type", "Program Type", "type", "TypeName"),
			Category:      r.getString("Category", "Program Category", "category", "CategoryName"),
			WebsiteURL:    r.getString("Website", "URL", "url", "Website URL", "WebsiteUrl", "ProgramURL"),
			Status:        r.getString("Status", "status"),
			LastUpdate:    r.getString("Last Update", "LastUpdated", "last_update", "lastUpdate"),
			Technologies:  joinNames(r.getAny("Technologies", "Technology", "tech")),
			Sectors:       joinNames(r.getAny("Sectors", "Sector")),
			Utilities:     joinNames(r.getAny("Utilities", "Utility")),
			RawJSON:       string(raw),
		})
	}
	return out
}

var (
	amtPerKW  = regexp.MustCompile(`(?i)\$([\d,]+(?:\.\d+)?)\s*/\s*kW\b`)
	amtPerKWH = regexp.MustCompile(`(?i)\$([\d,]+(?:\.\d+)?)\s*/\s*kWh\b`)
	amtPerW   = regexp.MustCompile(`(?i)\$([\d,]+(?:\.\d+)?)\s*/\s*W\b`)
	amtPct    = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`)
	amtCap    = regexp.MustCompile(`(?i)(?:up to|maximum(?: incentive)?|cap)\s*\$([\d,]+(?:\.\d+)?)`)

	brTag   = regexp.MustCompile(`(?i)<br\s*/?>`)
	htmlTag = regexp.MustCompile(`<[^>]+>`)
)

func stripHTML(s string) string {
	s = brTag.ReplaceAllString(s, "\n")
	s = htmlTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

type amountHit struct {
	amount    float64
	units     string
	qualifier string
}

// extractAmounts pulls dollar-per-unit rates, percentages and dollar caps
// out of narrative incentive text.
func extractAmounts(text string) []amountHit {
	if text == "" {
		return nil
	}

	var hits []amountHit
	for _, pat := range []struct {
		re    *regexp.Regexp
		units string
	}{
		{amtPerKW, "$/kW"},
		{amtPerKWH, "$/kWh"},
		{amtPerW, "$/W"},
	} {
		for _, m := range pat.re.FindAllStringSubmatch(text, -1) {
			if v, err := parseMoney(m[1]); err == nil {
				hits = append(hits, amountHit{amount: v, units: pat.units})
			}
		}
	}
	for _, m := range amtPct.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			hits = append(hits, amountHit{amount: v, units: "%"})
		}
	}
	for _, m := range amtCap.FindAllStringSubmatch(text, -1) {
		if v, err := parseMoney(m[1]); err == nil {
			hits = append(hits, amountHit{amount: v, units: "USD", qualifier: "cap"})
		}
	}
	return hits
}

func parseMoney(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	return strconv.ParseFloat(s, 64)
}

// ExtractParameters returns the long-form parameter rows for a record:
// structured parameter sets when present, plus amounts derived from the
// narrative Details sections.
func ExtractParameters(r Record) []model.ProgramParameter {
	pid := r.ProgramID()
	var out []model.ProgramParameter

	if sets, ok := r.getAny("ProgramParameters", "Parameters", "Incentives").([]any); ok {
		for _, item := range sets {
			p, ok := item.(map[string]any)
			if !ok {
				continue
			}
			pr := Record(p)
			label := pr.getString("Label", "label", "Name", "name")
			units := pr.getString("Units", "Unit", "units")
			tech := pr.getString("Technology", "technology")
			sector := pr.getString("Sector", "sector")
			source := pr.getString("Source", "source")
			if source == "" {
				source = "ProgramParameters"
			}

			for _, q := range []struct {
				qualifier string
				value     any
			}{
				{"amount", pr.getAny("Amount", "Value", "value", "amount")},
				{"min", pr.getAny("Min", "Minimum", "min")},
				{"max", pr.getAny("Max", "Maximum", "max")},
			} {
				if q.value == nil {
					continue
				}
				out = append(out, model.ProgramParameter{
					ProgramID: pid,
					Tech:      tech,
					Sector:    sector,
					Source:    source,
					Qualifier: q.qualifier,
					Amount:    coerceFloat(q.value),
					Units:     units,
					RawLabel:  label,
					RawValue:  fmt.Sprint(q.value),
				})
			}
		}
	}

	details, ok := r.getAny("Details").([]any)
	if !ok {
		return out
	}
	detMap := map[string]string{}
	for _, item := range details {
		d, ok := item.(map[string]any)
		if !ok {
			continue
		}
		dr := Record(d)
		label := strings.TrimSpace(dr.getString("label", "Label"))
		text := stripHTML(dr.getString("value", "Value"))
		if label != "" && text != "" {
			detMap[label] = text
		}
	}

	incentiveText := detMap["Incentive Amount"]
	if incentiveText == "" {
		incentiveText = detMap["Incentive"]
	}
	if incentiveText == "" {
		incentiveText = detMap["Benefit Details"]
	}
	maxIncentiveText := detMap["Maximum Incentive"]

	for _, hit := range extractAmounts(incentiveText) {
		out = append(out, model.ProgramParameter{
			ProgramID: pid,
			Source:    "DerivedFromDetails",
			Qualifier: hit.qualifier,
			Amount:    hit.amount,
			Units:     hit.units,
			RawLabel:  "Incentive Amount",
			RawValue:  incentiveText,
		})
	}
	for _, hit := range extractAmounts(maxIncentiveText) {
		qualifier := hit.qualifier
		if qualifier == "" {
			qualifier = "cap"
		}
		out = append(out, model.ProgramParameter{
			ProgramID: pid,
			Source:    "DerivedFromDetails",
			Qualifier: qualifier,
			Amount:    hit.amount,
			Units:     hit.units,
			RawLabel:  "Maximum Incentive",
			RawValue:  maxIncentiveText,
		})
	}
	return out
}

// AllParameters extracts parameters from every record
func AllParameters(records []Record) []model.ProgramParameter {
	var out []model.ProgramParameter
	for _, r := range records {
		out = append(out, ExtractParameters(r)...)
	}
	return out
}

// coerceFloat parses numeric and "$1,234.50" style values, NaN otherwise
func coerceFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		if f, err := parseMoney(x); err == nil {
			return f
		}
	}
	return math.NaN()
}
