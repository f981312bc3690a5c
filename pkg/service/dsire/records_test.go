package dsire_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/service/dsire"
)

func TestNormalizeState(t *testing.T) {
	gt.Equal(t, dsire.NormalizeState("il"), "IL")
	gt.Equal(t, dsire.NormalizeState("New Jersey"), "NJ")
	gt.Equal(t, dsire.NormalizeState(" texas "), "TX")
	gt.Equal(t, dsire.NormalizeState("ZZ"), "")
	gt.Equal(t, dsire.NormalizeState(""), "")
}

func TestDedupeByProgramID(t *testing.T) {
	records := []dsire.Record{
		{"ProgramId": float64(1), "Name": "first"},
		{"ProgramId": float64(1), "Name": "repeat"},
		{"Name": "no id"},
		{"Website": "https://example.org/p2"},
	}
	out := dsire.DedupeByProgramID(records)
	gt.Array(t, out).Length(2)
	gt.Equal(t, out[0].ProgramID(), "1")
	gt.Equal(t, out[1].ProgramID(), "https://example.org/p2")
}

func TestNormalizePrograms(t *testing.T) {
	records := []dsire.Record{{
		"ProgramId":    float64(5063),
		"State":        "Illinois",
		"Name":         "  Smart Inverter Rebate  ",
		"TypeName":     "Rebate Program",
		"CategoryName": "Financial Incentive",
		"WebsiteUrl":   "https://example.org/5063",
		"LastUpdated":  "2024-03-01",
		"Technologies": []any{
			map[string]any{"Name": "Solar Photovoltaics"},
			map[string]any{"Name": "Energy Storage"},
			"Energy Storage",
		},
		"Sectors": []any{map[string]any{"Name": "Commercial"}},
	}}

	programs := dsire.NormalizePrograms(records)
	gt.Array(t, programs).Length(1)
	p := programs[0]
	gt.Equal(t, p.ProgramID, "5063")
	gt.Equal(t, p.State, "IL")
	gt.Equal(t, p.Name, "Smart Inverter Rebate")
	gt.Equal(t, p.Type, "Rebate Program")
	gt.Equal(t, p.Technologies, "Energy Storage, Solar Photovoltaics")
	gt.Equal(t, p.Sectors, "Commercial")
	gt.True(t, p.RawJSON != "")
}

func TestNormalizeProgramsKeepsRawState(t *testing.T) {
	programs := dsire.NormalizePrograms([]dsire.Record{{"id": "x", "State": "Puerto Rico"}})
	gt.Equal(t, programs[0].State, "Puerto Rico")
}

func TestExtractParametersStructured(t *testing.T) {
	r := dsire.Record{
		"ProgramId": float64(7),
		"ProgramParameters": []any{
			map[string]any{
				"Label":  "Base incentive",
				"Units":  "$/kW",
				"Amount": float64(250),
				"Max":    "1,000",
				"Sector": "Commercial",
			},
		},
	}

	params := dsire.ExtractParameters(r)
	gt.Array(t, params).Length(2)
	gt.Equal(t, params[0].Qualifier, "amount")
	gt.Equal(t, params[0].Amount, 250.0)
	gt.Equal(t, params[0].Units, "$/kW")
	gt.Equal(t, params[0].Source, "ProgramParameters")
	gt.Equal(t, params[0].Sector, "Commercial")
	gt.Equal(t, params[1].Qualifier, "max")
	gt.Equal(t, params[1].Amount, 1000.0)
}

func TestExtractParametersFromDetails(t *testing.T) {
	r := dsire.Record{
		"ProgramId": float64(8),
		"Details": []any{
			map[string]any{
				"label": "Incentive Amount",
				"value": "<p>$300/kW for storage, plus $0.25/kWh<br/>covers 30% of cost</p>",
			},
			map[string]any{
				"label": "Maximum Incentive",
				"value": "Up to $50,000 per site",
			},
		},
	}

	params := dsire.ExtractParameters(r)
	gt.Array(t, params).Length(4)

	byUnits := map[string]float64{}
	for _, p := range params {
		gt.Equal(t, p.Source, "DerivedFromDetails")
		byUnits[p.Units] = p.Amount
	}
	gt.Equal(t, byUnits["$/kW"], 300.0)
	gt.Equal(t, byUnits["$/kWh"], 0.25)
	gt.Equal(t, byUnits["%"], 30.0)
	gt.Equal(t, byUnits["USD"], 50000.0)

	last := params[len(params)-1]
	gt.Equal(t, last.Qualifier, "cap")
	gt.Equal(t, last.RawLabel, "Maximum Incentive")
}

func TestExtractParametersEmpty(t *testing.T) {
	gt.Array(t, dsire.ExtractParameters(dsire.Record{"id": "none"})).Length(0)
}
