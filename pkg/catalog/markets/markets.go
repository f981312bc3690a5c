// Package markets holds the static registry of merchant market programs
// per ISO/RTO, and which of them have a wired calculator.
package markets

import (
	"strings"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
)

// Calculator IDs reference the revenue screens the API exposes
const (
	CalculatorRegulation      = "merchant/regulation"
	CalculatorEnergyArbitrage = "merchant/energy"
	CalculatorReserves        = "merchant/reserves"
)

var programs = []model.MarketProgram{
	{
		Code:         "regulation",
		Name:         "Regulation (RegD/RegA)",
		ISO:          string(types.ISOPJM),
		Description:  "Ancillary frequency regulation with capability & performance credits.",
		Implemented:  true,
		CalculatorID: CalculatorRegulation,
	},
	{
		Code:         "sync_reserve",
		Name:         "Synchronized Reserve",
		ISO:          string(types.ISOPJM),
		Description:  "Short-notice reserve product; real-time & day-ahead variants.",
		Implemented:  true,
		CalculatorID: CalculatorReserves,
	},
	{
		Code:        "capacity_rpm",
		Name:        "Capacity (RPM)",
		ISO:         string(types.ISOPJM),
		Description: "Forward capacity market (clearing price × UCAP).",
		Implemented: false,
	},
	{
		Code:         "energy_arbitrage",
		Name:         "Energy Arbitrage",
		ISO:          string(types.ISOPJM),
		Description:  "Buy low / sell high using LMP spreads and round-trip efficiency.",
		Implemented:  true,
		CalculatorID: CalculatorEnergyArbitrage,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISOCAISO),
		Description: "Regulation Up/Down via CAISO AS markets.",
		Implemented: false,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISONYISO),
		Description: "Regulation Service via NYISO AS markets.",
		Implemented: false,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISONewEngland),
		Description: "ISO-NE regulation reserves.",
		Implemented: false,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISOMISO),
		Description: "MISO regulation reserves.",
		Implemented: false,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISOSPP),
		Description: "SPP regulation reserves.",
		Implemented: false,
	},
	{
		Code:        "regulation",
		Name:        "Regulation",
		ISO:         string(types.ISOERCOT),
		Description: "ERCOT Reg-Up / Reg-Down.",
		Implemented: false,
	},
}

// All returns the full registry
func All() []model.MarketProgram {
	out := make([]model.MarketProgram, len(programs))
	copy(out, programs)
	return out
}

// ProgramsForISO returns the programs of one ISO/RTO, case-insensitively
func ProgramsForISO(iso string) []model.MarketProgram {
	key := strings.ToUpper(strings.TrimSpace(iso))
	var out []model.MarketProgram
	for _, p := range programs {
		if p.ISO == key {
			out = append(out, p)
		}
	}
	return out
}

// Lookup returns the program of one ISO with the given code
func Lookup(iso, code string) (model.MarketProgram, bool) {
	for _, p := range ProgramsForISO(iso) {
		if p.Code == code {
			return p, true
		}
	}
	return model.MarketProgram{}, false
}
