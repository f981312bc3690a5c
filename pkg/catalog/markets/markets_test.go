package markets_test

import (
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/catalog/markets"
)

func TestProgramsForISO(t *testing.T) {
	pjm := markets.ProgramsForISO("pjm")
	gt.Array(t, pjm).Length(4)
	for _, p := range pjm {
		gt.Equal(t, p.ISO, "PJM")
	}

	gt.Array(t, markets.ProgramsForISO("ERCOT")).Length(1)
	gt.Array(t, markets.ProgramsForISO("ACME")).Length(0)
}

func TestLookup(t *testing.T) {
	reg, ok := markets.Lookup("PJM", "regulation")
	gt.True(t, ok)
	gt.True(t, reg.Implemented)
	gt.Equal(t, reg.CalculatorID, markets.CalculatorRegulation)

	cap, ok := markets.Lookup("PJM", "capacity_rpm")
	gt.True(t, ok)
	gt.False(t, cap.Implemented)
	gt.Equal(t, cap.CalculatorID, "")

	_, ok = markets.Lookup("CAISO", "energy_arbitrage")
	gt.False(t, ok)
}

func TestAllIsACopy(t *testing.T) {
	all := markets.All()
	gt.Array(t, all).Length(10)
	all[0].Name = "mutated"
	gt.Equal(t, markets.All()[0].Name, "Regulation (RegD/RegA)")
}
