package locator_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/parquet-go/parquet-go"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	"github.com/gridmetrics-lab/derrev/pkg/domain/types"
	"github.com/gridmetrics-lab/derrev/pkg/service/locator"
	"github.com/gridmetrics-lab/derrev/pkg/service/openei"
	"github.com/gridmetrics-lab/derrev/pkg/service/pudl"
)

func openeiStub(t *testing.T, rateBody, aliasBody string) *openei.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "utility_rates") {
			_, _ = w.Write([]byte(rateBody))
			return
		}
		_, _ = w.Write([]byte(aliasBody))
	}))
	t.Cleanup(srv.Close)
	return openei.New("test-key", openei.WithBaseURL(srv.URL))
}

func writePUDLTables(t *testing.T, dir string) *pudl.Store {
	t.Helper()

	baRows := []pudl.BalancingAuthorityRow{
		{
			UtilityIDEIA:              10000,
			BalancingAuthorityIDEIA:   14725,
			BalancingAuthorityNameEIA: "PJM Interconnection, LLC",
			State:                     "NJ",
			ReportDate:                time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			UtilityIDEIA:              10000,
			BalancingAuthorityIDEIA:   14725,
			BalancingAuthorityNameEIA: "PJM Interconnection, LLC",
			State:                     "NJ",
			ReportDate:                time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	gt.NoError(t, parquet.WriteFile(
		filepath.Join(dir, pudl.TableBalancingAuthority+".parquet"), baRows))

	rtoRows := []pudl.RTORow{
		{UtilityIDEIA: 10000, RTO: "PJM", ReportDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	gt.NoError(t, parquet.WriteFile(
		filepath.Join(dir, pudl.TableUtilityRTO+".parquet"), rtoRows))

	miscRows := []pudl.MiscRow{
		{UtilityIDEIA: 10000, NERCRegion: "RFC", State: "NJ", ReportDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	gt.NoError(t, parquet.WriteFile(
		filepath.Join(dir, pudl.TableUtilityMisc+".parquet"), miscRows))

	return pudl.New(dir)
}

func TestInferFromAddressPUDL(t *testing.T) {
	oe := openeiStub(t,
		`{"items": [{"utility": "Jersey Central Power & Lt Co", "state": "NJ", "eiaid": 10000}]}`,
		`{"items": []}`)
	store := writePUDLTables(t, t.TempDir())

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "1 Dock Rd, Camden, NJ", 0)).NoError(t)

	gt.Equal(t, loc.Method, model.LocatorMethodPUDL)
	gt.Equal(t, loc.UtilityIDEIA, int64(10000))
	gt.Equal(t, loc.BalancingAuthorityIDEIA, int64(14725))
	gt.Equal(t, loc.ISORTO, types.ISOPJM)
	gt.Equal(t, loc.State, "NJ")
	gt.True(t, loc.IsPUDLBased())

	// one trace row per table consulted, latest vintage only
	gt.Array(t, loc.Trace).Length(3)
	gt.Equal(t, loc.Trace[0].Table, pudl.TableBalancingAuthority)
	gt.Equal(t, loc.Trace[0].Detail, "PJM Interconnection, LLC")
	gt.Equal(t, loc.Trace[0].ReportDate.Year(), 2023)
	gt.Equal(t, loc.Trace[1].Table, pudl.TableUtilityRTO)
	gt.Equal(t, loc.Trace[1].Detail, "PJM")
	gt.Equal(t, loc.Trace[2].Table, pudl.TableUtilityMisc)
}

func TestInferFromAddressFallbacksCarryNoTrace(t *testing.T) {
	oe := openeiStub(t, `{"items": []}`, `{"items": []}`)
	store := pudl.New(t.TempDir())

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "100 Congress Ave, Austin, TX", 0)).NoError(t)

	gt.Array(t, loc.Trace).Length(0)
}

func TestInferFromAddressAliasFallback(t *testing.T) {
	// rate lookup finds the utility name but no EIA ID; alias search fills it
	oe := openeiStub(t,
		`{"items": [{"utility": "Jersey Central Power & Lt Co", "state": "NJ"}]}`,
		`{"items": [{"name": "Jersey Central Power & Lt Co", "eia_id": "10000"}]}`)
	store := writePUDLTables(t, t.TempDir())

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "1 Dock Rd, Camden, NJ", 0)).NoError(t)

	gt.Equal(t, loc.Method, model.LocatorMethodPUDL)
	gt.Equal(t, loc.UtilityIDEIA, int64(10000))
}

func TestInferFromAddressOpenEIOnly(t *testing.T) {
	// utility matched but PUDL has no row for it
	oe := openeiStub(t,
		`{"items": [{"utility": "Some Rural Coop", "state": "NJ", "eiaid": 99999}]}`,
		`{"items": []}`)
	store := writePUDLTables(t, t.TempDir())

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "1 Dock Rd, Camden, NJ", 0)).NoError(t)

	gt.Equal(t, loc.Method, model.LocatorMethodOpenEIOnly)
	gt.Equal(t, loc.ISORTO, types.ISOPJM) // via state heuristic
}

func TestInferFromAddressStateHeuristic(t *testing.T) {
	oe := openeiStub(t, `{"items": []}`, `{"items": []}`)
	store := pudl.New(t.TempDir()) // no tables

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "100 Congress Ave, Austin, TX", 0)).NoError(t)

	gt.Equal(t, loc.Method, model.LocatorMethodStateHeuristic)
	gt.Equal(t, loc.ISORTO, types.ISOERCOT)
	gt.Equal(t, loc.State, "TX")
}

func TestInferFromAddressUnknown(t *testing.T) {
	oe := openeiStub(t, `{"items": []}`, `{"items": []}`)
	store := pudl.New(t.TempDir())

	loc := gt.R1(locator.New(oe, store).InferFromAddress(
		context.Background(), "1234 Somewhere Lane", 0)).NoError(t)

	gt.Equal(t, loc.Method, model.LocatorMethodUnknown)
	gt.Equal(t, loc.ISORTO, types.ISO(""))
}

func TestRequirePUDL(t *testing.T) {
	oe := openeiStub(t, `{"items": []}`, `{"items": []}`)
	store := pudl.New(t.TempDir())

	_, err := locator.New(oe, store, locator.WithRequirePUDL()).InferFromAddress(
		context.Background(), "1 Dock Rd, Camden, NJ", 0)
	gt.Error(t, err).Is(locator.ErrPUDLRequired)
}
