package openei_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/service/openei"
)

func TestGetByAddress(t *testing.T) {
	var gotPath, gotVersion, gotAddress string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotVersion = r.URL.Query().Get("version")
		gotAddress = r.URL.Query().Get("address")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"utility": "Jersey Central Power & Lt Co", "state": "NJ", "eiaid": 10000},
				{"utility": "Jersey Central Power & Lt Co", "state": "NJ", "eiaid": "10000"},
				{"utility_name": "Atlantic City Electric Co", "state": "NJ"}
			]
		}`))
	}))
	defer srv.Close()

	client := openei.New("test-key", openei.WithBaseURL(srv.URL))
	results := gt.R1(client.GetByAddress(context.Background(), "1 Dock Rd, Camden, NJ")).NoError(t)

	gt.Equal(t, gotPath, "/utility_rates")
	gt.Equal(t, gotVersion, "7")
	gt.Equal(t, gotAddress, "1 Dock Rd, Camden, NJ")

	// duplicates collapsed, name fallback honored
	gt.Array(t, results).Length(2)
	gt.Equal(t, results[0].UtilityName, "Jersey Central Power & Lt Co")
	gt.Equal(t, results[0].UtilityIDEIA, int64(10000))
	gt.Equal(t, results[1].UtilityName, "Atlantic City Electric Co")
	gt.Equal(t, results[1].UtilityIDEIA, int64(0))
}

func TestGetUtilityAliases(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"items": [
				{"name": "JCP&L", "eia_id": "10000"},
				{"name": "Jersey Central", "utility_id_eia": 10000}
			]
		}`))
	}))
	defer srv.Close()

	client := openei.New("test-key", openei.WithBaseURL(srv.URL))
	aliases := gt.R1(client.GetUtilityAliases(context.Background(), "Jersey Central")).NoError(t)

	gt.Array(t, aliases).Length(2)
	gt.Equal(t, aliases[0].EIAID, int64(10000))
	gt.Equal(t, aliases[1].EIAID, int64(10000))
}

func TestNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	client := openei.New("test-key", openei.WithBaseURL(srv.URL))
	_, err := client.GetByAddress(context.Background(), "nowhere")
	gt.Error(t, err)
}
