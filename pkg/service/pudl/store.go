package pudl

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/gridmetrics-lab/derrev/pkg/utils/safe"
)

// defaultBaseURL is the PUDL nightly S3 bucket serving full-table parquets
const defaultBaseURL = "https://s3.us-west-2.amazonaws.com/pudl.catalyst.coop/nightly"

// EIA-861 tables required for ISO/BA and demand response inference
const (
	TableUtilityMisc        = "core_eia861__yearly_utility_data_misc"
	TableBalancingAuthority = "core_eia861__assn_balancing_authority"
	TableUtilityRTO         = "core_eia861__yearly_utility_data_rto"
	TableDemandResponse     = "core_eia861__yearly_demand_response"
)

// RequiredTables lists every table the locator and DR estimator consume
var RequiredTables = []string{
	TableUtilityMisc,
	TableBalancingAuthority,
	TableUtilityRTO,
	TableDemandResponse,
}

// FetchReport is the outcome of ensuring one table
type FetchReport struct {
	Name   string `json:"name"`
	Dest   string `json:"dest"`
	URL    string `json:"url"`
	Status string `json:"status"`
	Bytes  int64  `json:"bytes,omitempty"`
}

// Store manages local copies of the PUDL EIA-861 parquet tables
type Store struct {
	dir        string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Store)

func WithBaseURL(baseURL string) Option {
	return func(s *Store) {
		s.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *Store) {
		s.httpClient = httpClient
	}
}

// New creates a store rooted at dir. The download base defaults to the PUDL
// nightly bucket and can be overridden via PUDL_PARQUET_BASE.
func New(dir string, opts ...Option) *Store {
	baseURL := defaultBaseURL
	if v := os.Getenv("PUDL_PARQUET_BASE"); v != "" {
		baseURL = v
	}

	s := &Store{
		dir:        dir,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tablePath(name string) string {
	return filepath.Join(s.dir, name+".parquet")
}

func (s *Store) tableURL(name string) string {
	return s.baseURL + "/" + name + ".parquet"
}

func fileUsable(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Size() > 0
}

// Available reports whether every named table (all required tables when none
// given) exists locally with non-zero size.
func (s *Store) Available(names ...string) bool {
	if len(names) == 0 {
		names = RequiredTables
	}
	for _, name := range names {
		if !fileUsable(s.tablePath(name)) {
			return false
		}
	}
	return true
}

// Dir returns the local table directory
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) download(ctx context.Context, name string) (FetchReport, error) {
	dest := s.tablePath(name)
	url := s.tableURL(name)
	report := FetchReport{Name: name, Dest: dest, URL: url}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return report, goerr.Wrap(err, "failed to create PUDL directory", goerr.V("dir", s.dir))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return report, goerr.Wrap(err, "failed to build PUDL request", goerr.V("url", url))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return report, goerr.Wrap(err, "failed to download PUDL table", goerr.V("url", url))
	}
	defer safe.Close(ctx, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return report, goerr.New("PUDL bucket returned non-200",
			goerr.V("url", url), goerr.V("status", resp.StatusCode))
	}

	f, err := os.Create(dest)
	if err != nil {
		return report, goerr.Wrap(err, "failed to create PUDL table file", goerr.V("dest", dest))
	}
	defer safe.Close(ctx, f)

	n, err := f.ReadFrom(resp.Body)
	if err != nil {
		return report, goerr.Wrap(err, "failed to write PUDL table file", goerr.V("dest", dest))
	}

	report.Status = "downloaded"
	report.Bytes = n
	return report, nil
}

// EnsureTables downloads missing tables (all required tables when only is
// empty). With force, tables are re-downloaded even if present. A failed
// download is reported per table rather than aborting the rest.
func (s *Store) EnsureTables(ctx context.Context, force bool, only []string) []FetchReport {
	names := only
	if len(names) == 0 {
		names = RequiredTables
	}

	reports := make([]FetchReport, 0, len(names))
	for _, name := range names {
		dest := s.tablePath(name)
		if !force && fileUsable(dest) {
			st, _ := os.Stat(dest)
			reports = append(reports, FetchReport{
				Name: name, Dest: dest, URL: s.tableURL(name),
				Status: "exists", Bytes: st.Size(),
			})
			continue
		}

		report, err := s.download(ctx, name)
		if err != nil {
			report.Status = fmt.Sprintf("error: %v", err)
		}
		reports = append(reports, report)
	}
	return reports
}
