// Package dsire maintains a local SQLite catalog of DSIRE incentive
// programs and their extracted parameters.
package dsire

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
	dsireclient "github.com/gridmetrics-lab/derrev/pkg/service/dsire"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS programs (
  program_id TEXT PRIMARY KEY,
  state TEXT,
  program_name TEXT,
  administrator TEXT,
  type TEXT,
  category TEXT,
  website_url TEXT,
  status TEXT,
  last_update TEXT,
  technologies TEXT,
  sectors TEXT,
  utilities TEXT,
  raw_json TEXT,
  source_tag TEXT,
  updated_ts DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS parameters (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  program_id TEXT,
  tech TEXT,
  sector TEXT,
  source TEXT,
  qualifier TEXT,
  amount REAL,
  units TEXT,
  raw_label TEXT,
  raw_value TEXT,
  FOREIGN KEY(program_id) REFERENCES programs(program_id)
);

CREATE INDEX IF NOT EXISTS idx_programs_state ON programs(state);
CREATE INDEX IF NOT EXISTS idx_programs_type ON programs(type);
CREATE INDEX IF NOT EXISTS idx_parameters_program_id ON parameters(program_id);
`

// Catalog is the SQLite-backed program catalog
type Catalog struct {
	db   *sql.DB
	path string
}

// Open opens or creates the catalog database at the given path
func Open(dbPath string) (*Catalog, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create catalog directory", goerr.V("path", dbPath))
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open catalog database", goerr.V("path", dbPath))
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, goerr.Wrap(err, "failed to create catalog schema")
	}

	return &Catalog{db: db, path: dbPath}, nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) Path() string {
	return c.path
}

// UpsertStats summarizes one ingest run
type UpsertStats struct {
	ProgramsUpserted   int `json:"programs_upserted"`
	ParametersInserted int `json:"parameters_inserted"`
}

const upsertProgramSQL = `
INSERT INTO programs
  (program_id,state,program_name,administrator,type,category,website_url,status,last_update,
   technologies,sectors,utilities,raw_json,source_tag)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(program_id) DO UPDATE SET
  state=excluded.state,
  program_name=excluded.program_name,
  administrator=excluded.administrator,
  type=excluded.type,
  category=excluded.category,
  website_url=excluded.website_url,
  status=excluded.status,
  last_update=excluded.last_update,
  technologies=excluded.technologies,
  sectors=excluded.sectors,
  utilities=excluded.utilities,
  raw_json=excluded.raw_json,
  source_tag=excluded.source_tag,
  updated_ts=CURRENT_TIMESTAMP;
`

// UpsertRecords dedupes and normalizes raw records, upserts programs on
// program_id, and replaces the parameter rows of every touched program.
func (c *Catalog) UpsertRecords(ctx context.Context, records []dsireclient.Record, sourceTag string) (*UpsertStats, error) {
	records = dsireclient.DedupeByProgramID(records)
	if len(records) == 0 {
		return &UpsertStats{}, nil
	}
	programs := dsireclient.NormalizePrograms(records)
	parameters := dsireclient.AllParameters(records)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin catalog transaction")
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range programs {
		_, err := tx.ExecContext(ctx, upsertProgramSQL,
			p.ProgramID, p.State, p.Name, p.Administrator, p.Type, p.Category,
			p.WebsiteURL, p.Status, p.LastUpdate, p.Technologies, p.Sectors,
			p.Utilities, p.RawJSON, sourceTag,
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to upsert program", goerr.V("program_id", p.ProgramID))
		}
	}

	touched := map[string]struct{}{}
	for _, p := range parameters {
		touched[p.ProgramID] = struct{}{}
	}
	for pid := range touched {
		if _, err := tx.ExecContext(ctx, "DELETE FROM parameters WHERE program_id = ?;", pid); err != nil {
			return nil, goerr.Wrap(err, "failed to clear parameters", goerr.V("program_id", pid))
		}
	}

	for _, p := range parameters {
		// SQLite has no NaN; unparseable amounts become NULL
		var amount any
		if !math.IsNaN(p.Amount) {
			amount = p.Amount
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO parameters (program_id,tech,sector,source,qualifier,amount,units,raw_label,raw_value)
			VALUES (?,?,?,?,?,?,?,?,?);`,
			p.ProgramID, nullable(p.Tech), nullable(p.Sector), nullable(p.Source),
			nullable(p.Qualifier), amount, nullable(p.Units), nullable(p.RawLabel), nullable(p.RawValue),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to insert parameter", goerr.V("program_id", p.ProgramID))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, goerr.Wrap(err, "failed to commit catalog transaction")
	}
	return &UpsertStats{
		ProgramsUpserted:   len(programs),
		ParametersInserted: len(parameters),
	}, nil
}

// Source fetches raw program records for a date window
type Source interface {
	GetProgramsByWindow(ctx context.Context, start, end time.Time) ([]dsireclient.Record, error)
}

// BuildFromAPI fetches the window from the API and ingests it. When tag is
// empty, the end date labels the run.
func (c *Catalog) BuildFromAPI(ctx context.Context, src Source, start, end time.Time, tag string) (*UpsertStats, error) {
	records, err := src.GetProgramsByWindow(ctx, start, end)
	if err != nil {
		return nil, err
	}
	if tag == "" {
		tag = end.Format("2006-01-02")
	}
	return c.UpsertRecords(ctx, records, tag)
}

const selectProgramSQL = `
SELECT program_id,state,program_name,administrator,type,category,website_url,status,last_update,
       technologies,sectors,utilities,raw_json,source_tag,updated_ts
FROM programs `

// ProgramsByState returns programs for a two-letter state code, ordered by
// name. Historical rows may carry full state names, so those match too.
func (c *Catalog) ProgramsByState(ctx context.Context, stateCode string) ([]model.Program, error) {
	code := dsireclient.NormalizeState(stateCode)
	if code == "" {
		code = stateCode
	}

	var rows *sql.Rows
	var err error
	if name := dsireclient.StateName(code); name != "" {
		rows, err = c.db.QueryContext(ctx,
			selectProgramSQL+"WHERE state = ? OR state = ? ORDER BY program_name;", code, name)
	} else {
		rows, err = c.db.QueryContext(ctx,
			selectProgramSQL+"WHERE state = ? ORDER BY program_name;", code)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query programs", goerr.V("state", stateCode))
	}
	defer func() { _ = rows.Close() }()

	var out []model.Program
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProgram(rows *sql.Rows) (model.Program, error) {
	var p model.Program
	var admin, ptype, category, url, status, lastUpdate sql.NullString
	var techs, sectors, utilities, rawJSON, sourceTag, updatedTS sql.NullString

	err := rows.Scan(&p.ProgramID, &p.State, &p.Name, &admin, &ptype, &category,
		&url, &status, &lastUpdate, &techs, &sectors, &utilities, &rawJSON, &sourceTag, &updatedTS)
	if err != nil {
		return p, goerr.Wrap(err, "failed to scan program row")
	}

	p.Administrator = admin.String
	p.Type = ptype.String
	p.Category = category.String
	p.WebsiteURL = url.String
	p.Status = status.String
	p.LastUpdate = lastUpdate.String
	p.Technologies = techs.String
	p.Sectors = sectors.String
	p.Utilities = utilities.String
	p.RawJSON = rawJSON.String
	p.SourceTag = sourceTag.String
	if updatedTS.Valid {
		p.UpdatedTS = parseTimestamp(updatedTS.String)
	}
	return p, nil
}

func parseTimestamp(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// ParametersForProgram returns the extracted parameter rows of one program
func (c *Catalog) ParametersForProgram(ctx context.Context, programID string) ([]model.ProgramParameter, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT program_id,tech,sector,source,qualifier,amount,units,raw_label,raw_value
		FROM parameters WHERE program_id = ?;`, programID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query parameters", goerr.V("program_id", programID))
	}
	defer func() { _ = rows.Close() }()

	var out []model.ProgramParameter
	for rows.Next() {
		var p model.ProgramParameter
		var tech, sector, source, qualifier, units, rawLabel, rawValue sql.NullString
		var amount sql.NullFloat64

		err := rows.Scan(&p.ProgramID, &tech, &sector, &source, &qualifier, &amount, &units, &rawLabel, &rawValue)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan parameter row")
		}
		p.Tech = tech.String
		p.Sector = sector.String
		p.Source = source.String
		p.Qualifier = qualifier.String
		p.Units = units.String
		p.RawLabel = rawLabel.String
		p.RawValue = rawValue.String
		if amount.Valid {
			p.Amount = amount.Float64
		} else {
			p.Amount = math.NaN()
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Stats summarizes catalog contents
type Stats struct {
	Programs   int    `json:"programs"`
	Parameters int    `json:"parameters"`
	States     int    `json:"states"`
	Path       string `json:"path"`
}

func (c *Catalog) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Path: c.path}
	for _, q := range []struct {
		sql string
		dst *int
	}{
		{"SELECT COUNT(*) FROM programs;", &stats.Programs},
		{"SELECT COUNT(*) FROM parameters;", &stats.Parameters},
		{"SELECT COUNT(DISTINCT state) FROM programs;", &stats.States},
	} {
		if err := c.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return nil, goerr.Wrap(err, "failed to query catalog stats")
		}
	}
	return stats, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
