package model

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// LoadRow is one interval of kW readings, one value per series column
type LoadRow struct {
	Start  time.Time `json:"start"`
	Values []float64 `json:"values"`
}

// LoadSeries is the interval load table for a project. Columns are meter IDs
// for per-meter projects, or the single "aggregate_kw" column otherwise.
type LoadSeries struct {
	Columns []string  `json:"columns"`
	Rows    []LoadRow `json:"rows"`
}

// AggregateColumn is the column name used when load is entered site-wide
const AggregateColumn = "aggregate_kw"

// timestampColumn heads the CSV index column, matching the saved load files
const timestampColumn = "interval_start"

// NewLoadSeries creates an empty series with the columns implied by the meters.
func NewLoadSeries(perMeter bool, meterIDs []string) *LoadSeries {
	if perMeter && len(meterIDs) > 0 {
		cols := make([]string, len(meterIDs))
		copy(cols, meterIDs)
		return &LoadSeries{Columns: cols}
	}
	return &LoadSeries{Columns: []string{AggregateColumn}}
}

// WriteCSV renders the series with an interval_start index column.
func (x *LoadSeries) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := append([]string{timestampColumn}, x.Columns...)
	if err := cw.Write(header); err != nil {
		return goerr.Wrap(err, "failed to write load CSV header")
	}

	record := make([]string, len(x.Columns)+1)
	for _, row := range x.Rows {
		record[0] = row.Start.Format(time.RFC3339)
		for i := range x.Columns {
			v := 0.0
			if i < len(row.Values) {
				v = row.Values[i]
			}
			record[i+1] = strconv.FormatFloat(v, 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return goerr.Wrap(err, "failed to write load CSV row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return goerr.Wrap(err, "failed to flush load CSV")
	}
	return nil
}

// ReadLoadCSV parses a series previously written by WriteCSV.
func ReadLoadCSV(r io.Reader) (*LoadSeries, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse load CSV")
	}
	if len(records) == 0 {
		return nil, goerr.New("load CSV has no header row")
	}

	header := records[0]
	if len(header) < 2 || header[0] != timestampColumn {
		return nil, goerr.New("unexpected load CSV header", goerr.V("header", header))
	}

	series := &LoadSeries{Columns: header[1:]}
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, goerr.New("load CSV row width mismatch",
				goerr.V("row", i+1), goerr.V("want", len(header)), goerr.V("got", len(record)))
		}
		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			return nil, goerr.Wrap(err, "invalid load CSV timestamp", goerr.V("row", i+1))
		}
		values := make([]float64, len(record)-1)
		for j, cell := range record[1:] {
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, goerr.Wrap(err, "invalid load CSV value",
					goerr.V("row", i+1), goerr.V("column", header[j+1]))
			}
			values[j] = v
		}
		series.Rows = append(series.Rows, LoadRow{Start: ts, Values: values})
	}

	return series, nil
}
