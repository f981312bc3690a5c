package model_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/gridmetrics-lab/derrev/pkg/domain/model"
)

func TestNewLoadSeries(t *testing.T) {
	t.Run("aggregate", func(t *testing.T) {
		s := model.NewLoadSeries(false, nil)
		gt.Equal(t, s.Columns, []string{model.AggregateColumn})
	})

	t.Run("per meter", func(t *testing.T) {
		s := model.NewLoadSeries(true, []string{"m1", "m2"})
		gt.Equal(t, s.Columns, []string{"m1", "m2"})
	})
}

func TestLoadSeriesCSV(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := &model.LoadSeries{
		Columns: []string{"m1", "m2"},
		Rows: []model.LoadRow{
			{Start: base, Values: []float64{12.5, 3}},
			{Start: base.Add(15 * time.Minute), Values: []float64{13, 3.25}},
		},
	}

	var buf bytes.Buffer
	gt.NoError(t, s.WriteCSV(&buf))
	gt.True(t, strings.HasPrefix(buf.String(), "interval_start,m1,m2\n"))

	got := gt.R1(model.ReadLoadCSV(&buf)).NoError(t)
	gt.Equal(t, got.Columns, s.Columns)
	gt.Array(t, got.Rows).Length(2)
	gt.Equal(t, got.Rows[1].Values, []float64{13, 3.25})
	gt.True(t, got.Rows[0].Start.Equal(base))
}

func TestReadLoadCSVErrors(t *testing.T) {
	t.Run("wrong header", func(t *testing.T) {
		_, err := model.ReadLoadCSV(strings.NewReader("timestamp,kw\n"))
		gt.Error(t, err)
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := model.ReadLoadCSV(strings.NewReader("interval_start,m1\n2024-06-01T00:00:00Z,abc\n"))
		gt.Error(t, err)
	})

	t.Run("ragged row", func(t *testing.T) {
		_, err := model.ReadLoadCSV(strings.NewReader("interval_start,m1,m2\n2024-06-01T00:00:00Z,1\n"))
		gt.Error(t, err)
	})
}
