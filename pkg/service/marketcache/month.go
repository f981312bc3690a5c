package marketcache

import "time"

// YearMonth identifies one calendar month of cached market data
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthBounds returns the month start and its exclusive upper bound.
func MonthBounds(y, m int) (time.Time, time.Time) {
	start := time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// MonthsInWindow yields each month whose start lies in [start, end).
// The end month itself is excluded because end is exclusive.
func MonthsInWindow(start, end time.Time) []YearMonth {
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	stop := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)

	var months []YearMonth
	for cur.Before(stop) {
		months = append(months, YearMonth{Year: cur.Year(), Month: int(cur.Month())})
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// Rolling12FullMonths returns the window of the 12 full months before the
// month containing asof. asof in Jan-2024 yields Jan-2023 to Jan-2024
// (exclusive end).
func Rolling12FullMonths(asof time.Time) (time.Time, time.Time) {
	end := time.Date(asof.Year(), asof.Month(), 1, 0, 0, 0, 0, time.UTC)
	return end.AddDate(-1, 0, 0), end
}
