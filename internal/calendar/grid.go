package calendar

import (
	"fmt"
	"time"
)

// GridSize is the number of cells in a month grid: 6 weeks of 7 days.
const GridSize = 42

// YearMonth identifies a displayed month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// NewYearMonth normalizes month overflow the way time.Date does
// (month 13 of 2024 is January 2025).
func NewYearMonth(year int, month time.Month) YearMonth {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// Start is the first day of the month.
func (ym YearMonth) Start() Date {
	return Date{Year: ym.Year, Month: ym.Month, Day: 1}
}

// Days returns the number of days in the month.
func (ym YearMonth) Days() int {
	return time.Date(ym.Year, ym.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (ym YearMonth) Prev() YearMonth {
	if ym.Month == time.January {
		return YearMonth{Year: ym.Year - 1, Month: time.December}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month - 1}
}

func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

func (ym YearMonth) Compare(o YearMonth) int {
	return ym.Start().Compare(o.Start())
}

func (ym YearMonth) Before(o YearMonth) bool { return ym.Compare(o) < 0 }
func (ym YearMonth) After(o YearMonth) bool  { return ym.Compare(o) > 0 }

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// Cell is one day of a month grid.
type Cell struct {
	Date           Date `json:"date"`
	InCurrentMonth bool `json:"in_current_month"`
}

// Grid is a Sunday-first 6x7 month view.
type Grid [GridSize]Cell

// BuildMonth lays out the grid for (year, month). The first cell is the
// Sunday on or before the 1st; the remaining cells are consecutive days, so
// leading and trailing cells spill into the neighbouring months.
func BuildMonth(year int, month time.Month) Grid {
	ym := NewYearMonth(year, month)
	first := ym.Start().Time(time.UTC)
	start := first.AddDate(0, 0, -int(first.Weekday()))

	var g Grid
	for i := range g {
		d, _ := FromTime(start.AddDate(0, 0, i))
		g[i] = Cell{
			Date:           d,
			InCurrentMonth: d.Year == ym.Year && d.Month == ym.Month,
		}
	}
	return g
}

// Weeks splits the grid into its 6 rows.
func (g Grid) Weeks() [6][7]Cell {
	var out [6][7]Cell
	for i, c := range g {
		out[i/7][i%7] = c
	}
	return out
}
