package calendar

import (
	"fmt"
	"time"
)

// GridSize is the number of cells in a month grid: six Monday-first weeks.
const GridSize = 42

const isoLayout = "2006-01-02"

// Cell is one slot of the month grid.
type Cell struct {
	Date    time.Time
	ISO     string
	InMonth bool
	IsToday bool
}

// ISODate formats t as YYYY-MM-DD in t's own location.
func ISODate(t time.Time) string {
	return t.Format(isoLayout)
}

// ParseISODate parses a YYYY-MM-DD string as midnight in loc.
func ParseISODate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(isoLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse iso date %q: %w", s, err)
	}
	return t, nil
}

func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func EndOfMonth(t time.Time) time.Time {
	return StartOfMonth(t).AddDate(0, 1, -1)
}

// AddDays moves t by n calendar days, keeping the wall-clock time.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// MondayFirstDow remaps time.Weekday (Sunday=0) to Monday=0 .. Sunday=6.
func MondayFirstDow(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// BuildMonthGrid returns the 42 cells shown for cursor's month, starting
// from the Monday on or before the 1st. The cell count never depends on
// the month length.
func BuildMonthGrid(cursor, today time.Time) []Cell {
	first := StartOfMonth(cursor)
	start := AddDays(first, -MondayFirstDow(first))

	cells := make([]Cell, GridSize)
	for i := range cells {
		d := AddDays(start, i)
		cells[i] = Cell{
			Date:    d,
			ISO:     ISODate(d),
			InMonth: d.Month() == first.Month() && d.Year() == first.Year(),
			IsToday: SameDay(d, today),
		}
	}
	return cells
}

// VisibleDays lists the ISO dates of cells in grid order.
func VisibleDays(cells []Cell) []string {
	days := make([]string, len(cells))
	for i, c := range cells {
		days[i] = c.ISO
	}
	return days
}

// Bounds returns the first and last ISO date of the grid, or empty strings
// for an empty grid.
func Bounds(cells []Cell) (first, last string) {
	if len(cells) == 0 {
		return "", ""
	}
	return cells[0].ISO, cells[len(cells)-1].ISO
}
