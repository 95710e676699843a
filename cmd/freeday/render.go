package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dukerupert/freeday/internal/availability"
	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/dukerupert/freeday/internal/remotesync"
)

const cellWidth = 9

var weekdays = []string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

// render prints the month grid. Each shown person gets a letter; a cell
// lists the letters of the shown people unavailable that day. Days outside
// the month are in parentheses and today is starred.
func render(w io.Writer, s remotesync.State, now time.Time) {
	cells := calendar.BuildMonthGrid(s.Cursor, now)
	rows := s.Rows()

	fmt.Fprintf(w, "%s\n", s.Cursor.Format("January 2006"))
	for _, d := range weekdays {
		fmt.Fprintf(w, "%-*s", cellWidth, d)
	}
	fmt.Fprintln(w)

	for week := 0; week < calendar.GridSize/7; week++ {
		var line strings.Builder
		for _, cell := range cells[week*7 : week*7+7] {
			fmt.Fprintf(&line, "%-*s", cellWidth, cellText(cell, s.Availability, rows))
		}
		fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
	}

	fmt.Fprintln(w)
	if len(rows) == 0 {
		fmt.Fprintln(w, "Nobody shown.")
	}
	for i, p := range rows {
		marker := " "
		if p.ID == s.CurrentUserID {
			marker = ">"
		}
		fmt.Fprintf(w, "%s %s  %s\n", marker, letter(i), p.Name)
	}
	fmt.Fprintf(w, "show: %s\n", s.ShowMode)
}

func cellText(cell calendar.Cell, a availability.Availability, rows []model.Person) string {
	day := fmt.Sprintf("%d", cell.Date.Day())
	if !cell.InMonth {
		day = "(" + day + ")"
	}
	if cell.IsToday {
		day += "*"
	}

	var marks strings.Builder
	for i, p := range rows {
		if availability.GetStatus(a, p.ID, cell.ISO) == availability.StatusUnavailable {
			marks.WriteString(letter(i))
		}
	}
	if marks.Len() == 0 {
		return day
	}
	return day + " " + marks.String()
}

// letter labels the i-th shown person: A..Z, then a..z, then '+'.
func letter(i int) string {
	switch {
	case i < 26:
		return string(rune('A' + i))
	case i < 52:
		return string(rune('a' + i - 26))
	default:
		return "+"
	}
}
