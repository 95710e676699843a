// Package export renders availability as an iCalendar feed so a person's
// unavailable days can be subscribed to from any calendar app.
package export

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/freeday/internal/calendar"
	"github.com/dukerupert/freeday/internal/model"
	"github.com/emersion/go-ical"
)

const productID = "-//freeday//availability//EN"

// Span is a run of consecutive unavailable days, End inclusive.
type Span struct {
	Start time.Time
	End   time.Time
}

// UnavailableSpans merges a person's unavailable rows into runs of
// consecutive days. Rows must be sorted by day; available rows and rows with
// malformed days are skipped.
func UnavailableSpans(rows []model.AvailabilityRow) []Span {
	var spans []Span
	for _, r := range rows {
		if r.Available {
			continue
		}
		day, err := calendar.ParseISODate(r.Day, time.UTC)
		if err != nil {
			continue
		}
		if n := len(spans); n > 0 && calendar.SameDay(calendar.AddDays(spans[n-1].End, 1), day) {
			spans[n-1].End = day
			continue
		}
		spans = append(spans, Span{Start: day, End: day})
	}
	return spans
}

// UnavailableCalendar builds one all-day event per unavailable span.
func UnavailableCalendar(person model.Person, rows []model.AvailabilityRow, now time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)
	cal.Props.SetText("X-WR-CALNAME", person.Name+" (unavailable)")

	for _, span := range UnavailableSpans(rows) {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, fmt.Sprintf("%s-%s@freeday", person.ID, calendar.ISODate(span.Start)))
		event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
		event.Props.SetDate(ical.PropDateTimeStart, span.Start)
		// DTEND is exclusive for all-day events.
		event.Props.SetDate(ical.PropDateTimeEnd, calendar.AddDays(span.End, 1))
		event.Props.SetText(ical.PropSummary, person.Name+" unavailable")
		event.Props.SetText(ical.PropTransparency, "OPAQUE")
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

// WriteICS encodes cal to w. A calendar without events is still written as
// a valid VCALENDAR so that free people get an empty feed.
func WriteICS(w io.Writer, cal *ical.Calendar) error {
	if len(cal.Children) == 0 {
		if err := writeEmpty(w, cal); err != nil {
			return fmt.Errorf("encode ics: %w", err)
		}
		return nil
	}
	if err := ical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("encode ics: %w", err)
	}
	return nil
}

// maxLineOctets is the content line limit before folding.
const maxLineOctets = 75

// writeEmpty writes the calendar properties between BEGIN and END. The
// encoder rejects calendars with no components.
func writeEmpty(w io.Writer, cal *ical.Calendar) error {
	var b strings.Builder
	b.WriteString("BEGIN:" + ical.CompCalendar + "\r\n")

	names := make([]string, 0, len(cal.Props))
	for name := range cal.Props {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		for _, prop := range cal.Props[name] {
			b.WriteString(foldLine(name + encodeParams(prop.Params) + ":" + prop.Value))
		}
	}

	b.WriteString("END:" + ical.CompCalendar + "\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func encodeParams(params ical.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		values := make([]string, len(params[k]))
		for i, v := range params[k] {
			if strings.ContainsAny(v, ":;,") {
				v = `"` + v + `"`
			}
			values[i] = v
		}
		b.WriteString(";" + k + "=" + strings.Join(values, ","))
	}
	return b.String()
}

// foldLine splits line into CRLF-terminated chunks of at most 75 octets,
// continuation lines starting with a space. Runes are never split.
func foldLine(line string) string {
	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		b.WriteString(line[:cut] + "\r\n ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line + "\r\n")
	return b.String()
}
