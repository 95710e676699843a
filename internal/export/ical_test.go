package export

import (
	"bytes"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/dukerupert/freeday/internal/model"
	"github.com/emersion/go-ical"
)

func row(day string, available bool) model.AvailabilityRow {
	return model.AvailabilityRow{PersonID: "p1", Day: day, Available: available}
}

func TestUnavailableSpans(t *testing.T) {
	rows := []model.AvailabilityRow{
		row("2026-02-01", false),
		row("2026-02-02", false),
		row("2026-02-03", true),
		row("2026-02-04", false),
		row("not-a-day", false),
		row("2026-02-28", false),
		row("2026-03-01", false),
	}

	spans := UnavailableSpans(rows)
	want := [][2]string{
		{"2026-02-01", "2026-02-02"},
		{"2026-02-04", "2026-02-04"},
		{"2026-02-28", "2026-03-01"},
	}
	if len(spans) != len(want) {
		t.Fatalf("spans = %d, want %d: %+v", len(spans), len(want), spans)
	}
	for i, s := range spans {
		if got := [2]string{s.Start.Format("2006-01-02"), s.End.Format("2006-01-02")}; got != want[i] {
			t.Errorf("span %d = %v, want %v", i, got, want[i])
		}
	}
}

func TestUnavailableCalendarRoundTrip(t *testing.T) {
	person := model.Person{ID: "p1", Name: "Alice"}
	rows := []model.AvailabilityRow{
		row("2026-02-01", false),
		row("2026-02-02", false),
		row("2026-02-10", false),
	}
	now := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := WriteICS(&buf, UnavailableCalendar(person, rows, now)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "DTSTART;VALUE=DATE:20260201") {
		t.Errorf("missing all-day start:\n%s", out)
	}
	if !strings.Contains(out, "DTEND;VALUE=DATE:20260203") {
		t.Errorf("DTEND should be exclusive:\n%s", out)
	}

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	summary, err := events[0].Props.Text(ical.PropSummary)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary != "Alice unavailable" {
		t.Errorf("summary = %q", summary)
	}
	uid, _ := events[1].Props.Text(ical.PropUID)
	if uid != "p1-2026-02-10@freeday" {
		t.Errorf("uid = %q", uid)
	}
}

func TestWriteICSWithoutEvents(t *testing.T) {
	person := model.Person{ID: "p1", Name: "Alice"}
	now := time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	if err := WriteICS(&buf, UnavailableCalendar(person, []model.AvailabilityRow{row("2026-02-01", true)}, now)); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n") || !strings.HasSuffix(out, "END:VCALENDAR\r\n") {
		t.Errorf("not a calendar:\n%s", out)
	}
	if strings.Contains(out, "VEVENT") {
		t.Errorf("unexpected event:\n%s", out)
	}
	for _, want := range []string{"VERSION:2.0\r\n", "PRODID:" + productID + "\r\n", "Alice (unavailable)"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}
}

func TestWriteICSWithoutEventsFoldsLongLines(t *testing.T) {
	person := model.Person{ID: "p1", Name: strings.Repeat("Zoë, ", 20)}

	var buf bytes.Buffer
	if err := WriteICS(&buf, UnavailableCalendar(person, nil, time.Now())); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `Zoë\,`) {
		t.Errorf("comma not escaped:\n%s", out)
	}
	for _, line := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line of %d octets: %q", len(line), line)
		}
	}
	if !strings.Contains(out, "\r\n ") {
		t.Errorf("expected a folded line:\n%s", out)
	}
}

func TestFoldLine(t *testing.T) {
	if got := foldLine("SUMMARY:short"); got != "SUMMARY:short\r\n" {
		t.Errorf("short line = %q", got)
	}

	long := "X:" + strings.Repeat("é", 80)
	folded := foldLine(long)
	if unfolded := strings.ReplaceAll(strings.TrimSuffix(folded, "\r\n"), "\r\n ", ""); unfolded != long {
		t.Errorf("unfold mismatch: %q", unfolded)
	}
	for _, line := range strings.Split(strings.TrimSuffix(folded, "\r\n"), "\r\n") {
		if len(line) > 75 {
			t.Errorf("line of %d octets", len(line))
		}
		if !utf8.ValidString(strings.TrimPrefix(line, " ")) {
			t.Errorf("rune split in %q", line)
		}
	}
}
