package garagem

import (
	"testing"
	"time"
)

func TestDaysUntilDue(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	tests := []struct {
		name string
		now  time.Time
		due  time.Time
		loc  *time.Location
		want int
	}{
		{
			name: "three days out",
			now:  time.Date(2025, 6, 7, 9, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: 3,
		},
		{
			name: "same day late evening due",
			now:  time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 6, 10, 23, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: 0,
		},
		{
			name: "same day early morning due",
			now:  time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: 0,
		},
		{
			name: "past due",
			now:  time.Date(2025, 6, 7, 12, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: -2,
		},
		{
			name: "now read in user location",
			// 01:00 UTC on the 8th is still the 7th in Sao Paulo.
			now:  time.Date(2025, 6, 8, 1, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 6, 10, 0, 0, 0, 0, saoPaulo),
			loc:  saoPaulo,
			want: 3,
		},
		{
			name: "across month boundary",
			now:  time.Date(2025, 1, 30, 12, 0, 0, 0, time.UTC),
			due:  time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC),
			loc:  time.UTC,
			want: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DaysUntilDue(tt.now, tt.due, tt.loc)
			if got != tt.want {
				t.Errorf("DaysUntilDue() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDaysBetween_DSTTransition(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	// Clocks jump forward on 2025-03-09 in New York.
	now := time.Date(2025, 3, 7, 23, 30, 0, 0, ny)
	due := time.Date(2025, 3, 10, 0, 0, 0, 0, ny)
	if got := DaysUntilDue(now, due, ny); got != 3 {
		t.Errorf("DaysUntilDue() across DST = %d, want 3", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-10")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d != (Date{Year: 2025, Month: time.June, Day: 10}) {
		t.Errorf("ParseDate() = %v", d)
	}
	if d.String() != "2025-06-10" {
		t.Errorf("String() = %q, want %q", d.String(), "2025-06-10")
	}

	if _, err := ParseDate("10/06/2025"); err == nil {
		t.Error("ParseDate() expected error for non-ISO input")
	}
}

func TestDate_AddDays(t *testing.T) {
	d := Date{Year: 2024, Month: time.February, Day: 28}
	if got := d.AddDays(1); got != (Date{Year: 2024, Month: time.February, Day: 29}) {
		t.Errorf("AddDays(1) = %v", got)
	}
	if got := d.AddDays(2); got != (Date{Year: 2024, Month: time.March, Day: 1}) {
		t.Errorf("AddDays(2) = %v", got)
	}
	if !d.Before(d.AddDays(1)) {
		t.Error("Before() = false, want true")
	}
}

func TestMonthRange(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{in: "2025-06-07", first: "2025-06-01", last: "2025-06-30"},
		{in: "2024-02-29", first: "2024-02-01", last: "2024-02-29"},
		{in: "2025-12-31", first: "2025-12-01", last: "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDate(tt.in)
			if err != nil {
				t.Fatalf("ParseDate() error = %v", err)
			}
			first, last := MonthRange(d)
			if first.String() != tt.first || last.String() != tt.last {
				t.Errorf("MonthRange(%s) = %s..%s, want %s..%s", tt.in, first, last, tt.first, tt.last)
			}
		})
	}
}
