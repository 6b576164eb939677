package garagem

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return DaysBetween(d, other) > 0
}

// AddDays returns the date n days after d.
func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

// DaysBetween returns the number of whole calendar days from "from" to "to".
// Both dates are placed at UTC midnight so DST changes never shift the result.
func DaysBetween(from, to Date) int {
	diff := to.In(time.UTC).Sub(from.In(time.UTC))
	return int(diff.Hours() / 24)
}

// DaysUntilDue returns how many calendar days separate today (now seen in
// loc) from the calendar day of due. due is read in its own location, so a
// due date stored at any time of day counts as that day.
func DaysUntilDue(now, due time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.Local
	}
	return DaysBetween(DateOf(now.In(loc)), DateOf(due))
}

// MonthRange returns the first and last day of d's month.
func MonthRange(d Date) (first, last Date) {
	first = Date{Year: d.Year, Month: d.Month, Day: 1}
	last = DateOf(first.In(time.UTC).AddDate(0, 1, -1))
	return first, last
}
