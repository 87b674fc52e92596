package domain

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used across the ledger.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// DateRange is an inclusive range of calendar dates. A zero bound is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

// NewDateRange builds a range and rejects inverted bounds.
func NewDateRange(from, to time.Time) (DateRange, error) {
	r := DateRange{}
	if !from.IsZero() {
		r.From = Day(from)
	}
	if !to.IsZero() {
		r.To = Day(to)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return DateRange{}, fmt.Errorf("%w: %s is after %s", ErrInvalidDateRange,
			r.From.Format(DateLayout), r.To.Format(DateLayout))
	}
	return r, nil
}

// Contains reports whether the calendar date of t lies in the range.
func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// Half is a six-month tax half of a calendar year.
type Half int

const (
	H1 Half = 1
	H2 Half = 2
)

// Period is a declaration period.
type Period struct {
	Start time.Time
	End   time.Time
	Label string
}

// HalfYear returns the half-year period for year and half.
func HalfYear(year int, half Half) Period {
	if half == H1 {
		return Period{
			Start: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC),
			Label: fmt.Sprintf("%d-H1", year),
		}
	}
	return Period{
		Start: time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC),
		Label: fmt.Sprintf("%d-H2", year),
	}
}

// PeriodFor returns the half-year containing date. June 30 is the last day
// of H1 and July 1 the first day of H2.
func PeriodFor(date time.Time) Period {
	if date.Month() <= time.June {
		return HalfYear(date.Year(), H1)
	}
	return HalfYear(date.Year(), H2)
}

// Contains reports whether date falls inside the period.
func (p Period) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Range converts the period into a date range.
func (p Period) Range() DateRange {
	return DateRange{From: p.Start, To: p.End}
}

// Next returns the following half-year.
func (p Period) Next() Period {
	return PeriodFor(p.End.AddDate(0, 0, 1))
}

// PeriodsBetween lists the half-years overlapping r in chronological order.
// Both bounds must be set.
func PeriodsBetween(r DateRange) []Period {
	if r.From.IsZero() || r.To.IsZero() {
		return nil
	}
	var out []Period
	for p := PeriodFor(r.From); !p.Start.After(r.To); p = p.Next() {
		out = append(out, p)
	}
	return out
}

// Clip narrows p to r. A half-year that r covers entirely is returned as
// is; a partial one is labelled by its own bounds.
func (p Period) Clip(r DateRange) Period {
	out := p
	if !r.From.IsZero() && Day(r.From).After(out.Start) {
		out.Start = Day(r.From)
	}
	if !r.To.IsZero() && Day(r.To).Before(out.End) {
		out.End = Day(r.To)
	}
	if p.SameBounds(out) {
		return p
	}
	out.Label = out.Start.Format(DateLayout) + "_" + out.End.Format(DateLayout)
	return out
}

// SameBounds reports whether p and o cover the same dates.
func (p Period) SameBounds(o Period) bool {
	return p.Start.Equal(o.Start) && p.End.Equal(o.End)
}

// LastCompleteHalf returns the most recent half-year that ended before now.
func LastCompleteHalf(now time.Time) Period {
	current := PeriodFor(now)
	return PeriodFor(current.Start.AddDate(0, 0, -1))
}

// DueDate returns the filing deadline: 30 days after the period end, moved
// forward to the next weekday.
func (p Period) DueDate() time.Time {
	d := p.End.AddDate(0, 0, 30)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}
