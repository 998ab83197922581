package domain

import (
	"time"

	bookingdomain "github.com/smallbiznis/nannyhub/internal/booking/domain"
	"github.com/smallbiznis/nannyhub/internal/revenuesplit"
)

// Period is a billing window, both ends inclusive, at day precision.
type Period struct {
	Start time.Time
	End   time.Time
}

// FirstPeriod is the period that opens the booking. Long-term bookings
// bill per calendar month, so the first period runs to the end of the
// start month. Short-term bookings bill once for the whole stay.
func FirstPeriod(b bookingdomain.Booking) (Period, bool) {
	return periodFor(b, bookingdomain.TruncateDay(b.StartDate))
}

// PeriodAt returns the period covering day, or the first period when
// the booking starts after day.
func PeriodAt(b bookingdomain.Booking, day time.Time) (Period, bool) {
	return periodFor(b, latest(bookingdomain.TruncateDay(day), bookingdomain.TruncateDay(b.StartDate)))
}

// DuePeriods lists the periods that should hold an authorization on
// day: the period in progress (or the first one when it starts later
// this month), plus next month's period from authorizeDay onwards.
func DuePeriods(b bookingdomain.Booking, day time.Time, authorizeDay int) []Period {
	day = bookingdomain.TruncateDay(day)
	start := bookingdomain.TruncateDay(b.StartDate)

	if b.Category == revenuesplit.CategoryShortTerm {
		p, ok := FirstPeriod(b)
		if !ok || p.End.Before(day) {
			return nil
		}
		return []Period{p}
	}

	current := monthStart(day)
	next := current.AddDate(0, 1, 0)

	var out []Period
	if start.Before(next) {
		if p, ok := periodFor(b, latest(day, start)); ok && !p.End.Before(day) {
			out = append(out, p)
		}
	}
	if day.Day() >= authorizeDay {
		if p, ok := periodFor(b, latest(next, start)); ok && monthStart(p.Start).Equal(next) {
			out = append(out, p)
		}
	}
	return out
}

// IsFirst reports whether p opens the booking. The placement fee is
// charged on the first period only.
func (p Period) IsFirst(b bookingdomain.Booking) bool {
	return p.Start.Equal(bookingdomain.TruncateDay(b.StartDate))
}

// CaptureDueAt is the earliest moment the period may be captured: the
// policy capture day inside the period, and never before the minimum
// delay after authorization.
func CaptureDueAt(periodStart time.Time, authorizedAt time.Time, captureDay int, minDelay time.Duration) time.Time {
	due := bookingdomain.TruncateDay(periodStart)
	if captureDay > 1 {
		due = due.AddDate(0, 0, captureDay-1)
	}
	if earliest := authorizedAt.UTC().Add(minDelay); earliest.After(due) {
		return earliest
	}
	return due
}

func periodFor(b bookingdomain.Booking, day time.Time) (Period, bool) {
	start := bookingdomain.TruncateDay(b.StartDate)
	if day.Before(start) {
		return Period{}, false
	}

	if b.Category == revenuesplit.CategoryShortTerm {
		if b.EndDate == nil {
			return Period{Start: start, End: start}, true
		}
		end := bookingdomain.TruncateDay(*b.EndDate)
		if end.Before(start) {
			return Period{}, false
		}
		return Period{Start: start, End: end}, true
	}

	p := Period{Start: latest(monthStart(day), start), End: monthStart(day).AddDate(0, 1, -1)}
	if b.EndDate != nil {
		end := bookingdomain.TruncateDay(*b.EndDate)
		if end.Before(p.End) {
			p.End = end
		}
	}
	if p.End.Before(p.Start) {
		return Period{}, false
	}
	return p, true
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
