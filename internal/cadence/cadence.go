package cadence

import "time"

// Unit is the calendar unit of a recurrence interval.
type Unit string

const (
	UnitDay   Unit = "day"
	UnitWeek  Unit = "week"
	UnitMonth Unit = "month"
	UnitYear  Unit = "year"
)

func ParseUnit(s string) (Unit, bool) {
	switch Unit(s) {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return Unit(s), true
	}
	return "", false
}

func (u Unit) Valid() bool {
	_, ok := ParseUnit(string(u))
	return ok
}

// DateOf truncates t to its UTC calendar date. All cycle math in this
// package operates on such midnight-UTC dates.
func DateOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// Next returns the cycle date steps intervals after the anchor. Month and
// year steps are computed from the anchor itself, not from the previous
// cycle date, so an anchor on the 31st clamps to short months and recovers:
// Jan 31 -> Feb 29 -> Mar 31, never drifting to the 29th for good.
func Next(anchor time.Time, every int, unit Unit, steps int) time.Time {
	a := DateOf(anchor)
	if steps <= 0 {
		return a
	}
	n := every * steps
	switch unit {
	case UnitDay:
		return a.AddDate(0, 0, n)
	case UnitWeek:
		return a.AddDate(0, 0, 7*n)
	case UnitMonth:
		return addMonths(a, n)
	case UnitYear:
		return addMonths(a, 12*n)
	}
	return a
}

// AdvancePast moves a cursor to the first cycle date strictly after today
// and reports how many steps it took. A cursor already in the future moves
// zero steps and comes back unchanged.
func AdvancePast(anchor time.Time, every int, unit Unit, cursor, today time.Time) (time.Time, int) {
	cursor = DateOf(cursor)
	today = DateOf(today)
	if cursor.After(today) {
		return cursor, 0
	}

	k := 0
	d := DateOf(anchor)
	for d.Before(cursor) {
		k++
		d = Next(anchor, every, unit, k)
	}
	from := k
	for !d.After(today) {
		k++
		d = Next(anchor, every, unit, k)
	}
	return d, k - from
}

// addMonths adds months to a date keeping the anchor's day-of-month,
// clamped to the target month's last day. Going through the first of the
// month keeps AddDate from spilling into the month after (Jan 31 + 1 month
// would otherwise normalize to Mar 2).
func addMonths(d time.Time, months int) time.Time {
	y, m, day := d.Date()
	shifted := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	ty, tm, _ := shifted.Date()
	if last := daysInMonth(ty, tm); day > last {
		day = last
	}
	return time.Date(ty, tm, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
