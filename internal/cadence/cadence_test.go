package cadence_test

import (
	"testing"
	"time"

	"github.com/homewardlabs/homeward/internal/cadence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseUnit(t *testing.T) {
	u, ok := cadence.ParseUnit("week")
	require.True(t, ok)
	assert.Equal(t, cadence.UnitWeek, u)

	_, ok = cadence.ParseUnit("fortnight")
	assert.False(t, ok)

	assert.True(t, cadence.UnitMonth.Valid())
	assert.False(t, cadence.Unit("quarter").Valid())
}

func TestDateOfTruncatesToUTCMidnight(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 23:30 EST on Jan 31 is already Feb 1 in UTC.
	local := time.Date(2024, time.January, 31, 23, 30, 0, 0, loc)
	assert.Equal(t, date(2024, time.February, 1), cadence.DateOf(local))
}

func TestNextDayAndWeek(t *testing.T) {
	anchor := date(2024, time.January, 1)

	assert.Equal(t, date(2024, time.January, 1), cadence.Next(anchor, 2, cadence.UnitWeek, 0))
	assert.Equal(t, date(2024, time.January, 15), cadence.Next(anchor, 2, cadence.UnitWeek, 1))
	assert.Equal(t, date(2024, time.January, 29), cadence.Next(anchor, 2, cadence.UnitWeek, 2))
	assert.Equal(t, date(2024, time.January, 4), cadence.Next(anchor, 3, cadence.UnitDay, 1))
	assert.Equal(t, date(2024, time.January, 10), cadence.Next(anchor, 3, cadence.UnitDay, 3))
}

func TestNextMonthEndClamps(t *testing.T) {
	anchor := date(2024, time.January, 31)

	// 2024 is a leap year: Feb clamps to 29, then the anchor day recovers.
	assert.Equal(t, date(2024, time.February, 29), cadence.Next(anchor, 1, cadence.UnitMonth, 1))
	assert.Equal(t, date(2024, time.March, 31), cadence.Next(anchor, 1, cadence.UnitMonth, 2))
	assert.Equal(t, date(2024, time.April, 30), cadence.Next(anchor, 1, cadence.UnitMonth, 3))
	assert.Equal(t, date(2024, time.May, 31), cadence.Next(anchor, 1, cadence.UnitMonth, 4))
}

func TestNextYearLeapAnchor(t *testing.T) {
	anchor := date(2024, time.February, 29)

	assert.Equal(t, date(2025, time.February, 28), cadence.Next(anchor, 1, cadence.UnitYear, 1))
	assert.Equal(t, date(2028, time.February, 29), cadence.Next(anchor, 1, cadence.UnitYear, 4))
}

func TestAdvancePastCountsSteps(t *testing.T) {
	anchor := date(2024, time.January, 31)

	got, steps := cadence.AdvancePast(anchor, 1, cadence.UnitMonth, anchor, date(2024, time.March, 15))
	assert.Equal(t, date(2024, time.March, 31), got)
	assert.Equal(t, 2, steps)
}

func TestAdvancePastFutureCursorIsNoop(t *testing.T) {
	anchor := date(2024, time.January, 1)
	cursor := date(2024, time.June, 1)

	got, steps := cadence.AdvancePast(anchor, 1, cadence.UnitMonth, cursor, date(2024, time.March, 15))
	assert.Equal(t, cursor, got)
	assert.Zero(t, steps)
}

func TestAdvancePastDueTodayAdvancesOnce(t *testing.T) {
	anchor := date(2024, time.January, 1)

	got, steps := cadence.AdvancePast(anchor, 1, cadence.UnitWeek, date(2024, time.January, 8), date(2024, time.January, 8))
	assert.Equal(t, date(2024, time.January, 15), got)
	assert.Equal(t, 1, steps)
}
