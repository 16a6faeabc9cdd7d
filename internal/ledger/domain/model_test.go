package domain_test

import (
	"testing"

	ledgerdomain "github.com/homewardlabs/homeward/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
)

func TestParseMetric(t *testing.T) {
	m, ok := ledgerdomain.ParseMetric("active_expenses")
	assert.True(t, ok)
	assert.Equal(t, ledgerdomain.MetricActiveExpenses, m)

	_, ok = ledgerdomain.ParseMetric("active_widgets")
	assert.False(t, ok)
}

func TestAddClampsAtZero(t *testing.T) {
	var l ledgerdomain.UsageLedger

	l.Add(ledgerdomain.MetricActiveChores, 3)
	assert.Equal(t, int64(3), l.ActiveChores)

	// Releasing more than held absorbs at zero instead of going negative.
	l.Add(ledgerdomain.MetricActiveChores, -5)
	assert.Equal(t, int64(0), l.ActiveChores)

	l.Add(ledgerdomain.MetricActiveChores, 2)
	assert.Equal(t, int64(2), l.ActiveChores)
}

func TestAddLeavesOtherMetricsAlone(t *testing.T) {
	var l ledgerdomain.UsageLedger
	l.Add(ledgerdomain.MetricChorePhotos, 4)
	l.Add(ledgerdomain.MetricItemPhotos, 1)

	assert.Equal(t, int64(4), l.ChorePhotos)
	assert.Equal(t, int64(1), l.ItemPhotos)
	assert.Zero(t, l.ActiveChores)
	assert.Zero(t, l.ActiveMembers)
	assert.Zero(t, l.ActiveExpenses)
}
