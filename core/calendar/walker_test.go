package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/fleetcast/core/model"
)

func p(y, m int) model.Period { return model.Period{Year: y, Month: m} }

func TestAdvance(t *testing.T) {
	cases := []struct {
		anchor model.Period
		steps  int
		want   model.Period
	}{
		{p(2024, 12), 1, p(2025, 1)},
		{p(2024, 5), 0, p(2024, 5)},
		{p(2024, 1), 11, p(2024, 12)},
		{p(2024, 1), 12, p(2025, 1)},
		{p(2024, 11), 26, p(2027, 1)},
		{p(1999, 12), 121, p(2010, 1)},
	}
	for _, c := range cases {
		got, err := Advance(c.anchor, c.steps)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "advance %v by %d", c.anchor, c.steps)
	}
}

func TestAdvanceNegative(t *testing.T) {
	_, err := Advance(p(2024, 1), -1)
	var ih *InvalidHorizonError
	require.ErrorAs(t, err, &ih)
	assert.Equal(t, -1, ih.Horizon)
}

func TestAdvanceInvalidAnchor(t *testing.T) {
	_, err := Advance(p(2024, 13), 0)
	var ip *model.InvalidPeriodError
	require.ErrorAs(t, err, &ip)
}

func TestExpandRollover(t *testing.T) {
	got, err := Walker{}.Expand(p(2024, 12), 3)
	require.NoError(t, err)
	assert.Equal(t, []model.Period{p(2024, 12), p(2025, 1), p(2025, 2)}, got)
}

func TestExpandSingle(t *testing.T) {
	got, err := NewWalker(0).Expand(p(2025, 7), 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Period{p(2025, 7)}, got)
}

func TestExpandProperties(t *testing.T) {
	w := NewWalker(60)
	for year := 2018; year <= 2026; year++ {
		for month := 1; month <= 12; month++ {
			for _, h := range []int{1, 2, 5, 12, 13, 60} {
				anchor := p(year, month)
				got, err := w.Expand(anchor, h)
				require.NoError(t, err)
				require.Len(t, got, h)
				assert.Equal(t, anchor, got[0])
				for i, cur := range got {
					assert.True(t, cur.Month >= 1 && cur.Month <= 12)
					if i > 0 {
						assert.Equal(t, 1, got[i-1].MonthsUntil(cur))
						assert.True(t, got[i-1].Before(cur))
					}
				}
			}
		}
	}
}

func TestExpandDeterministic(t *testing.T) {
	w := NewWalker(24)
	a, err := w.Expand(p(2023, 8), 24)
	require.NoError(t, err)
	b, err := w.Expand(p(2023, 8), 24)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestExpandInvalidHorizon(t *testing.T) {
	w := NewWalker(60)
	for _, h := range []int{0, -3, 61} {
		_, err := w.Expand(p(2024, 1), h)
		var ih *InvalidHorizonError
		require.ErrorAs(t, err, &ih, "horizon %d", h)
		assert.Equal(t, h, ih.Horizon)
	}
	_, err := Walker{}.Expand(p(2024, 1), 500)
	assert.NoError(t, err, "zero walker is unbounded")
}

func TestInvalidHorizonMessage(t *testing.T) {
	err := NewWalker(12).CheckHorizon(13)
	assert.EqualError(t, err, "invalid horizon 13: exceeds maximum 12")
	err = NewWalker(12).CheckHorizon(0)
	assert.EqualError(t, err, "invalid horizon 0: must be positive")
}

func TestCurrent(t *testing.T) {
	clock := func() time.Time { return time.Date(2025, time.October, 16, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, p(2025, 10), Current(clock))
}

func TestExpandDays(t *testing.T) {
	start := time.Date(2025, time.January, 30, 15, 4, 0, 0, time.UTC)
	days, err := NewWalker(60).ExpandDays(start, 4)
	require.NoError(t, err)
	require.Len(t, days, 4)
	keys := []string{days[0].Key(), days[1].Key(), days[2].Key(), days[3].Key()}
	assert.Equal(t, []string{"2025-01-30", "2025-01-31", "2025-02-01", "2025-02-02"}, keys)
	assert.Equal(t, p(2025, 1), days[1].Period)
	assert.Equal(t, p(2025, 2), days[2].Period)

	_, err = NewWalker(7).ExpandDays(start, 8)
	var ih *InvalidHorizonError
	assert.ErrorAs(t, err, &ih)
}

func TestParseMonth(t *testing.T) {
	ok := map[string]int{"1": 1, "12": 12, "October": 10, "october": 10, "oct": 10, " MAY ": 5, "Sep": 9}
	for in, want := range ok {
		got, err := ParseMonth(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "0", "13", "Octo", "smarch"} {
		_, err := ParseMonth(in)
		assert.Error(t, err, in)
	}
	assert.Equal(t, "December", MonthName(12))
	assert.Equal(t, "", MonthName(0))
}
