package mealclock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tz = "Asia/Kolkata"

func at(t *testing.T, hour, minute int) *Mess {
	t.Helper()
	loc, err := time.LoadLocation(tz)
	require.NoError(t, err)
	fixed := time.Date(2025, 3, 10, hour, minute, 0, 0, loc)
	m, err := NewWithClock(tz, Fixed(fixed))
	require.NoError(t, err)
	return m
}

func TestParseSlot(t *testing.T) {
	for _, raw := range []string{"breakfast", "lunch", "dinner"} {
		slot, ok := ParseSlot(raw)
		assert.True(t, ok)
		assert.Equal(t, Slot(raw), slot)
	}
	for _, raw := range []string{"", "brunch", "BREAKFAST", "supper"} {
		_, ok := ParseSlot(raw)
		assert.False(t, ok, raw)
	}
}

func TestCutoffHours(t *testing.T) {
	assert.Equal(t, 6, Breakfast.CutoffHour())
	assert.Equal(t, 11, Lunch.CutoffHour())
	assert.Equal(t, 17, Dinner.CutoffHour())
}

func TestCutoffPassed(t *testing.T) {
	testCases := []struct {
		name   string
		hour   int
		minute int
		slot   Slot
		passed bool
	}{
		{"before breakfast cutoff", 5, 30, Breakfast, false},
		{"at breakfast cutoff", 6, 0, Breakfast, true},
		{"after breakfast cutoff", 7, 0, Breakfast, true},
		{"before lunch cutoff", 10, 59, Lunch, false},
		{"at lunch cutoff", 11, 0, Lunch, true},
		{"noon lunch", 12, 0, Lunch, true},
		{"before dinner cutoff", 16, 59, Dinner, false},
		{"at dinner cutoff", 17, 0, Dinner, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := at(t, tc.hour, tc.minute)
			assert.Equal(t, tc.passed, m.CutoffPassed(tc.slot))
		})
	}
}

func TestCurrentSlot(t *testing.T) {
	testCases := []struct {
		hour int
		slot Slot
		open bool
	}{
		{5, "", false},
		{7, Breakfast, true},
		{8, Breakfast, true},
		{9, "", false},
		{12, Lunch, true},
		{13, Lunch, true},
		{14, "", false},
		{19, Dinner, true},
		{20, Dinner, true},
		{21, "", false},
		{23, "", false},
	}
	for _, tc := range testCases {
		m := at(t, tc.hour, 30)
		slot, open := m.CurrentSlot()
		assert.Equal(t, tc.open, open, "hour %d", tc.hour)
		assert.Equal(t, tc.slot, slot, "hour %d", tc.hour)
	}
}

func TestDayBounds(t *testing.T) {
	m := at(t, 15, 45)
	start, end := m.DayBounds(m.Now())
	assert.Equal(t, 0, start.Hour())
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.True(t, start.Before(m.Now()))
	assert.True(t, end.After(m.Now()))
}

func TestNowUsesMessTimezone(t *testing.T) {
	// 01:30 UTC is 07:00 IST: breakfast is open at the mess even though
	// the caller's clock says the middle of the night.
	fixed := time.Date(2025, 3, 10, 1, 30, 0, 0, time.UTC)
	m, err := NewWithClock(tz, Fixed(fixed))
	require.NoError(t, err)
	slot, open := m.CurrentSlot()
	assert.True(t, open)
	assert.Equal(t, Breakfast, slot)
	assert.True(t, m.CutoffPassed(Breakfast))
	assert.False(t, m.CutoffPassed(Lunch))
}
