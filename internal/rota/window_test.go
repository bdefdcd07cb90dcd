package rota

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/laszhr/lasz/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOf_EveryWeekday(t *testing.T) {
	monday := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2025, 3, 9, 23, 59, 59, 999_000_000, time.UTC)

	for i := 0; i < 7; i++ {
		ref := monday.AddDate(0, 0, i).Add(13*time.Hour + 27*time.Minute)
		t.Run(ref.Weekday().String(), func(t *testing.T) {
			w := WeekOf(ref)
			assert.Equal(t, monday, w.Start)
			assert.Equal(t, wantEnd, w.End)
			assert.Equal(t, time.Monday, w.Start.Weekday())
			assert.True(t, w.Contains(ref))
		})
	}
}

func TestWeekOf_MidnightBoundaries(t *testing.T) {
	sundayLate := time.Date(2025, 3, 9, 23, 59, 59, 999_000_000, time.UTC)
	mondayStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), WeekOf(sundayLate).Start)
	assert.Equal(t, mondayStart, WeekOf(mondayStart).Start)
	assert.False(t, WeekOf(sundayLate).Contains(mondayStart))
}

func TestWindow_Navigation(t *testing.T) {
	w := WeekOf(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)) // Wednesday

	assert.Equal(t, time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), w.Start)

	next := w.Next()
	assert.Equal(t, time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), next.Start)
	assert.Equal(t, time.Date(2025, 1, 12, 23, 59, 59, 999_000_000, time.UTC), next.End)

	assert.Equal(t, w, next.Prev())
	assert.Equal(t, w, w.Prev().Next())
}

func TestWindow_NavigationAcrossDST(t *testing.T) {
	london, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)

	// Clocks go forward on Sunday 30 March 2025.
	w := WeekOf(time.Date(2025, 3, 26, 9, 0, 0, 0, london))
	for i := 0; i < 4; i++ {
		assert.Equal(t, time.Monday, w.Start.Weekday())
		assert.Equal(t, 0, w.Start.Hour())
		assert.Equal(t, 23, w.End.Hour())
		assert.Equal(t, time.Sunday, w.End.Weekday())
		w = w.Next()
	}
}

func TestWindow_ContainsShift(t *testing.T) {
	w := WeekOf(time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC))

	inside := domain.Shift{StartTime: w.Start, EndTime: w.End}
	spillsOver := domain.Shift{StartTime: w.End.Add(-time.Hour), EndTime: w.End.Add(time.Hour)}
	startsBefore := domain.Shift{StartTime: w.Start.Add(-time.Hour), EndTime: w.Start.Add(time.Hour)}

	assert.True(t, w.ContainsShift(inside))
	assert.False(t, w.ContainsShift(spillsOver))
	assert.False(t, w.ContainsShift(startsBefore))
}

func TestParseWeek(t *testing.T) {
	now := time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC)

	w, err := ParseWeek("", time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", w.Anchor())

	w, err = ParseWeek("2025-03-16", time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", w.Anchor())

	_, err = ParseWeek("16/03/2025", time.UTC, now)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}
