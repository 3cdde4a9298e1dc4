package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePreferences(t *testing.T) {
	t.Parallel()

	t.Run("empty input yields defaults", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{"", "  ", "null"} {
			prefs, err := ParsePreferences([]byte(raw))
			require.NoError(t, err)
			assert.Equal(t, DefaultPreferences(), prefs)
		}
	})

	t.Run("normalizes fields", func(t *testing.T) {
		t.Parallel()

		prefs, err := ParsePreferences([]byte(`{
			"budget_cap": 50,
			"vibe_tags": [" Artsy", "artsy", "OUTDOOR", ""],
			"blackout_dates": ["2026-03-14", "2026-03-07", "2026-03-14"],
			"date_range_start": " 2026-03-01 ",
			"date_range_end": "2026-03-31"
		}`))
		require.NoError(t, err)

		require.NotNil(t, prefs.BudgetCap)
		assert.Equal(t, 50.0, *prefs.BudgetCap)
		assert.Equal(t, []string{"artsy", "outdoor"}, prefs.VibeTags)
		assert.Equal(t, []string{"2026-03-07", "2026-03-14"}, prefs.BlackoutDates)
		assert.Equal(t, 1, prefs.MinAttendees)
		require.NotNil(t, prefs.DateRangeStart)
		assert.Equal(t, "2026-03-01", *prefs.DateRangeStart)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()

		_, err := ParsePreferences([]byte(`{"budget": 10}`))
		var perr PreferenceErrors
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr, "preferences")
	})

	t.Run("rejects trailing data", func(t *testing.T) {
		t.Parallel()

		for _, raw := range []string{`{} {"x":1}`, `{"budget_cap": 5} []`, `{}{}`, `{}}`} {
			_, err := ParsePreferences([]byte(raw))
			var perr PreferenceErrors
			require.ErrorAs(t, err, &perr, raw)
			assert.Contains(t, perr, "preferences")
		}
	})

	t.Run("reports each invalid field", func(t *testing.T) {
		t.Parallel()

		_, err := ParsePreferences([]byte(`{
			"budget_cap": -1,
			"min_attendees": -2,
			"blackout_dates": ["03/14/2026"],
			"date_range_start": "2026-04-01",
			"date_range_end": "2026-03-01"
		}`))
		var perr PreferenceErrors
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr, "budget_cap")
		assert.Contains(t, perr, "min_attendees")
		assert.Contains(t, perr, "blackout_dates")
		assert.Contains(t, perr, "date_range_end")
	})

	t.Run("rejects impossible calendar dates", func(t *testing.T) {
		t.Parallel()

		_, err := ParsePreferences([]byte(`{"date_range_start": "2026-02-30"}`))
		var perr PreferenceErrors
		require.ErrorAs(t, err, &perr)
		assert.Contains(t, perr, "date_range_start")
	})
}

func TestPreferencesMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	budget := 40.0
	start := "2026-03-01"
	original := Preferences{BudgetCap: &budget, VibeTags: []string{"Immersive"}, DateRangeStart: &start}

	raw, err := original.Marshal()
	require.NoError(t, err)

	parsed, err := ParsePreferences(raw)
	require.NoError(t, err)
	assert.Equal(t, original.Normalize(), parsed)
}

func TestPreferenceRangeHelpers(t *testing.T) {
	t.Parallel()

	start, end := "2026-03-01", "2026-03-31"
	prefs := Preferences{DateRangeStart: &start, DateRangeEnd: &end, BlackoutDates: []string{"2026-03-14"}}

	assert.True(t, prefs.InDateRange("2026-03-01"))
	assert.True(t, prefs.InDateRange("2026-03-31"))
	assert.False(t, prefs.InDateRange("2026-02-28"))
	assert.False(t, prefs.InDateRange("2026-04-01"))
	assert.True(t, prefs.IsBlackout("2026-03-14"))
	assert.False(t, prefs.IsBlackout("2026-03-15"))
}
