package eventmodels

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpirationDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		exp, err := ParseExpirationDate(" 20261120 ")
		require.NoError(t, err)
		assert.Equal(t, ExpirationDate("20261120"), exp)
	})

	t.Run("invalid", func(t *testing.T) {
		for _, s := range []string{"", "2026-11-20", "20261320", "nov26"} {
			_, err := ParseExpirationDate(s)
			assert.Error(t, err, s)
		}
	})
}

func TestExpirationDate_MonthCode(t *testing.T) {
	code, err := ExpirationDate("20261120").MonthCode()
	require.NoError(t, err)
	assert.Equal(t, "NOV26", code)

	code, err = ExpirationDate("20270115").MonthCode()
	require.NoError(t, err)
	assert.Equal(t, "JAN27", code)
}

func TestExpirationDate_DaysFrom(t *testing.T) {
	now := time.Date(2026, 10, 19, 23, 59, 0, 0, time.UTC)

	t.Run("future", func(t *testing.T) {
		days, err := ExpirationDate("20261120").DaysFrom(now)
		require.NoError(t, err)
		assert.Equal(t, 32, days)
	})

	t.Run("today", func(t *testing.T) {
		days, err := ExpirationDate("20261019").DaysFrom(now)
		require.NoError(t, err)
		assert.Equal(t, 0, days)
	})

	t.Run("expired", func(t *testing.T) {
		days, err := ExpirationDate("20261016").DaysFrom(now)
		require.NoError(t, err)
		assert.Equal(t, -3, days)
	})

	t.Run("across a dst change", func(t *testing.T) {
		loc, err := time.LoadLocation("America/New_York")
		if err != nil {
			t.Skip("tzdata unavailable")
		}

		days, err := ExpirationDate("20261102").DaysFrom(time.Date(2026, 10, 30, 9, 30, 0, 0, loc))
		require.NoError(t, err)
		assert.Equal(t, 3, days)
	})
}

func TestSortExpirationDates(t *testing.T) {
	dates := []ExpirationDate{"20261218", "20261023", "20261120"}
	SortExpirationDates(dates)
	assert.Equal(t, []ExpirationDate{"20261023", "20261120", "20261218"}, dates)
}
