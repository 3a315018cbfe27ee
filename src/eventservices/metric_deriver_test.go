package eventservices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

func TestMoneyness(t *testing.T) {
	t.Run("put below price is out of the money", func(t *testing.T) {
		m, err := Moneyness(eventmodels.Put, 95, 100)
		require.NoError(t, err)
		assert.InDelta(t, -5.0, m, 1e-9)
	})

	t.Run("call below price is in the money", func(t *testing.T) {
		m, err := Moneyness(eventmodels.Call, 95, 100)
		require.NoError(t, err)
		assert.InDelta(t, 5.0, m, 1e-9)
	})

	t.Run("sign follows the right", func(t *testing.T) {
		for _, price := range []float64{50, 99.5, 100, 250} {
			for _, strike := range []float64{40, 99.5, 100, 101, 300} {
				put, err := Moneyness(eventmodels.Put, strike, price)
				require.NoError(t, err)
				assert.Equal(t, strike >= price, put >= 0, "put strike=%v price=%v", strike, price)

				call, err := Moneyness(eventmodels.Call, strike, price)
				require.NoError(t, err)
				assert.Equal(t, price >= strike, call >= 0, "call strike=%v price=%v", strike, price)
			}
		}
	})

	t.Run("no price", func(t *testing.T) {
		_, err := Moneyness(eventmodels.Put, 95, 0)
		assert.ErrorIs(t, err, eventmodels.ErrNoPriceAvailable)
	})

	t.Run("invalid right", func(t *testing.T) {
		_, err := Moneyness(eventmodels.OptionRight("X"), 95, 100)
		assert.Error(t, err)
	})
}

func TestDaysToExpiration(t *testing.T) {
	now := time.Date(2026, 10, 19, 15, 30, 0, 0, time.UTC)

	cases := []struct {
		expiration eventmodels.ExpirationDate
		expected   int
	}{
		{"20261019", 0},
		{"20261020", 1},
		{"20261120", 32},
		{"20261018", -1},
		{"20261001", -18},
	}

	for _, c := range cases {
		dte, err := DaysToExpiration(c.expiration, now)
		require.NoError(t, err)
		assert.Equal(t, c.expected, dte, c.expiration)
	}

	_, err := DaysToExpiration("2026-10-19", now)
	assert.Error(t, err)
}

func TestEnrichRecord(t *testing.T) {
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	sampledAt := now.Add(-time.Second)

	correlated := eventmodels.CorrelatedContract{
		Contract: eventmodels.QualifiedContract{
			ContractSpec: eventmodels.ContractSpec{
				Symbol:     "AAPL",
				Expiration: "20261016",
				Strike:     110,
				Right:      eventmodels.Put,
				Exchange:   "SMART",
			},
			ConID: 42,
		},
		Snapshot: eventmodels.Snapshot{
			ConID: 42,
			Bid:   eventmodels.Float64Ptr(10.1),
			Delta: eventmodels.Float64Ptr(-0.81),
		},
		UnderlyingPrice: 100,
		SampledAt:       sampledAt,
	}

	record, err := EnrichRecord(correlated, now)
	require.NoError(t, err)

	assert.Equal(t, -3, record.DTE)
	assert.InDelta(t, 10.0, record.MoneynessPct, 1e-9)
	assert.Equal(t, eventmodels.OptionMoneynessIntheMoney, record.Moneyness())
	assert.Equal(t, 100.0, record.UnderlyingPrice)
	assert.Equal(t, sampledAt, record.SampledAt)
	require.NotNil(t, record.Snapshot.Delta)
	assert.Equal(t, -0.81, *record.Snapshot.Delta)
	assert.Nil(t, record.Snapshot.Ask)
}
