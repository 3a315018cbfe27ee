package ibkr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

func TestParseMarketValue(t *testing.T) {
	t.Run("plain and formatted numbers", func(t *testing.T) {
		cases := map[string]float64{
			"412.07":  412.07,
			" 3.5 ":   3.5,
			"1,204":   1204,
			"18.3M":   18300000,
			"2.5K":    2500,
			"1.2B":    1200000000,
			"24.5%":   0.245,
			"-0.4123": -0.4123,
		}

		for raw, expected := range cases {
			mv, ok := parseMarketValue(raw)
			require.True(t, ok, raw)
			assert.InDelta(t, expected, mv.value, 1e-6, raw)
			assert.False(t, mv.closePrice, raw)
		}
	})

	t.Run("close and halted prefixes", func(t *testing.T) {
		mv, ok := parseMarketValue("C189.50")
		require.True(t, ok)
		assert.True(t, mv.closePrice)
		assert.Equal(t, 189.5, mv.value)

		mv, ok = parseMarketValue("H10.25")
		require.True(t, ok)
		assert.False(t, mv.closePrice)
		assert.Equal(t, 10.25, mv.value)
	})

	t.Run("absent values", func(t *testing.T) {
		for _, raw := range []string{"", "  ", "N/A", "-", "--", "abc"} {
			_, ok := parseMarketValue(raw)
			assert.False(t, ok, raw)
		}
	})
}

func TestBuildSnapshot(t *testing.T) {
	t.Run("option fields", func(t *testing.T) {
		snapshot := buildSnapshot(1001, map[eventmodels.MarketDataField]string{
			eventmodels.FieldLast:              "2.15",
			eventmodels.FieldBid:               "2.10",
			eventmodels.FieldAsk:               "2.20",
			eventmodels.FieldVolume:            "1,530",
			eventmodels.FieldOpenInterest:      "12.4K",
			eventmodels.FieldImpliedVolatility: "31.2%",
			eventmodels.FieldDelta:             "-0.312",
		})

		assert.Equal(t, 1001, snapshot.ConID)
		require.NotNil(t, snapshot.Last)
		assert.Equal(t, 2.15, *snapshot.Last)
		assert.Equal(t, 2.10, *snapshot.Bid)
		assert.Equal(t, 2.20, *snapshot.Ask)
		assert.Equal(t, 1530.0, *snapshot.Volume)
		assert.Equal(t, 12400.0, *snapshot.OpenInterest)
		assert.InDelta(t, 0.312, *snapshot.ImpliedVolatility, 1e-9)
		assert.Equal(t, -0.312, *snapshot.Delta)
		assert.Nil(t, snapshot.Close)
	})

	t.Run("close-prefixed last is a close", func(t *testing.T) {
		snapshot := buildSnapshot(1, map[eventmodels.MarketDataField]string{
			eventmodels.FieldLast: "C410.00",
		})

		assert.Nil(t, snapshot.Last)
		require.NotNil(t, snapshot.Close)
		assert.Equal(t, 410.0, *snapshot.Close)

		price, ok := snapshot.Price()
		assert.True(t, ok)
		assert.Equal(t, 410.0, price)
	})

	t.Run("unparseable fields stay nil", func(t *testing.T) {
		snapshot := buildSnapshot(1, map[eventmodels.MarketDataField]string{
			eventmodels.FieldBid: "N/A",
		})

		assert.True(t, snapshot.IsEmpty())
	})
}

func TestStringifyFieldValue(t *testing.T) {
	v, ok := stringifyFieldValue("1.5")
	assert.True(t, ok)
	assert.Equal(t, "1.5", v)

	v, ok = stringifyFieldValue(float64(272093))
	assert.True(t, ok)
	assert.Equal(t, "272093", v)

	v, ok = stringifyFieldValue(map[string]interface{}{"v": 3.25})
	assert.True(t, ok)
	assert.Equal(t, "3.25", v)

	_, ok = stringifyFieldValue(true)
	assert.False(t, ok)
}
