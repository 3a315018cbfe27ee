package ibkr

import (
	"strconv"
	"strings"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// marketValue is one parsed market data field. The gateway prefixes a price
// with C when it is the prior close standing in for a missing trade and
// with H when trading is halted.
type marketValue struct {
	value      float64
	closePrice bool
}

var magnitudeSuffixes = map[byte]float64{
	'K': 1e3,
	'M': 1e6,
	'B': 1e9,
}

// parseMarketValue reads the gateway's display-formatted numbers, e.g.
// "C412.07", "1,204", "18.3M", "24.51%". Percentages are returned as fractions.
func parseMarketValue(raw string) (marketValue, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "N/A" || s == "-" || s == "--" {
		return marketValue{}, false
	}

	var mv marketValue
	switch s[0] {
	case 'C':
		mv.closePrice = true
		s = s[1:]
	case 'H':
		s = s[1:]
	}

	s = strings.ReplaceAll(s, ",", "")

	scale := 1.0
	if strings.HasSuffix(s, "%") {
		scale = 0.01
		s = strings.TrimSuffix(s, "%")
	} else if n := len(s); n > 0 {
		if m, ok := magnitudeSuffixes[s[n-1]]; ok {
			scale = m
			s = s[:n-1]
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return marketValue{}, false
	}

	mv.value = v * scale
	return mv, true
}

// buildSnapshot converts raw field values into a snapshot. Fields the
// gateway never sent stay nil.
func buildSnapshot(conID int, values map[eventmodels.MarketDataField]string) eventmodels.Snapshot {
	snapshot := eventmodels.Snapshot{ConID: conID}

	read := func(field eventmodels.MarketDataField) (marketValue, bool) {
		raw, found := values[field]
		if !found {
			return marketValue{}, false
		}
		return parseMarketValue(raw)
	}

	if mv, ok := read(eventmodels.FieldLast); ok {
		if mv.closePrice {
			snapshot.Close = eventmodels.Float64Ptr(mv.value)
		} else {
			snapshot.Last = eventmodels.Float64Ptr(mv.value)
		}
	}

	if mv, ok := read(eventmodels.FieldPriorClose); ok {
		snapshot.Close = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldBid); ok {
		snapshot.Bid = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldAsk); ok {
		snapshot.Ask = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldVolume); ok {
		snapshot.Volume = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldOpenInterest); ok {
		snapshot.OpenInterest = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldImpliedVolatility); ok {
		snapshot.ImpliedVolatility = eventmodels.Float64Ptr(mv.value)
	}

	if mv, ok := read(eventmodels.FieldDelta); ok {
		snapshot.Delta = eventmodels.Float64Ptr(mv.value)
	}

	return snapshot
}

// stringifyFieldValue normalizes a decoded JSON value to the gateway's
// string form.
func stringifyFieldValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case map[string]interface{}:
		if inner, ok := val["v"]; ok {
			return stringifyFieldValue(inner)
		}
	}

	return "", false
}
