package eventservices

import (
	"fmt"
	"math"
	"sort"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

const DefaultMaxExpirations = 5
const DefaultStrikeBand = 0.20

// SelectExpirations returns the explicit expiration when given, otherwise the
// maxExpirations chronologically nearest ones.
func SelectExpirations(params eventmodels.ChainParameters, explicit *eventmodels.ExpirationDate, maxExpirations int) ([]eventmodels.ExpirationDate, error) {
	sorted := append([]eventmodels.ExpirationDate(nil), params.Expirations...)
	eventmodels.SortExpirationDates(sorted)

	if explicit != nil {
		if !params.HasExpiration(*explicit) {
			return nil, eventmodels.NewInvalidExpirationError(*explicit, sorted)
		}

		return []eventmodels.ExpirationDate{*explicit}, nil
	}

	if maxExpirations <= 0 {
		maxExpirations = DefaultMaxExpirations
	}

	if len(sorted) > maxExpirations {
		sorted = sorted[:maxExpirations]
	}

	return sorted, nil
}

// SelectStrikes returns every listed strike strictly within band (relative)
// of price.
func SelectStrikes(params eventmodels.ChainParameters, price float64, band float64) ([]float64, error) {
	if price <= 0 || math.IsNaN(price) || math.IsInf(price, 0) {
		return nil, fmt.Errorf("SelectStrikes: invalid price %v: %w", price, eventmodels.ErrNoPriceAvailable)
	}

	if band <= 0 {
		band = DefaultStrikeBand
	}

	available := append([]float64(nil), params.Strikes...)
	sort.Float64s(available)

	var strikes []float64
	for _, strike := range available {
		if math.Abs(strike-price)/price < band {
			strikes = append(strikes, strike)
		}
	}

	return strikes, nil
}

// BuildContractSpecs expands expirations x strikes for one right, expiration-major.
func BuildContractSpecs(symbol eventmodels.StockSymbol, expirations []eventmodels.ExpirationDate, strikes []float64, right eventmodels.OptionRight, exchange string) []eventmodels.ContractSpec {
	specs := make([]eventmodels.ContractSpec, 0, len(expirations)*len(strikes))
	for _, exp := range expirations {
		for _, strike := range strikes {
			specs = append(specs, eventmodels.ContractSpec{
				Symbol:     symbol,
				Expiration: exp,
				Strike:     strike,
				Right:      right,
				Exchange:   exchange,
			})
		}
	}

	return specs
}
