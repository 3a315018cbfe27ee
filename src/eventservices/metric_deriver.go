package eventservices

import (
	"fmt"
	"time"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// DaysToExpiration counts calendar days from now's date to the expiration.
func DaysToExpiration(expiration eventmodels.ExpirationDate, now time.Time) (int, error) {
	dte, err := expiration.DaysFrom(now)
	if err != nil {
		return 0, fmt.Errorf("DaysToExpiration: %w", err)
	}

	return dte, nil
}

// Moneyness returns the distance between strike and underlying price as a
// percentage of the price, signed so that positive is in the money for both
// puts and calls.
func Moneyness(right eventmodels.OptionRight, strike, underlyingPrice float64) (float64, error) {
	if underlyingPrice <= 0 {
		return 0, fmt.Errorf("Moneyness: invalid underlying price %v: %w", underlyingPrice, eventmodels.ErrNoPriceAvailable)
	}

	switch right {
	case eventmodels.Put:
		return (strike - underlyingPrice) / underlyingPrice * 100, nil
	case eventmodels.Call:
		return (underlyingPrice - strike) / underlyingPrice * 100, nil
	}

	return 0, fmt.Errorf("Moneyness: %w", right.Validate())
}

func EnrichRecord(correlated eventmodels.CorrelatedContract, now time.Time) (eventmodels.EnrichedRecord, error) {
	contract := correlated.Contract

	dte, err := DaysToExpiration(contract.Expiration, now)
	if err != nil {
		return eventmodels.EnrichedRecord{}, fmt.Errorf("EnrichRecord: %s: %w", contract.ContractSpec, err)
	}

	moneyness, err := Moneyness(contract.Right, contract.Strike, correlated.UnderlyingPrice)
	if err != nil {
		return eventmodels.EnrichedRecord{}, fmt.Errorf("EnrichRecord: %s: %w", contract.ContractSpec, err)
	}

	return eventmodels.EnrichedRecord{
		Contract:        contract,
		Snapshot:        correlated.Snapshot,
		DTE:             dte,
		MoneynessPct:    moneyness,
		UnderlyingPrice: correlated.UnderlyingPrice,
		SampledAt:       correlated.SampledAt,
	}, nil
}

func EnrichRecords(correlated []eventmodels.CorrelatedContract, now time.Time) ([]eventmodels.EnrichedRecord, error) {
	records := make([]eventmodels.EnrichedRecord, 0, len(correlated))
	for _, c := range correlated {
		record, err := EnrichRecord(c, now)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	return records, nil
}
