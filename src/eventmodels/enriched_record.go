package eventmodels

import "time"

// EnrichedRecord is a qualified option with its market snapshot and the
// metrics derived from it.
type EnrichedRecord struct {
	Contract        QualifiedContract `json:"contract"`
	Snapshot        Snapshot          `json:"snapshot"`
	DTE             int               `json:"dte"`
	MoneynessPct    float64           `json:"moneyness_pct"`
	UnderlyingPrice float64           `json:"underlying_price"`
	SampledAt       time.Time         `json:"sampled_at"`
}

func (r EnrichedRecord) Moneyness() OptionMoneyness {
	return ClassifyMoneyness(r.MoneynessPct)
}

// CorrelatedContract pairs a qualified contract with its frozen snapshot and
// the underlying price sampled for it.
type CorrelatedContract struct {
	Contract        QualifiedContract
	Snapshot        Snapshot
	UnderlyingPrice float64
	SampledAt       time.Time
}
