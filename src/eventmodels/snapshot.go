package eventmodels

import "time"

// Snapshot is one immutable reading of an instrument's market data. A nil
// field means the gateway had not provided it when the snapshot was taken.
type Snapshot struct {
	ConID             int       `json:"conid"`
	Last              *float64  `json:"last"`
	Bid               *float64  `json:"bid"`
	Ask               *float64  `json:"ask"`
	Close             *float64  `json:"close"`
	Volume            *float64  `json:"volume"`
	OpenInterest      *float64  `json:"open_interest"`
	ImpliedVolatility *float64  `json:"implied_volatility"`
	Delta             *float64  `json:"delta"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Price returns the last trade price, falling back to the close.
func (s Snapshot) Price() (float64, bool) {
	if s.Last != nil && *s.Last > 0 {
		return *s.Last, true
	}

	if s.Close != nil && *s.Close > 0 {
		return *s.Close, true
	}

	return 0, false
}

func (s Snapshot) IsEmpty() bool {
	return s.Last == nil && s.Bid == nil && s.Ask == nil && s.Close == nil &&
		s.Volume == nil && s.OpenInterest == nil && s.ImpliedVolatility == nil && s.Delta == nil
}

func Float64Ptr(v float64) *float64 {
	return &v
}
