package eventmodels

// ChainParameters is one contract-parameter grouping the venue exposes for an
// underlying's options. Expirations and Strikes are sorted ascending and unique.
type ChainParameters struct {
	Exchange     string           `json:"exchange"`
	TradingClass string           `json:"trading_class"`
	Multiplier   string           `json:"multiplier"`
	Expirations  []ExpirationDate `json:"expirations"`
	Strikes      []float64        `json:"strikes"`
}

func (p ChainParameters) HasExpiration(expiration ExpirationDate) bool {
	for _, e := range p.Expirations {
		if e == expiration {
			return true
		}
	}

	return false
}

func (p ChainParameters) IsEmpty() bool {
	return len(p.Expirations) == 0 || len(p.Strikes) == 0
}
