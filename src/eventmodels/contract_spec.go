package eventmodels

import (
	"fmt"
	"strconv"
)

// ContractSpec identifies an option before the venue has qualified it.
type ContractSpec struct {
	Symbol     StockSymbol    `json:"symbol"`
	Expiration ExpirationDate `json:"expiration"`
	Strike     float64        `json:"strike"`
	Right      OptionRight    `json:"right"`
	Exchange   string         `json:"exchange"`
}

type ContractKey struct {
	Symbol     StockSymbol
	Expiration ExpirationDate
	Strike     float64
	Right      OptionRight
}

func (c ContractSpec) Key() ContractKey {
	return ContractKey{
		Symbol:     c.Symbol,
		Expiration: c.Expiration,
		Strike:     c.Strike,
		Right:      c.Right,
	}
}

func (c ContractSpec) FormatStrike() string {
	return strconv.FormatFloat(c.Strike, 'f', -1, 64)
}

func (c ContractSpec) String() string {
	return fmt.Sprintf("%s %s %s%s", c.Symbol, c.Expiration, c.FormatStrike(), c.Right)
}

// QualifiedContract is a ContractSpec the venue has accepted and assigned a conid.
type QualifiedContract struct {
	ContractSpec
	ConID        int    `json:"conid"`
	TradingClass string `json:"trading_class"`
	Multiplier   string `json:"multiplier"`
}
