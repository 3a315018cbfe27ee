package eventmodels

import "fmt"

// Underlying is the resolved equity instrument an option chain is written on.
type Underlying struct {
	Symbol          StockSymbol `json:"symbol"`
	Exchange        string      `json:"exchange"`
	PrimaryExchange string      `json:"primary_exchange"`
	Currency        string      `json:"currency"`
	ConID           int         `json:"conid"`
}

func (u Underlying) String() string {
	return fmt.Sprintf("%s (conid %d, %s/%s)", u.Symbol, u.ConID, u.PrimaryExchange, u.Currency)
}
