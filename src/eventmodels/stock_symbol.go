package eventmodels

import (
	"fmt"
	"strings"
)

type StockSymbol string

func (s StockSymbol) String() string {
	return strings.ToUpper(string(s))
}

func (s StockSymbol) Validate() error {
	if strings.TrimSpace(string(s)) == "" {
		return fmt.Errorf("StockSymbol: Validate: symbol is empty")
	}

	if strings.ContainsAny(string(s), " \t,;") {
		return fmt.Errorf("StockSymbol: Validate: invalid symbol: %q", string(s))
	}

	return nil
}

func NewStockSymbol(s string) StockSymbol {
	return StockSymbol(strings.ToUpper(strings.TrimSpace(s)))
}
