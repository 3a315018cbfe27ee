package eventmodels

type StockQuote struct {
	Symbol StockSymbol `json:"symbol"`
	Last   *float64    `json:"last"`
	Bid    *float64    `json:"bid"`
	Ask    *float64    `json:"ask"`
	Close  *float64    `json:"close"`
	Volume *float64    `json:"volume"`
}

func NewStockQuote(symbol StockSymbol, snapshot Snapshot) *StockQuote {
	return &StockQuote{
		Symbol: symbol,
		Last:   snapshot.Last,
		Bid:    snapshot.Bid,
		Ask:    snapshot.Ask,
		Close:  snapshot.Close,
		Volume: snapshot.Volume,
	}
}
