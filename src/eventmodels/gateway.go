package eventmodels

import (
	"context"
	"time"
)

// Gateway is the brokerage market-data session the option chain pipeline
// runs against.
type Gateway interface {
	Connect(ctx context.Context) error
	Disconnect() error
	QualifyStock(ctx context.Context, symbol StockSymbol, currency, exchange string) ([]Underlying, error)
	QualifyOptions(ctx context.Context, underlying Underlying, specs []ContractSpec) ([]QualifiedContract, error)
	RequestChainParameters(ctx context.Context, underlying Underlying) ([]ChainParameters, error)
	RequestSnapshot(ctx context.Context, conID int, fields []MarketDataField) (Ticker, error)
	Sleep(ctx context.Context, d time.Duration) error
}

// Ticker is a live market data handle updated by the gateway session.
type Ticker interface {
	ConID() int

	// Snapshot copies the ticker's current state.
	Snapshot() Snapshot

	// Done is closed once every requested field has been received at least once.
	Done() <-chan struct{}
}

type MarketDataField string

const (
	FieldLast              MarketDataField = "31"
	FieldBid               MarketDataField = "84"
	FieldAsk               MarketDataField = "86"
	FieldPriorClose        MarketDataField = "7741"
	FieldVolume            MarketDataField = "7762"
	FieldOpenInterest      MarketDataField = "7638"
	FieldImpliedVolatility MarketDataField = "7633"
	FieldDelta             MarketDataField = "7308"
)

var StockSnapshotFields = []MarketDataField{FieldLast, FieldBid, FieldAsk, FieldPriorClose, FieldVolume}

var UnderlyingPriceFields = []MarketDataField{FieldLast, FieldPriorClose}

var OptionSnapshotFields = []MarketDataField{
	FieldLast,
	FieldBid,
	FieldAsk,
	FieldPriorClose,
	FieldVolume,
	FieldOpenInterest,
	FieldImpliedVolatility,
	FieldDelta,
}
