package eventservices

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// FetchStockQuote snapshots the underlying and waits up to timeout for the
// quote fields to arrive. Fields still missing afterwards stay nil.
func FetchStockQuote(ctx context.Context, gw eventmodels.Gateway, underlying eventmodels.Underlying, timeout time.Duration) (*eventmodels.StockQuote, error) {
	tracer := otel.Tracer("eventservices")
	ctx, span := tracer.Start(ctx, "FetchStockQuote")
	defer span.End()

	ticker, err := gw.RequestSnapshot(ctx, underlying.ConID, eventmodels.StockSnapshotFields)
	if err != nil {
		return nil, fmt.Errorf("FetchStockQuote: failed to request snapshot for %s: %w", underlying.Symbol, err)
	}

	awaitTicker(ctx, ticker, timeout)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("FetchStockQuote: %w", err)
	}

	return eventmodels.NewStockQuote(underlying.Symbol, ticker.Snapshot()), nil
}
