package eventservices

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// ResolveUnderlying turns a ticker into the single equity instrument it names
// on the venue. Zero or ambiguous matches fail with ErrNotFound.
func ResolveUnderlying(ctx context.Context, gw eventmodels.Gateway, symbol eventmodels.StockSymbol, currency, exchange string) (eventmodels.Underlying, error) {
	tracer := otel.Tracer("eventservices")
	ctx, span := tracer.Start(ctx, "ResolveUnderlying")
	defer span.End()

	span.SetAttributes(attribute.String("symbol", symbol.String()))

	if err := symbol.Validate(); err != nil {
		return eventmodels.Underlying{}, fmt.Errorf("ResolveUnderlying: %w: %v", eventmodels.ErrNotFound, err)
	}

	matches, err := gw.QualifyStock(ctx, symbol, currency, exchange)
	if err != nil {
		return eventmodels.Underlying{}, fmt.Errorf("ResolveUnderlying: failed to qualify %s: %w", symbol, err)
	}

	switch len(matches) {
	case 0:
		return eventmodels.Underlying{}, fmt.Errorf("ResolveUnderlying: %s: %w", symbol, eventmodels.ErrNotFound)
	case 1:
		log.Debugf("resolved %s", matches[0])
		span.SetAttributes(attribute.Int("conid", matches[0].ConID))
		return matches[0], nil
	default:
		return eventmodels.Underlying{}, fmt.Errorf("ResolveUnderlying: %s is ambiguous, %d matches: %w", symbol, len(matches), eventmodels.ErrNotFound)
	}
}
