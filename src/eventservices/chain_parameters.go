package eventservices

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// LookupChainParameters returns the first option parameter group the venue
// lists for the underlying.
func LookupChainParameters(ctx context.Context, gw eventmodels.Gateway, underlying eventmodels.Underlying) (eventmodels.ChainParameters, error) {
	tracer := otel.Tracer("eventservices")
	ctx, span := tracer.Start(ctx, "LookupChainParameters")
	defer span.End()

	chains, err := gw.RequestChainParameters(ctx, underlying)
	if err != nil {
		return eventmodels.ChainParameters{}, fmt.Errorf("LookupChainParameters: failed to fetch chain parameters for %s: %w", underlying.Symbol, err)
	}

	if len(chains) == 0 || chains[0].IsEmpty() {
		return eventmodels.ChainParameters{}, fmt.Errorf("LookupChainParameters: %s: %w", underlying.Symbol, eventmodels.ErrNoChainData)
	}

	if len(chains) > 1 {
		log.Debugf("%s has %d option parameter groups, using trading class %s", underlying.Symbol, len(chains), chains[0].TradingClass)
	}

	return chains[0], nil
}
