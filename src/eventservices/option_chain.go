package eventservices

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

type OptionChainRequest struct {
	Symbol eventmodels.StockSymbol

	// Underlying skips resolution when the caller already resolved Symbol.
	Underlying *eventmodels.Underlying

	Right      eventmodels.OptionRight
	Expiration *eventmodels.ExpirationDate

	// Strikes, when set, are used verbatim instead of the price band.
	Strikes []float64
}

type OptionChainResult struct {
	Underlying  eventmodels.Underlying
	Parameters  eventmodels.ChainParameters
	Expirations []eventmodels.ExpirationDate
	Strikes     []float64
	Records     []eventmodels.EnrichedRecord
}

type OptionChainFetcher struct {
	Gateway eventmodels.Gateway
	Chain   eventmodels.ChainSelectionYAML
	Timing  eventmodels.TimingConfigYAML
	Now     func() time.Time
}

func NewOptionChainFetcher(gw eventmodels.Gateway, config eventmodels.ChainConfigYAML) *OptionChainFetcher {
	return &OptionChainFetcher{
		Gateway: gw,
		Chain:   config.Chain,
		Timing:  config.Timing,
		Now:     time.Now,
	}
}

// FetchOptionChain resolves the underlying, picks expirations and strikes,
// snapshots every resulting contract and derives DTE and moneyness for each.
func (f *OptionChainFetcher) FetchOptionChain(ctx context.Context, req OptionChainRequest) (*OptionChainResult, error) {
	tracer := otel.Tracer("eventservices")
	ctx, span := tracer.Start(ctx, "OptionChainFetcher.FetchOptionChain")
	defer span.End()

	span.SetAttributes(
		attribute.String("symbol", req.Symbol.String()),
		attribute.String("right", req.Right.String()),
	)

	if err := req.Right.Validate(); err != nil {
		return nil, fmt.Errorf("FetchOptionChain: %w", err)
	}

	var underlying eventmodels.Underlying
	if req.Underlying != nil {
		underlying = *req.Underlying
	} else {
		resolved, err := ResolveUnderlying(ctx, f.Gateway, req.Symbol, f.Chain.Currency, f.Chain.Exchange)
		if err != nil {
			return nil, err
		}
		underlying = resolved
	}

	params, err := LookupChainParameters(ctx, f.Gateway, underlying)
	if err != nil {
		return nil, err
	}

	expirations, err := SelectExpirations(params, req.Expiration, f.Chain.MaxExpirations)
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChain: %w", err)
	}

	var lastKnownPrice float64
	strikes := req.Strikes
	if len(strikes) == 0 {
		lastKnownPrice, err = SampleUnderlyingPrice(ctx, f.Gateway, underlying, f.Timing.PriceTimeout)
		if err != nil {
			return nil, fmt.Errorf("FetchOptionChain: cannot select strikes: %w", err)
		}

		strikes, err = SelectStrikes(params, lastKnownPrice, f.Chain.StrikeBand)
		if err != nil {
			return nil, fmt.Errorf("FetchOptionChain: %w", err)
		}

		log.Debugf("%s at %.2f: %d strikes within %.0f%%", underlying.Symbol, lastKnownPrice, len(strikes), f.Chain.StrikeBand*100)
	}

	result := &OptionChainResult{
		Underlying:  underlying,
		Parameters:  params,
		Expirations: expirations,
		Strikes:     strikes,
	}

	specs := BuildContractSpecs(underlying.Symbol, expirations, strikes, req.Right, f.Chain.Exchange)
	span.SetAttributes(attribute.Int("contracts.requested", len(specs)))
	if len(specs) == 0 {
		return result, nil
	}

	correlator := NewSnapshotCorrelator(f.Gateway, f.Timing)
	correlator.Now = f.now

	correlated, err := correlator.Correlate(ctx, underlying, specs, lastKnownPrice)
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChain: %w", err)
	}

	records, err := EnrichRecords(correlated, f.now())
	if err != nil {
		return nil, fmt.Errorf("FetchOptionChain: %w", err)
	}

	result.Records = records
	span.SetAttributes(attribute.Int("contracts.returned", len(records)))

	return result, nil
}

func (f *OptionChainFetcher) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}

	return f.Now()
}
