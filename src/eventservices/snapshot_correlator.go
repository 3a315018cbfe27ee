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

// SnapshotCorrelator qualifies a batch of option specs, requests a snapshot for
// each one and pairs the results back to their contracts by conid.
type SnapshotCorrelator struct {
	Gateway eventmodels.Gateway

	// RequestInterval paces consecutive snapshot requests.
	RequestInterval time.Duration

	// SettleTimeout bounds the wait for option tickers to fill in.
	SettleTimeout time.Duration

	// UnderlyingSampleTimeout bounds each per-contract underlying re-sample.
	UnderlyingSampleTimeout time.Duration

	Now func() time.Time
}

func NewSnapshotCorrelator(gw eventmodels.Gateway, timing eventmodels.TimingConfigYAML) *SnapshotCorrelator {
	return &SnapshotCorrelator{
		Gateway:                 gw,
		RequestInterval:         timing.RequestInterval,
		SettleTimeout:           timing.SettleTimeout,
		UnderlyingSampleTimeout: timing.UnderlyingSampleTimeout,
		Now:                     time.Now,
	}
}

// Correlate returns one entry per qualified contract, in qualification order.
// lastKnownPrice seeds the underlying price used when a re-sample comes back
// empty; pass 0 when no price has been observed yet.
func (c *SnapshotCorrelator) Correlate(ctx context.Context, underlying eventmodels.Underlying, specs []eventmodels.ContractSpec, lastKnownPrice float64) ([]eventmodels.CorrelatedContract, error) {
	tracer := otel.Tracer("eventservices")
	ctx, span := tracer.Start(ctx, "SnapshotCorrelator.Correlate")
	defer span.End()

	span.SetAttributes(attribute.Int("specs", len(specs)))

	if len(specs) == 0 {
		return nil, nil
	}

	qualified, err := c.qualify(ctx, underlying, specs)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("qualified", len(qualified)))
	log.Debugf("qualified %d of %d contracts", len(qualified), len(specs))

	tickers := make(map[int]eventmodels.Ticker, len(qualified))
	for _, contract := range qualified {
		ticker, err := c.Gateway.RequestSnapshot(ctx, contract.ConID, eventmodels.OptionSnapshotFields)
		if err != nil {
			return nil, fmt.Errorf("SnapshotCorrelator.Correlate: failed to request snapshot for %s: %w", contract.ContractSpec, err)
		}

		tickers[contract.ConID] = ticker

		if err := c.Gateway.Sleep(ctx, c.RequestInterval); err != nil {
			return nil, fmt.Errorf("SnapshotCorrelator.Correlate: %w", err)
		}
	}

	settled := awaitTickers(ctx, tickers, c.SettleTimeout)
	log.Debugf("%d of %d option tickers complete before settle timeout", settled, len(tickers))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("SnapshotCorrelator.Correlate: %w", err)
	}

	snapshots := freezeSnapshots(tickers)

	results := make([]eventmodels.CorrelatedContract, 0, len(qualified))
	price := lastKnownPrice
	for _, contract := range qualified {
		sampled, err := SampleUnderlyingPrice(ctx, c.Gateway, underlying, c.UnderlyingSampleTimeout)
		if err == nil {
			price = sampled
		} else if price <= 0 {
			return nil, fmt.Errorf("SnapshotCorrelator.Correlate: %s: %w", contract.ContractSpec, err)
		} else {
			log.Debugf("re-sample of %s failed, reusing %.2f: %v", underlying.Symbol, price, err)
		}

		results = append(results, eventmodels.CorrelatedContract{
			Contract:        contract,
			Snapshot:        snapshots[contract.ConID],
			UnderlyingPrice: price,
			SampledAt:       c.now(),
		})
	}

	return results, nil
}

// qualify batch-qualifies specs and drops anything that was not asked for or
// that repeats a contract already seen.
func (c *SnapshotCorrelator) qualify(ctx context.Context, underlying eventmodels.Underlying, specs []eventmodels.ContractSpec) ([]eventmodels.QualifiedContract, error) {
	requested := make(map[eventmodels.ContractKey]struct{}, len(specs))
	for _, spec := range specs {
		requested[spec.Key()] = struct{}{}
	}

	qualified, err := c.Gateway.QualifyOptions(ctx, underlying, specs)
	if err != nil {
		return nil, fmt.Errorf("SnapshotCorrelator.qualify: failed to qualify %d contracts: %w", len(specs), err)
	}

	seenKeys := make(map[eventmodels.ContractKey]struct{}, len(qualified))
	seenConIDs := make(map[int]struct{}, len(qualified))
	out := make([]eventmodels.QualifiedContract, 0, len(qualified))
	for _, contract := range qualified {
		key := contract.Key()
		if _, ok := requested[key]; !ok {
			log.Warnf("gateway qualified unrequested contract %s, ignoring", contract.ContractSpec)
			continue
		}

		if _, ok := seenKeys[key]; ok {
			continue
		}

		if _, ok := seenConIDs[contract.ConID]; ok {
			continue
		}

		seenKeys[key] = struct{}{}
		seenConIDs[contract.ConID] = struct{}{}
		out = append(out, contract)
	}

	return out, nil
}

func (c *SnapshotCorrelator) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}

	return c.Now()
}

// SampleUnderlyingPrice requests the underlying's price and waits up to
// timeout for it to arrive.
func SampleUnderlyingPrice(ctx context.Context, gw eventmodels.Gateway, underlying eventmodels.Underlying, timeout time.Duration) (float64, error) {
	ticker, err := gw.RequestSnapshot(ctx, underlying.ConID, eventmodels.UnderlyingPriceFields)
	if err != nil {
		return 0, fmt.Errorf("SampleUnderlyingPrice: failed to request snapshot for %s: %w", underlying.Symbol, err)
	}

	awaitTicker(ctx, ticker, timeout)

	price, ok := ticker.Snapshot().Price()
	if !ok {
		return 0, fmt.Errorf("SampleUnderlyingPrice: %s: %w", underlying.Symbol, eventmodels.ErrNoPriceAvailable)
	}

	return price, nil
}

// awaitTicker blocks until the ticker completes, the timeout elapses or ctx
// ends. It reports whether the ticker completed.
func awaitTicker(ctx context.Context, ticker eventmodels.Ticker, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ticker.Done():
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// awaitTickers waits for every ticker against one shared deadline and returns
// how many completed.
func awaitTickers(ctx context.Context, tickers map[int]eventmodels.Ticker, timeout time.Duration) int {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	completed := 0
	for _, ticker := range tickers {
		select {
		case <-ticker.Done():
			completed++
		case <-timer.C:
			return completed
		case <-ctx.Done():
			return completed
		}
	}

	return completed
}

func freezeSnapshots(tickers map[int]eventmodels.Ticker) map[int]eventmodels.Snapshot {
	snapshots := make(map[int]eventmodels.Snapshot, len(tickers))
	for conID, ticker := range tickers {
		snapshot := ticker.Snapshot()
		snapshot.ConID = conID
		if snapshot.IsEmpty() {
			log.Debugf("no market data received for conid %d", conID)
		}
		snapshots[conID] = snapshot
	}

	return snapshots
}
