package mock

import (
	"context"
	"sync"
	"time"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

type MockTicker struct {
	conID    int
	mu       sync.Mutex
	snapshot eventmodels.Snapshot
	done     chan struct{}
	once     sync.Once
}

func NewMockTicker(conID int, snapshot eventmodels.Snapshot, complete bool) *MockTicker {
	t := &MockTicker{
		conID:    conID,
		snapshot: snapshot,
		done:     make(chan struct{}),
	}

	if complete {
		t.Complete()
	}

	return t
}

func (t *MockTicker) ConID() int {
	return t.conID
}

func (t *MockTicker) Snapshot() eventmodels.Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot
}

func (t *MockTicker) Done() <-chan struct{} {
	return t.done
}

func (t *MockTicker) Complete() {
	t.once.Do(func() { close(t.done) })
}

// MockGateway is an in-memory eventmodels.Gateway. Every ticker it hands out
// is already complete unless its conid is listed in Incomplete.
type MockGateway struct {
	Underlyings []eventmodels.Underlying
	Chains      []eventmodels.ChainParameters

	// Contracts maps the specs the venue accepts to their conids.
	Contracts map[eventmodels.ContractKey]int

	Snapshots  map[int]eventmodels.Snapshot
	Incomplete map[int]bool

	// UnderlyingPrices are served one per underlying snapshot request; the
	// last value repeats. A non-positive value yields a snapshot without price.
	UnderlyingPrices []float64

	// ExtraQualified is appended to every QualifyOptions result.
	ExtraQualified []eventmodels.QualifiedContract
	ReverseQualify bool

	ConnectErr error
	QualifyErr error
	ChainErr   error

	Connected         bool
	Disconnected      bool
	StockQualifyCalls int
	QualifyCalls      int
	SnapshotRequests  []int
	Sleeps            []time.Duration

	nextConID   int
	priceCursor int
}

func NewMockGateway(underlying eventmodels.Underlying, chains ...eventmodels.ChainParameters) *MockGateway {
	return &MockGateway{
		Underlyings: []eventmodels.Underlying{underlying},
		Chains:      chains,
		Contracts:   make(map[eventmodels.ContractKey]int),
		Snapshots:   make(map[int]eventmodels.Snapshot),
		Incomplete:  make(map[int]bool),
		nextConID:   1000,
	}
}

// AddContract makes spec qualifiable with the given snapshot and returns its conid.
func (g *MockGateway) AddContract(spec eventmodels.ContractSpec, snapshot eventmodels.Snapshot) int {
	g.nextConID++
	g.Contracts[spec.Key()] = g.nextConID
	g.Snapshots[g.nextConID] = snapshot
	return g.nextConID
}

func (g *MockGateway) Connect(ctx context.Context) error {
	if g.ConnectErr != nil {
		return g.ConnectErr
	}

	g.Connected = true
	return nil
}

func (g *MockGateway) Disconnect() error {
	g.Disconnected = true
	return nil
}

func (g *MockGateway) QualifyStock(ctx context.Context, symbol eventmodels.StockSymbol, currency, exchange string) ([]eventmodels.Underlying, error) {
	g.StockQualifyCalls++

	var matches []eventmodels.Underlying
	for _, u := range g.Underlyings {
		if u.Symbol == symbol {
			matches = append(matches, u)
		}
	}

	return matches, nil
}

func (g *MockGateway) QualifyOptions(ctx context.Context, underlying eventmodels.Underlying, specs []eventmodels.ContractSpec) ([]eventmodels.QualifiedContract, error) {
	g.QualifyCalls++
	if g.QualifyErr != nil {
		return nil, g.QualifyErr
	}

	var qualified []eventmodels.QualifiedContract
	for _, spec := range specs {
		conID, found := g.Contracts[spec.Key()]
		if !found {
			continue
		}

		qualified = append(qualified, eventmodels.QualifiedContract{
			ContractSpec: spec,
			ConID:        conID,
			TradingClass: spec.Symbol.String(),
			Multiplier:   "100",
		})
	}

	if g.ReverseQualify {
		for i, j := 0, len(qualified)-1; i < j; i, j = i+1, j-1 {
			qualified[i], qualified[j] = qualified[j], qualified[i]
		}
	}

	return append(qualified, g.ExtraQualified...), nil
}

func (g *MockGateway) RequestChainParameters(ctx context.Context, underlying eventmodels.Underlying) ([]eventmodels.ChainParameters, error) {
	if g.ChainErr != nil {
		return nil, g.ChainErr
	}

	return g.Chains, nil
}

func (g *MockGateway) RequestSnapshot(ctx context.Context, conID int, fields []eventmodels.MarketDataField) (eventmodels.Ticker, error) {
	g.SnapshotRequests = append(g.SnapshotRequests, conID)

	if len(g.Underlyings) > 0 && conID == g.Underlyings[0].ConID && len(g.UnderlyingPrices) > 0 {
		price := g.UnderlyingPrices[g.priceCursor]
		if g.priceCursor < len(g.UnderlyingPrices)-1 {
			g.priceCursor++
		}

		snapshot := g.Snapshots[conID]
		snapshot.Last = nil
		snapshot.Close = nil
		if price > 0 {
			snapshot.Last = eventmodels.Float64Ptr(price)
		}

		return NewMockTicker(conID, snapshot, price > 0 && !g.Incomplete[conID]), nil
	}

	return NewMockTicker(conID, g.Snapshots[conID], !g.Incomplete[conID]), nil
}

func (g *MockGateway) Sleep(ctx context.Context, d time.Duration) error {
	g.Sleeps = append(g.Sleeps, d)
	return ctx.Err()
}

// SnapshotCount returns how many snapshots were requested for conID.
func (g *MockGateway) SnapshotCount(conID int) int {
	n := 0
	for _, id := range g.SnapshotRequests {
		if id == conID {
			n++
		}
	}

	return n
}
