package ibkr

import (
	"sync"
	"time"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// MarketDataUpdate is one pushed smd message, normalized to string values.
type MarketDataUpdate struct {
	ConID      int
	Fields     map[eventmodels.MarketDataField]string
	ReceivedAt time.Time
}

// Ticker holds the live market data state of one conid. Only the datafeed
// reader goroutine writes to it; readers copy it out with Snapshot.
type Ticker struct {
	conID int

	mu        sync.RWMutex
	requested map[eventmodels.MarketDataField]struct{}
	values    map[eventmodels.MarketDataField]string
	updatedAt time.Time

	done     chan struct{}
	doneOnce sync.Once
}

func newTicker(conID int, fields []eventmodels.MarketDataField) *Ticker {
	t := &Ticker{
		conID:     conID,
		requested: make(map[eventmodels.MarketDataField]struct{}),
		values:    make(map[eventmodels.MarketDataField]string),
		done:      make(chan struct{}),
	}

	t.addFields(fields)
	return t
}

func (t *Ticker) ConID() int {
	return t.conID
}

func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

func (t *Ticker) Snapshot() eventmodels.Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	snapshot := buildSnapshot(t.conID, t.values)
	snapshot.UpdatedAt = t.updatedAt
	return snapshot
}

// Fields returns the union of every field requested on this ticker.
func (t *Ticker) Fields() []eventmodels.MarketDataField {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var fields []eventmodels.MarketDataField
	for _, f := range eventmodels.OptionSnapshotFields {
		if _, ok := t.requested[f]; ok {
			fields = append(fields, f)
		}
	}

	for f := range t.requested {
		if !containsField(eventmodels.OptionSnapshotFields, f) {
			fields = append(fields, f)
		}
	}

	return fields
}

func (t *Ticker) addFields(fields []eventmodels.MarketDataField) {
	t.mu.Lock()
	for _, f := range fields {
		t.requested[f] = struct{}{}
	}
	t.mu.Unlock()

	t.checkComplete()
}

func (t *Ticker) apply(update MarketDataUpdate) {
	t.mu.Lock()
	for field, value := range update.Fields {
		if value == "" {
			continue
		}
		t.values[field] = value
	}
	t.updatedAt = update.ReceivedAt
	t.mu.Unlock()

	t.checkComplete()
}

func (t *Ticker) checkComplete() {
	t.mu.RLock()
	complete := len(t.requested) > 0
	for f := range t.requested {
		if _, ok := t.values[f]; !ok {
			complete = false
			break
		}
	}
	t.mu.RUnlock()

	if complete {
		t.doneOnce.Do(func() { close(t.done) })
	}
}

func containsField(fields []eventmodels.MarketDataField, f eventmodels.MarketDataField) bool {
	for _, x := range fields {
		if x == f {
			return true
		}
	}
	return false
}
