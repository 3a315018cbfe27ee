package eventservices

import (
	"math"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

type RecordPredicate struct {
	Name string
	Keep func(eventmodels.EnrichedRecord) bool
}

// BuildFilterChain turns the supplied thresholds into an ordered predicate
// list. Thresholds the caller left unset contribute nothing.
func BuildFilterChain(filter eventmodels.OptionFilter) []RecordPredicate {
	var chain []RecordPredicate

	if filter.MinDelta != nil {
		t := *filter.MinDelta
		chain = append(chain, RecordPredicate{Name: "min-delta", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.Snapshot.Delta != nil && math.Abs(*r.Snapshot.Delta) >= t
		}})
	}

	if filter.MaxDelta != nil {
		t := *filter.MaxDelta
		chain = append(chain, RecordPredicate{Name: "max-delta", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.Snapshot.Delta != nil && math.Abs(*r.Snapshot.Delta) <= t
		}})
	}

	if filter.MinVolume != nil {
		t := float64(*filter.MinVolume)
		chain = append(chain, RecordPredicate{Name: "min-volume", Keep: func(r eventmodels.EnrichedRecord) bool {
			return isPositive(r.Snapshot.Volume) && *r.Snapshot.Volume >= t
		}})
	}

	if filter.MinOpenInterest != nil {
		t := float64(*filter.MinOpenInterest)
		chain = append(chain, RecordPredicate{Name: "min-oi", Keep: func(r eventmodels.EnrichedRecord) bool {
			return isPositive(r.Snapshot.OpenInterest) && *r.Snapshot.OpenInterest >= t
		}})
	}

	if filter.MinDTE != nil {
		t := *filter.MinDTE
		chain = append(chain, RecordPredicate{Name: "min-dte", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.DTE >= t
		}})
	}

	if filter.MaxDTE != nil {
		t := *filter.MaxDTE
		chain = append(chain, RecordPredicate{Name: "max-dte", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.DTE <= t
		}})
	}

	if filter.OTMOnly {
		chain = append(chain, RecordPredicate{Name: "otm-only", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.Moneyness() == eventmodels.OptionMoneynessOutOfTheMoney
		}})
	}

	if filter.ITMOnly {
		chain = append(chain, RecordPredicate{Name: "itm-only", Keep: func(r eventmodels.EnrichedRecord) bool {
			return r.Moneyness() == eventmodels.OptionMoneynessIntheMoney
		}})
	}

	return chain
}

// ApplyFilters narrows records through each predicate in turn. Input order is
// preserved and the input slice is not modified.
func ApplyFilters(records []eventmodels.EnrichedRecord, filter eventmodels.OptionFilter) []eventmodels.EnrichedRecord {
	if filter.IsEmpty() {
		log.Debugf("no filters set, keeping %d records", len(records))
		return records
	}

	filtered := records
	for _, predicate := range BuildFilterChain(filter) {
		next := make([]eventmodels.EnrichedRecord, 0, len(filtered))
		for _, r := range filtered {
			if predicate.Keep(r) {
				next = append(next, r)
			}
		}

		log.Debugf("filter %s: %d -> %d", predicate.Name, len(filtered), len(next))
		filtered = next
	}

	return filtered
}

func isPositive(v *float64) bool {
	return v != nil && *v > 0
}
