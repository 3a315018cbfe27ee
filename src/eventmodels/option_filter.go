package eventmodels

// OptionFilter holds the optional thresholds of the filter chain. A nil
// pointer (or false flag) means the caller did not ask for that predicate.
type OptionFilter struct {
	MinDelta        *float64
	MaxDelta        *float64
	MinVolume       *int
	MinOpenInterest *int
	MinDTE          *int
	MaxDTE          *int
	OTMOnly         bool
	ITMOnly         bool
}

// Validate rejects threshold combinations that can only ever match nothing.
func (f OptionFilter) Validate() error {
	if f.OTMOnly && f.ITMOnly {
		return ErrConflictingMoneynessFilters
	}

	return nil
}

func (f OptionFilter) IsEmpty() bool {
	return f.MinDelta == nil && f.MaxDelta == nil && f.MinVolume == nil && f.MinOpenInterest == nil &&
		f.MinDTE == nil && f.MaxDTE == nil && !f.OTMOnly && !f.ITMOnly
}
