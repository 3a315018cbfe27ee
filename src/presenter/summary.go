package presenter

import (
	"fmt"
	"io"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// ChainSummary aggregates the rendered records. Medians are nil when no
// record carried the field.
type ChainSummary struct {
	Count             int
	MedianIV          *float64
	MedianAbsDelta    *float64
	TotalVolume       float64
	TotalOpenInterest float64
}

func Summarize(records []eventmodels.EnrichedRecord) ChainSummary {
	var ivs, deltas, volumes, openInterest stats.Float64Data
	for _, r := range records {
		if iv := r.Snapshot.ImpliedVolatility; iv != nil && *iv > 0 {
			ivs = append(ivs, *iv)
		}

		if delta := r.Snapshot.Delta; delta != nil {
			deltas = append(deltas, math.Abs(*delta))
		}

		if v := r.Snapshot.Volume; v != nil && *v > 0 {
			volumes = append(volumes, *v)
		}

		if oi := r.Snapshot.OpenInterest; oi != nil && *oi > 0 {
			openInterest = append(openInterest, *oi)
		}
	}

	summary := ChainSummary{Count: len(records)}

	if median, err := ivs.Median(); err == nil {
		summary.MedianIV = &median
	}

	if median, err := deltas.Median(); err == nil {
		summary.MedianAbsDelta = &median
	}

	if total, err := volumes.Sum(); err == nil {
		summary.TotalVolume = total
	}

	if total, err := openInterest.Sum(); err == nil {
		summary.TotalOpenInterest = total
	}

	return summary
}

func RenderSummary(w io.Writer, summary ChainSummary) {
	if summary.Count == 0 {
		return
	}

	fmt.Fprintf(w, "\n%s contracts | median IV %s | median |delta| %s | volume %s | OI %s\n",
		printer.Sprintf("%d", summary.Count),
		formatIV(summary.MedianIV),
		formatDelta(summary.MedianAbsDelta),
		formatCount(&summary.TotalVolume),
		formatCount(&summary.TotalOpenInterest),
	)
}
