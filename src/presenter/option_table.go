package presenter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

const NoOptionsMessage = "No options match the criteria"

var optionTableHeader = []string{"Exp", "DTE", "Strike", "Type", "Money%", "Bid", "Ask", "Last", "Vol", "OI", "Delta", "IV"}

func optionTableRow(r eventmodels.EnrichedRecord) []string {
	strike := r.Contract.Strike
	return []string{
		r.Contract.Expiration.String(),
		strconv.Itoa(r.DTE),
		formatPrice(&strike),
		r.Contract.Right.String(),
		formatMoneyness(r.MoneynessPct),
		formatPrice(r.Snapshot.Bid),
		formatPrice(r.Snapshot.Ask),
		formatPrice(r.Snapshot.Last),
		formatCount(r.Snapshot.Volume),
		formatCount(r.Snapshot.OpenInterest),
		formatDelta(r.Snapshot.Delta),
		formatIV(r.Snapshot.ImpliedVolatility),
	}
}

// RenderOptionTable prints one left-aligned, borderless row per record in
// the order given.
func RenderOptionTable(w io.Writer, records []eventmodels.EnrichedRecord) {
	if len(records) == 0 {
		fmt.Fprintln(w, NoOptionsMessage)
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(optionTableHeader)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetColumnSeparator("")
	table.SetCenterSeparator("")
	table.SetRowSeparator("-")
	table.SetHeaderLine(true)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, r := range records {
		table.Append(optionTableRow(r))
	}

	fmt.Fprintln(w)
	table.Render()
}
