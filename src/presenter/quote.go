package presenter

import (
	"fmt"
	"io"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// RenderQuote prints the quote block of one underlying.
func RenderQuote(w io.Writer, quote *eventmodels.StockQuote) {
	fmt.Fprintf(w, "\n%s Quote\n", quote.Symbol)
	fmt.Fprintf(w, "   Last:   %s\n", formatPrice(quote.Last))
	fmt.Fprintf(w, "   Bid:    %s\n", formatPrice(quote.Bid))
	fmt.Fprintf(w, "   Ask:    %s\n", formatPrice(quote.Ask))
	fmt.Fprintf(w, "   Close:  %s\n", formatPrice(quote.Close))
	fmt.Fprintf(w, "   Volume: %s\n", formatCount(quote.Volume))
}
