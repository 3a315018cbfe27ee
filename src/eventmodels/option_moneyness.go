package eventmodels

type OptionMoneyness string

const (
	OptionMoneynessIntheMoney    OptionMoneyness = "in_the_money"
	OptionMoneynessOutOfTheMoney OptionMoneyness = "out_of_the_money"
	OptionMoneynessAtTheMoney    OptionMoneyness = "at_the_money"
)

// ClassifyMoneyness maps a sign-normalized moneyness percentage (positive is
// in the money for both rights) onto a moneyness bucket.
func ClassifyMoneyness(moneynessPct float64) OptionMoneyness {
	switch {
	case moneynessPct > 0:
		return OptionMoneynessIntheMoney
	case moneynessPct < 0:
		return OptionMoneynessOutOfTheMoney
	default:
		return OptionMoneynessAtTheMoney
	}
}
