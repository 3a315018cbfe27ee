package ibkr

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

var _ eventmodels.Gateway = (*Client)(nil)

// QualifyStock looks the symbol up with the gateway's stock directory. When
// currency is USD only US listings are kept.
func (c *Client) QualifyStock(ctx context.Context, symbol eventmodels.StockSymbol, currency, exchange string) ([]eventmodels.Underlying, error) {
	var resp StocksResponseDTO
	query := url.Values{"symbols": {symbol.String()}}
	if err := c.getJSON(ctx, "/trsrv/stocks", query, &resp); err != nil {
		return nil, fmt.Errorf("Client.QualifyStock: %w", err)
	}

	seen := make(map[int]struct{})
	var out []eventmodels.Underlying
	for _, stock := range resp[symbol.String()] {
		if stock.AssetClass != "" && stock.AssetClass != "STK" {
			continue
		}

		for _, contract := range stock.Contracts {
			if currency == "USD" && !contract.IsUS {
				continue
			}

			if _, found := seen[contract.ConID]; found {
				continue
			}
			seen[contract.ConID] = struct{}{}

			out = append(out, eventmodels.Underlying{
				Symbol:          symbol,
				Exchange:        exchange,
				PrimaryExchange: contract.Exchange,
				Currency:        currency,
				ConID:           contract.ConID,
			})
		}
	}

	return out, nil
}

// RequestChainParameters assembles the option parameter groups of an
// underlying: the OPT months from a contract search, the strikes listed
// for each month, and one contract info probe per month for its maturity
// dates and trading classes. Groups are keyed by trading class; the class
// matching the symbol comes first.
func (c *Client) RequestChainParameters(ctx context.Context, underlying eventmodels.Underlying) ([]eventmodels.ChainParameters, error) {
	tracer := otel.Tracer("ibkr")
	ctx, span := tracer.Start(ctx, "Client.RequestChainParameters")
	defer span.End()

	months, err := c.optionMonths(ctx, underlying)
	if err != nil {
		return nil, fmt.Errorf("Client.RequestChainParameters: %w", err)
	}

	span.SetAttributes(attribute.Int("months", len(months)))

	groups := make(map[string]*chainGroup)
	for _, month := range months {
		strikes, err := c.monthStrikes(ctx, underlying, month)
		if err != nil {
			return nil, fmt.Errorf("Client.RequestChainParameters: %w", err)
		}

		if len(strikes) == 0 {
			c.logger.Debugf("no strikes listed for %s %s", underlying.Symbol, month)
			continue
		}

		probe := strikes[len(strikes)/2]
		infos, err := c.contractInfo(ctx, underlying.ConID, month, probe, eventmodels.Call)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				c.logger.Debugf("no contract info for %s %s: %v", underlying.Symbol, month, err)
				continue
			}

			return nil, fmt.Errorf("Client.RequestChainParameters: %w", err)
		}

		for _, info := range infos {
			expiration, err := eventmodels.ParseExpirationDate(info.MaturityDate)
			if err != nil {
				c.logger.Debugf("skipping contract %d: %v", info.ConID, err)
				continue
			}

			tradingClass := info.TradingClass
			if tradingClass == "" {
				tradingClass = underlying.Symbol.String()
			}

			group, found := groups[tradingClass]
			if !found {
				group = newChainGroup(tradingClass, info.Multiplier, info.Exchange)
				groups[tradingClass] = group
			}

			group.expirations[expiration] = struct{}{}
			for _, strike := range strikes {
				group.strikes[strike] = struct{}{}
			}
		}
	}

	return sortChainGroups(underlying.Symbol, groups, c.exchangeOr(underlying)), nil
}

// QualifyOptions resolves each spec to a conid. Specs the gateway rejects
// are dropped; transport failures abort the batch.
func (c *Client) QualifyOptions(ctx context.Context, underlying eventmodels.Underlying, specs []eventmodels.ContractSpec) ([]eventmodels.QualifiedContract, error) {
	tracer := otel.Tracer("ibkr")
	ctx, span := tracer.Start(ctx, "Client.QualifyOptions")
	defer span.End()

	span.SetAttributes(attribute.Int("specs", len(specs)))

	var out []eventmodels.QualifiedContract
	for _, spec := range specs {
		month, err := spec.Expiration.MonthCode()
		if err != nil {
			c.logger.Debugf("cannot qualify %s: %v", spec, err)
			continue
		}

		infos, err := c.contractInfo(ctx, underlying.ConID, month, spec.Strike, spec.Right)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				c.logger.Debugf("gateway rejected %s: %v", spec, err)
				continue
			}

			return nil, fmt.Errorf("Client.QualifyOptions: %w", err)
		}

		contract, found := matchContractInfo(spec, infos)
		if !found {
			c.logger.Debugf("no listed contract matches %s", spec)
			continue
		}

		out = append(out, contract)
	}

	span.SetAttributes(attribute.Int("qualified", len(out)))
	return out, nil
}

func (c *Client) optionMonths(ctx context.Context, underlying eventmodels.Underlying) ([]string, error) {
	var results []SearchResultDTO
	query := url.Values{
		"symbol":  {underlying.Symbol.String()},
		"secType": {"STK"},
	}

	if err := c.getJSON(ctx, "/iserver/secdef/search", query, &results); err != nil {
		return nil, fmt.Errorf("optionMonths: %w", err)
	}

	for _, result := range results {
		if int(result.ConID) == underlying.ConID {
			return result.OptionMonths(), nil
		}
	}

	for _, result := range results {
		if months := result.OptionMonths(); len(months) > 0 {
			c.logger.Debugf("search did not return conid %d, using %s (conid %d)", underlying.ConID, result.Description, result.ConID)
			return months, nil
		}
	}

	return nil, nil
}

func (c *Client) monthStrikes(ctx context.Context, underlying eventmodels.Underlying, month string) ([]float64, error) {
	var dto StrikesDTO
	query := url.Values{
		"conid":    {strconv.Itoa(underlying.ConID)},
		"sectype":  {"OPT"},
		"month":    {month},
		"exchange": {c.exchangeOr(underlying)},
	}

	if err := c.getJSON(ctx, "/iserver/secdef/strikes", query, &dto); err != nil {
		return nil, fmt.Errorf("monthStrikes: %s: %w", month, err)
	}

	return mergeStrikes(dto.Call, dto.Put), nil
}

// contractInfo is cached: strike probes and qualification often ask for the
// same month, strike and right.
func (c *Client) contractInfo(ctx context.Context, conID int, month string, strike float64, right eventmodels.OptionRight) ([]ContractInfoDTO, error) {
	strikeStr := strconv.FormatFloat(strike, 'f', -1, 64)
	key := fmt.Sprintf("%d|%s|%s|%s", conID, month, strikeStr, right)
	if cached, found := c.contractCache.Get(key); found {
		return cached.([]ContractInfoDTO), nil
	}

	var infos []ContractInfoDTO
	query := url.Values{
		"conid":   {strconv.Itoa(conID)},
		"sectype": {"OPT"},
		"month":   {month},
		"strike":  {strikeStr},
		"right":   {right.String()},
	}

	if err := c.getJSON(ctx, "/iserver/secdef/info", query, &infos); err != nil {
		return nil, fmt.Errorf("contractInfo: %w", err)
	}

	c.contractCache.Set(key, infos, cache.DefaultExpiration)
	return infos, nil
}

func (c *Client) exchangeOr(underlying eventmodels.Underlying) string {
	if underlying.Exchange != "" {
		return underlying.Exchange
	}

	return "SMART"
}

func matchContractInfo(spec eventmodels.ContractSpec, infos []ContractInfoDTO) (eventmodels.QualifiedContract, bool) {
	for _, info := range infos {
		if info.MaturityDate != spec.Expiration.String() {
			continue
		}

		if info.Right != "" && info.Right != spec.Right.String() {
			continue
		}

		if float64(info.Strike) != spec.Strike {
			continue
		}

		if info.ConID == 0 {
			continue
		}

		return eventmodels.QualifiedContract{
			ContractSpec: spec,
			ConID:        int(info.ConID),
			TradingClass: info.TradingClass,
			Multiplier:   info.Multiplier,
		}, true
	}

	return eventmodels.QualifiedContract{}, false
}

type chainGroup struct {
	tradingClass string
	multiplier   string
	exchange     string
	expirations  map[eventmodels.ExpirationDate]struct{}
	strikes      map[float64]struct{}
}

func newChainGroup(tradingClass, multiplier, exchange string) *chainGroup {
	return &chainGroup{
		tradingClass: tradingClass,
		multiplier:   multiplier,
		exchange:     exchange,
		expirations:  make(map[eventmodels.ExpirationDate]struct{}),
		strikes:      make(map[float64]struct{}),
	}
}

func (g *chainGroup) toChainParameters(defaultExchange string) eventmodels.ChainParameters {
	params := eventmodels.ChainParameters{
		Exchange:     g.exchange,
		TradingClass: g.tradingClass,
		Multiplier:   g.multiplier,
	}

	if params.Exchange == "" {
		params.Exchange = defaultExchange
	}

	for e := range g.expirations {
		params.Expirations = append(params.Expirations, e)
	}
	eventmodels.SortExpirationDates(params.Expirations)

	for s := range g.strikes {
		params.Strikes = append(params.Strikes, s)
	}
	sort.Float64s(params.Strikes)

	return params
}

func sortChainGroups(symbol eventmodels.StockSymbol, groups map[string]*chainGroup, defaultExchange string) []eventmodels.ChainParameters {
	out := make([]eventmodels.ChainParameters, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.toChainParameters(defaultExchange))
	}

	sort.Slice(out, func(i, j int) bool {
		iPrimary := out[i].TradingClass == symbol.String()
		jPrimary := out[j].TradingClass == symbol.String()
		if iPrimary != jPrimary {
			return iPrimary
		}

		return out[i].TradingClass < out[j].TradingClass
	})

	return out
}

func mergeStrikes(lists ...[]float64) []float64 {
	seen := make(map[float64]struct{})
	var out []float64
	for _, list := range lists {
		for _, s := range list {
			if _, found := seen[s]; found {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}

	sort.Float64s(out)
	return out
}
