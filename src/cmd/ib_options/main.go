package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jiaming2012/ib-options/src/cmd/ib_options/run"
	"github.com/jiaming2012/ib-options/src/eventmodels"
	"github.com/jiaming2012/ib-options/src/eventservices"
	"github.com/jiaming2012/ib-options/src/ibkr"
	"github.com/jiaming2012/ib-options/src/logger"
	"github.com/jiaming2012/ib-options/src/presenter"
	"github.com/jiaming2012/ib-options/src/utils"
)

type RunArgs struct {
	Symbol      eventmodels.StockSymbol
	Quote       bool
	Chain       bool
	Right       eventmodels.OptionRight
	Expiration  *eventmodels.ExpirationDate
	Strikes     []float64
	Filter      eventmodels.OptionFilter
	Config      eventmodels.ChainConfigYAML
	Gateway     eventmodels.Gateway
	GatewayAddr string
	Out         io.Writer
}

type RunResult struct {
	Quote   *eventmodels.StockQuote
	Chain   *eventservices.OptionChainResult
	Records []eventmodels.EnrichedRecord
}

var runCmd = &cobra.Command{
	Use:   "ib_options SYMBOL [--quote] [--chain]",
	Short: "Fetch a stock quote and option chain from the IB Client Portal gateway",
	Example: "  ib_options MSFT --quote --chain --right C --max-dte 45 --min-delta 0.2\n" +
		"  ib_options SPY --chain --expiration 20261120 --strikes 560,570,580",
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			log.Fatalf("error getting verbose: %v", err)
		}

		logger.Setup(os.Stderr, verbose)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		runArgs, err := buildRunArgs(cmd, args)
		if err != nil {
			var usageErr *run.UsageError
			if errors.As(err, &usageErr) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				cmd.Usage()
				os.Exit(2)
			}

			log.Fatalf("error reading arguments: %v", err)
		}

		shutdown, err := utils.SetupOTelSDK(ctx, "ib-options")
		if err != nil {
			log.Fatalf("failed to setup otel sdk: %v", err)
		}

		_, err = Run(ctx, runArgs)

		if shutdownErr := shutdown(context.Background()); shutdownErr != nil {
			log.Warnf("failed to flush traces: %v", shutdownErr)
		}

		if err != nil {
			fmt.Fprint(os.Stderr, guidance(err, runArgs))
			log.Fatalf("%v", err)
		}
	},
}

func buildRunArgs(cmd *cobra.Command, args []string) (RunArgs, error) {
	flags := cmd.Flags()

	goEnv, err := flags.GetString("go-env")
	if err != nil {
		return RunArgs{}, err
	}

	if err := utils.InitEnvironmentVariables(goEnv); err != nil {
		return RunArgs{}, err
	}

	quote, err := flags.GetBool("quote")
	if err != nil {
		return RunArgs{}, err
	}

	chain, err := flags.GetBool("chain")
	if err != nil {
		return RunArgs{}, err
	}

	if !quote && !chain {
		return RunArgs{}, &run.UsageError{Err: fmt.Errorf("at least one of --quote or --chain is required")}
	}

	symbol := eventmodels.NewStockSymbol(args[0])
	if err := symbol.Validate(); err != nil {
		return RunArgs{}, &run.UsageError{Err: err}
	}

	rightFlag, err := flags.GetString("right")
	if err != nil {
		return RunArgs{}, err
	}

	right, err := eventmodels.ParseOptionRight(rightFlag)
	if err != nil {
		return RunArgs{}, &run.UsageError{Err: err}
	}

	expirationFlag, err := flags.GetString("expiration")
	if err != nil {
		return RunArgs{}, err
	}

	expiration, err := run.ParseExpiration(expirationFlag)
	if err != nil {
		return RunArgs{}, err
	}

	strikesFlag, err := flags.GetString("strikes")
	if err != nil {
		return RunArgs{}, err
	}

	strikes, err := run.ParseStrikes(strikesFlag)
	if err != nil {
		return RunArgs{}, err
	}

	filter, err := run.BuildOptionFilter(cmd)
	if err != nil {
		return RunArgs{}, err
	}

	configPath, err := flags.GetString("config")
	if err != nil {
		return RunArgs{}, err
	}

	config, err := utils.LoadChainConfig(configPath)
	if err != nil {
		return RunArgs{}, &run.UsageError{Err: err}
	}

	clientCfg, err := run.ResolveGatewayConfig(cmd, config)
	if err != nil {
		return RunArgs{}, err
	}

	client := ibkr.NewClient(clientCfg)

	return RunArgs{
		Symbol:      symbol,
		Quote:       quote,
		Chain:       chain,
		Right:       right,
		Expiration:  expiration,
		Strikes:     strikes,
		Filter:      filter,
		Config:      config,
		Gateway:     client,
		GatewayAddr: fmt.Sprintf("%s:%d", clientCfg.Host, clientCfg.Port),
		Out:         os.Stdout,
	}, nil
}

// Run connects, prints what was asked for and disconnects on every path.
func Run(ctx context.Context, args RunArgs) (RunResult, error) {
	runID := uuid.New()

	tracer := otel.Tracer("ib_options")
	ctx, span := tracer.Start(ctx, "ib_options.Run")
	defer span.End()

	span.SetAttributes(
		attribute.String("run_id", runID.String()),
		attribute.String("symbol", args.Symbol.String()),
	)

	runLog := log.WithField("run_id", runID.String())
	out := args.Out

	var result RunResult

	connected := false
	defer func() {
		if err := args.Gateway.Disconnect(); err != nil {
			runLog.Warnf("disconnect failed: %v", err)
		}

		if connected {
			fmt.Fprintln(out, "\nDisconnected")
		}
	}()

	fmt.Fprintf(out, "Connecting to IB Gateway at %s...\n", args.GatewayAddr)
	if err := args.Gateway.Connect(ctx); err != nil {
		return result, fmt.Errorf("Run: %w", err)
	}

	connected = true
	fmt.Fprintln(out, "Connected")
	runLog.Debugf("resolving %s", args.Symbol)

	underlying, err := eventservices.ResolveUnderlying(ctx, args.Gateway, args.Symbol, args.Config.Chain.Currency, args.Config.Chain.Exchange)
	if err != nil {
		return result, fmt.Errorf("Run: %w", err)
	}

	if args.Quote {
		quote, err := eventservices.FetchStockQuote(ctx, args.Gateway, underlying, args.Config.Timing.QuoteTimeout)
		if err != nil {
			return result, fmt.Errorf("Run: %w", err)
		}

		result.Quote = quote
		presenter.RenderQuote(out, quote)
	}

	if args.Chain {
		fmt.Fprintf(out, "\nFetching %s option chain...\n", args.Symbol)

		fetcher := eventservices.NewOptionChainFetcher(args.Gateway, args.Config)
		chain, err := fetcher.FetchOptionChain(ctx, eventservices.OptionChainRequest{
			Symbol:     args.Symbol,
			Underlying: &underlying,
			Right:      args.Right,
			Expiration: args.Expiration,
			Strikes:    args.Strikes,
		})
		if err != nil {
			return result, fmt.Errorf("Run: %w", err)
		}

		result.Chain = chain

		if len(chain.Records) == 0 {
			fmt.Fprintln(out, "   No options found")
			return result, nil
		}

		fmt.Fprintf(out, "   Found %d contracts\n", len(chain.Records))

		result.Records = eventservices.ApplyFilters(chain.Records, args.Filter)
		fmt.Fprintf(out, "   %d match filters\n", len(result.Records))

		presenter.RenderOptionTable(out, result.Records)
		presenter.RenderSummary(out, presenter.Summarize(result.Records))
	}

	runLog.Debug("run complete")
	return result, nil
}

// guidance is the extra hint printed before a fatal error.
func guidance(err error, args RunArgs) string {
	var invalidExpiration *eventmodels.InvalidExpirationError

	switch {
	case errors.Is(err, eventmodels.ErrConnectionFailure):
		return fmt.Sprintf("Failed to connect to IB Gateway at %s\n"+
			"Make sure the Client Portal gateway is running and the session is logged in.\n", args.GatewayAddr)
	case errors.As(err, &invalidExpiration):
		return fmt.Sprintf("Expiration %s not found for %s\n", invalidExpiration.Requested, args.Symbol)
	case errors.Is(err, eventmodels.ErrNoChainData):
		return fmt.Sprintf("No option chains found for %s\n", args.Symbol)
	case errors.Is(err, eventmodels.ErrNotFound):
		return fmt.Sprintf("Symbol %s not found\n", args.Symbol)
	case errors.Is(err, eventmodels.ErrNoPriceAvailable):
		return fmt.Sprintf("No price available for %s, pass --strikes to select strikes explicitly\n", args.Symbol)
	}

	return ""
}

func main() {
	run.AddFlags(runCmd)

	if err := runCmd.Execute(); err != nil {
		os.Exit(2)
	}
}
