package run

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jiaming2012/ib-options/src/eventmodels"
	"github.com/jiaming2012/ib-options/src/ibkr"
	"github.com/jiaming2012/ib-options/src/utils"
)

// UsageError marks invalid command line input. The CLI exits 2 on it.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

func usageErrorf(format string, a ...interface{}) error {
	return &UsageError{Err: fmt.Errorf(format, a...)}
}

func AddFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Bool("quote", false, "Print the stock quote")
	flags.Bool("chain", false, "Print the option chain")

	flags.String("host", "localhost", "Client Portal gateway host")
	flags.Int("port", 5000, "Client Portal gateway port")
	flags.Int("client-id", 0, "Session id used to tag log lines (random 100-9999 when unset)")

	flags.String("right", "P", "Option right: P or C")
	flags.String("expiration", "", "Expiration date (YYYYMMDD)")
	flags.String("strikes", "", "Comma separated strikes, replaces the 20% band around the price")

	flags.Float64("min-delta", 0, "Minimum absolute delta")
	flags.Float64("max-delta", 0, "Maximum absolute delta")
	flags.Int("min-volume", 0, "Minimum volume")
	flags.Int("min-oi", 0, "Minimum open interest")
	flags.Int("min-dte", 0, "Minimum days to expiration")
	flags.Int("max-dte", 0, "Maximum days to expiration")
	flags.Bool("otm-only", false, "Only out-of-the-money options")
	flags.Bool("itm-only", false, "Only in-the-money options")

	flags.String("config", "", "YAML file with chain and timing settings")
	flags.String("go-env", "development", "Loads .env.<go-env> when present")
	flags.Bool("verbose", false, "Debug logging")
}

// BuildOptionFilter sets a threshold only for the filter flags given on the
// command line.
func BuildOptionFilter(cmd *cobra.Command) (eventmodels.OptionFilter, error) {
	var filter eventmodels.OptionFilter
	flags := cmd.Flags()

	floatFlag := func(name string) (*float64, error) {
		if !flags.Changed(name) {
			return nil, nil
		}

		v, err := flags.GetFloat64(name)
		if err != nil {
			return nil, usageErrorf("invalid --%s: %v", name, err)
		}

		return &v, nil
	}

	intFlag := func(name string) (*int, error) {
		if !flags.Changed(name) {
			return nil, nil
		}

		v, err := flags.GetInt(name)
		if err != nil {
			return nil, usageErrorf("invalid --%s: %v", name, err)
		}

		return &v, nil
	}

	var err error
	if filter.MinDelta, err = floatFlag("min-delta"); err != nil {
		return filter, err
	}

	if filter.MaxDelta, err = floatFlag("max-delta"); err != nil {
		return filter, err
	}

	if filter.MinVolume, err = intFlag("min-volume"); err != nil {
		return filter, err
	}

	if filter.MinOpenInterest, err = intFlag("min-oi"); err != nil {
		return filter, err
	}

	if filter.MinDTE, err = intFlag("min-dte"); err != nil {
		return filter, err
	}

	if filter.MaxDTE, err = intFlag("max-dte"); err != nil {
		return filter, err
	}

	if filter.OTMOnly, err = flags.GetBool("otm-only"); err != nil {
		return filter, usageErrorf("invalid --otm-only: %v", err)
	}

	if filter.ITMOnly, err = flags.GetBool("itm-only"); err != nil {
		return filter, usageErrorf("invalid --itm-only: %v", err)
	}

	if err := filter.Validate(); err != nil {
		return filter, &UsageError{Err: err}
	}

	return filter, nil
}

// ParseStrikes reads a comma separated strike list. An empty string means
// no explicit strikes.
func ParseStrikes(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var strikes []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		strike, err := strconv.ParseFloat(part, 64)
		if err != nil || strike <= 0 {
			return nil, usageErrorf("invalid strike %q", part)
		}

		strikes = append(strikes, strike)
	}

	return strikes, nil
}

// ParseExpiration returns nil for an empty flag.
func ParseExpiration(s string) (*eventmodels.ExpirationDate, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	exp, err := eventmodels.ParseExpirationDate(s)
	if err != nil {
		return nil, &UsageError{Err: err}
	}

	return &exp, nil
}

// ResolveGatewayConfig layers the connection settings: flags over
// environment over the config file.
func ResolveGatewayConfig(cmd *cobra.Command, config eventmodels.ChainConfigYAML) (ibkr.ClientConfig, error) {
	flags := cmd.Flags()

	clientCfg := ibkr.ClientConfig{
		Host:               utils.GetEnvOrDefault(utils.GatewayHostEnv, config.Gateway.Host),
		InsecureSkipVerify: config.Gateway.InsecureSkipVerify,
		RequestTimeout:     config.Gateway.RequestTimeout,
	}

	var err error
	if clientCfg.Port, err = utils.GetEnvInt(utils.GatewayPortEnv, config.Gateway.Port); err != nil {
		return clientCfg, err
	}

	if clientCfg.ClientID, err = utils.GetEnvInt(utils.ClientIDEnv, 0); err != nil {
		return clientCfg, err
	}

	if flags.Changed("host") {
		if clientCfg.Host, err = flags.GetString("host"); err != nil {
			return clientCfg, usageErrorf("invalid --host: %v", err)
		}
	}

	if flags.Changed("port") {
		if clientCfg.Port, err = flags.GetInt("port"); err != nil {
			return clientCfg, usageErrorf("invalid --port: %v", err)
		}
	}

	if flags.Changed("client-id") {
		if clientCfg.ClientID, err = flags.GetInt("client-id"); err != nil {
			return clientCfg, usageErrorf("invalid --client-id: %v", err)
		}
	}

	if clientCfg.Host == "" {
		return clientCfg, usageErrorf("gateway host is empty")
	}

	if clientCfg.Port <= 0 || clientCfg.Port > 65535 {
		return clientCfg, usageErrorf("invalid gateway port %d", clientCfg.Port)
	}

	if clientCfg.ClientID < 0 {
		return clientCfg, usageErrorf("invalid client id %d", clientCfg.ClientID)
	}

	return clientCfg, nil
}
