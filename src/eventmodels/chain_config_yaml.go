package eventmodels

import (
	"fmt"
	"time"
)

type GatewayConfigYAML struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
}

type ChainSelectionYAML struct {
	Exchange       string  `yaml:"exchange"`
	Currency       string  `yaml:"currency"`
	MaxExpirations int     `yaml:"max_expirations"`
	StrikeBand     float64 `yaml:"strike_band"`
}

type TimingConfigYAML struct {
	QuoteTimeout            time.Duration `yaml:"quote_timeout"`
	PriceTimeout            time.Duration `yaml:"price_timeout"`
	RequestInterval         time.Duration `yaml:"request_interval"`
	SettleTimeout           time.Duration `yaml:"settle_timeout"`
	UnderlyingSampleTimeout time.Duration `yaml:"underlying_sample_timeout"`
}

// ChainConfigYAML is the optional --config file. Missing keys keep the
// defaults of DefaultChainConfig.
type ChainConfigYAML struct {
	Gateway GatewayConfigYAML  `yaml:"gateway"`
	Chain   ChainSelectionYAML `yaml:"chain"`
	Timing  TimingConfigYAML   `yaml:"timing"`
}

func DefaultChainConfig() ChainConfigYAML {
	return ChainConfigYAML{
		Gateway: GatewayConfigYAML{
			Host:               "localhost",
			Port:               5000,
			InsecureSkipVerify: true,
			RequestTimeout:     30 * time.Second,
		},
		Chain: ChainSelectionYAML{
			Exchange:       "SMART",
			Currency:       "USD",
			MaxExpirations: 5,
			StrikeBand:     0.20,
		},
		Timing: TimingConfigYAML{
			QuoteTimeout:            2 * time.Second,
			PriceTimeout:            1 * time.Second,
			RequestInterval:         100 * time.Millisecond,
			SettleTimeout:           2 * time.Second,
			UnderlyingSampleTimeout: 100 * time.Millisecond,
		},
	}
}

func (c ChainConfigYAML) Validate() error {
	if c.Gateway.Host == "" {
		return fmt.Errorf("ChainConfigYAML: gateway.host is empty")
	}

	if c.Gateway.Port <= 0 || c.Gateway.Port > 65535 {
		return fmt.Errorf("ChainConfigYAML: invalid gateway.port %d", c.Gateway.Port)
	}

	if c.Chain.MaxExpirations <= 0 {
		return fmt.Errorf("ChainConfigYAML: chain.max_expirations must be positive, got %d", c.Chain.MaxExpirations)
	}

	if c.Chain.StrikeBand <= 0 || c.Chain.StrikeBand >= 1 {
		return fmt.Errorf("ChainConfigYAML: chain.strike_band must be between 0 and 1, got %v", c.Chain.StrikeBand)
	}

	timing := c.Timing
	if timing.QuoteTimeout < 0 || timing.PriceTimeout < 0 || timing.SettleTimeout < 0 ||
		timing.RequestInterval < 0 || timing.UnderlyingSampleTimeout < 0 {
		return fmt.Errorf("ChainConfigYAML: timing values cannot be negative")
	}

	return nil
}
