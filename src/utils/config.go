package utils

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jiaming2012/ib-options/src/eventmodels"
)

// LoadChainConfig reads a YAML config over the defaults. An empty path
// returns the defaults.
func LoadChainConfig(path string) (eventmodels.ChainConfigYAML, error) {
	config := eventmodels.DefaultChainConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("LoadChainConfig: failed to read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("LoadChainConfig: failed to unmarshal %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return config, fmt.Errorf("LoadChainConfig: %s: %w", path, err)
	}

	return config, nil
}
