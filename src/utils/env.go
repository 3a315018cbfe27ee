package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const (
	GatewayHostEnv = "IB_GATEWAY_HOST"
	GatewayPortEnv = "IB_GATEWAY_PORT"
	ClientIDEnv    = "IB_CLIENT_ID"
)

// InitEnvironmentVariables loads .env.<goEnv> from the working directory
// when it exists. Variables already set in the process win.
func InitEnvironmentVariables(goEnv string) error {
	if goEnv == "" {
		return nil
	}

	envFile := fmt.Sprintf(".env.%s", goEnv)
	if err := godotenv.Load(envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no %s file, using process environment", envFile)
			return nil
		}

		return fmt.Errorf("failed to load %s file: %w", envFile, err)
	}

	log.Debugf("loaded %s", envFile)
	return nil
}

// GetEnv returns the value of key, or an error when it is unset or empty.
func GetEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s not set", key)
	}

	return value, nil
}

// GetEnvOrDefault returns the value of key, or fallback when it is unset.
func GetEnvOrDefault(key, fallback string) string {
	if value, err := GetEnv(key); err == nil {
		return value
	}

	return fallback
}

// GetEnvInt parses key as an int, returning fallback when it is unset.
func GetEnvInt(key string, fallback int) (int, error) {
	value, err := GetEnv(key)
	if err != nil {
		return fallback, nil
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("GetEnvInt: invalid %s %q: %w", key, value, err)
	}

	return n, nil
}
