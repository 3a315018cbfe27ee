package eventmodels

import (
	"errors"
	"fmt"
	"strings"
)

var ErrConnectionFailure = errors.New("gateway connection failed")
var ErrNotFound = errors.New("symbol not found")
var ErrNoChainData = errors.New("no option chains found")
var ErrInvalidExpiration = errors.New("expiration not found")
var ErrNoPriceAvailable = errors.New("no underlying price available")
var ErrConflictingMoneynessFilters = errors.New("--otm-only and --itm-only cannot be combined")

const InvalidExpirationHintCount = 10

// InvalidExpirationError reports a requested expiration that the chain does
// not list, with the first few valid expirations as a hint.
type InvalidExpirationError struct {
	Requested ExpirationDate
	Available []ExpirationDate
}

func NewInvalidExpirationError(requested ExpirationDate, available []ExpirationDate) *InvalidExpirationError {
	hint := available
	if len(hint) > InvalidExpirationHintCount {
		hint = hint[:InvalidExpirationHintCount]
	}

	return &InvalidExpirationError{
		Requested: requested,
		Available: append([]ExpirationDate(nil), hint...),
	}
}

func (e *InvalidExpirationError) Error() string {
	available := make([]string, len(e.Available))
	for i, exp := range e.Available {
		available[i] = exp.String()
	}

	return fmt.Sprintf("expiration %s not found, available: %s", e.Requested, strings.Join(available, ", "))
}

func (e *InvalidExpirationError) Unwrap() error {
	return ErrInvalidExpiration
}
