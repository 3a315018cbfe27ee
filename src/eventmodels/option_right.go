package eventmodels

import (
	"fmt"
	"strings"
)

// OptionRight is the contract class of an option, as the gateway spells it.
type OptionRight string

const (
	Put  OptionRight = "P"
	Call OptionRight = "C"
)

func (r OptionRight) Validate() error {
	if r != Put && r != Call {
		return fmt.Errorf("OptionRight: Validate: invalid option right: %s", r)
	}

	return nil
}

func (r OptionRight) String() string {
	return string(r)
}

func ParseOptionRight(s string) (OptionRight, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "P", "PUT":
		return Put, nil
	case "C", "CALL":
		return Call, nil
	}

	return "", fmt.Errorf("ParseOptionRight: invalid option right %q, expected P or C", s)
}
