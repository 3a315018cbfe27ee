package ibkr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt accepts conids the gateway sends either as numbers or as strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("flexInt: invalid integer %s: %w", data, err)
	}

	*f = flexInt(v)
	return nil
}

// flexFloat accepts strikes sent either as numbers or as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("flexFloat: invalid number %s: %w", data, err)
	}

	*f = flexFloat(v)
	return nil
}

type AuthStatusDTO struct {
	Authenticated bool   `json:"authenticated"`
	Competing     bool   `json:"competing"`
	Connected     bool   `json:"connected"`
	Message       string `json:"message"`
}

type TickleDTO struct {
	Session string `json:"session"`
}

type StockContractDTO struct {
	ConID    int    `json:"conid"`
	Exchange string `json:"exchange"`
	IsUS     bool   `json:"isUS"`
}

type StockDTO struct {
	Name       string             `json:"name"`
	AssetClass string             `json:"assetClass"`
	Contracts  []StockContractDTO `json:"contracts"`
}

// StocksResponseDTO is keyed by symbol.
type StocksResponseDTO map[string][]StockDTO

type SectionDTO struct {
	SecType  string `json:"secType"`
	Months   string `json:"months"`
	Exchange string `json:"exchange"`
}

type SearchResultDTO struct {
	ConID         flexInt      `json:"conid"`
	Symbol        string       `json:"symbol"`
	CompanyHeader string       `json:"companyHeader"`
	Description   string       `json:"description"`
	Sections      []SectionDTO `json:"sections"`
}

// OptionMonths returns the contract months listed in the result's OPT section.
func (r SearchResultDTO) OptionMonths() []string {
	for _, section := range r.Sections {
		if section.SecType != "OPT" {
			continue
		}

		var months []string
		for _, m := range strings.Split(section.Months, ";") {
			if m = strings.TrimSpace(m); m != "" {
				months = append(months, m)
			}
		}

		return months
	}

	return nil
}

type StrikesDTO struct {
	Call []float64 `json:"call"`
	Put  []float64 `json:"put"`
}

type ContractInfoDTO struct {
	ConID        flexInt   `json:"conid"`
	Symbol       string    `json:"symbol"`
	Strike       flexFloat `json:"strike"`
	Right        string    `json:"right"`
	MaturityDate string    `json:"maturityDate"`
	Multiplier   string    `json:"multiplier"`
	TradingClass string    `json:"tradingClass"`
	Exchange     string    `json:"exchange"`
	Currency     string    `json:"currency"`
}

type APIErrorDTO struct {
	Error string `json:"error"`
}

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway returned %d for %s: %s", e.StatusCode, e.Path, e.Message)
}

func newAPIError(statusCode int, path string, body []byte) *APIError {
	message := strings.TrimSpace(string(body))

	var dto APIErrorDTO
	if err := json.Unmarshal(body, &dto); err == nil && dto.Error != "" {
		message = dto.Error
	}

	return &APIError{StatusCode: statusCode, Path: path, Message: message}
}
