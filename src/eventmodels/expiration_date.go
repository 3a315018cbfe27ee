package eventmodels

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

const ExpirationDateLayout = "20060102"

// ExpirationDate is an option expiration in YYYYMMDD form. The layout sorts
// lexicographically in chronological order.
type ExpirationDate string

func ParseExpirationDate(s string) (ExpirationDate, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(ExpirationDateLayout, s); err != nil {
		return "", fmt.Errorf("ParseExpirationDate: invalid expiration %q, expected YYYYMMDD: %w", s, err)
	}

	return ExpirationDate(s), nil
}

func NewExpirationDate(t time.Time) ExpirationDate {
	return ExpirationDate(t.Format(ExpirationDateLayout))
}

func (d ExpirationDate) String() string {
	return string(d)
}

// In returns midnight of the expiration date in loc.
func (d ExpirationDate) In(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(ExpirationDateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("ExpirationDate: In: %w", err)
	}

	return t, nil
}

// MonthCode returns the gateway's contract month code, e.g. NOV26.
func (d ExpirationDate) MonthCode() (string, error) {
	t, err := d.In(time.UTC)
	if err != nil {
		return "", err
	}

	return strings.ToUpper(t.Format("Jan06")), nil
}

// DaysFrom returns the number of calendar days between now's date and the
// expiration date. Expired dates yield a negative count.
func (d ExpirationDate) DaysFrom(now time.Time) (int, error) {
	exp, err := d.In(now.Location())
	if err != nil {
		return 0, err
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// round, not truncate: a DST shift makes a calendar day 23 or 25 hours long
	return int(math.Round(exp.Sub(today).Hours() / 24)), nil
}

func SortExpirationDates(dates []ExpirationDate) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i] < dates[j]
	})
}
