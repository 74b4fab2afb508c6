package filtering

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spigell/community-ranker/internal/community"
)

// ErrInvalidCriteria is returned when the homebuyer needs cannot be resolved.
var ErrInvalidCriteria = errors.New("invalid homebuyer needs")

// Needs is the homebuyer needs payload as submitted.
type Needs struct {
	PriceRangeLower string   `mapstructure:"price_range_lower" json:"price_range_lower" yaml:"price_range_lower" validate:"required"`
	PriceRangeUpper string   `mapstructure:"price_range_upper" json:"price_range_upper" yaml:"price_range_upper" validate:"required"`
	AgeOfHome       string   `mapstructure:"age_of_home" json:"age_of_home" yaml:"age_of_home" validate:"required"`
	Location        []string `mapstructure:"location" json:"location" yaml:"location" validate:"required,min=1,dive,location"`
	SizeOfCommunity []string `mapstructure:"size_of_community" json:"size_of_community" yaml:"size_of_community" validate:"required,min=1,dive,size"`
}

// Criteria holds the needs resolved to comparable values.
type Criteria struct {
	PriceLower float64
	PriceUpper float64
	// MinAge is exclusive: a community qualifies when its average home age is above it.
	MinAge    float64
	Locations []string
	Sizes     []string
}

// ParseCriteria resolves the needs against the needs table. Prices are given
// in thousands. The max sentinel for the upper bound resolves to the highest
// price in the table and the any-age sentinel resolves to zero.
func ParseCriteria(s *community.Schema, needs Needs, t *community.Table) (*Criteria, error) {
	lower, err := parseThousands(needs.PriceRangeLower, s.PriceMultiplier)
	if err != nil {
		return nil, fmt.Errorf("%w: price_range_lower: %w", ErrInvalidCriteria, err)
	}

	var upper float64
	if strings.EqualFold(strings.TrimSpace(needs.PriceRangeUpper), s.PriceMaxSentinel) {
		max, ok := t.Max(s.PriceHigh)
		if !ok {
			max = math.Inf(1)
		}
		upper = max
	} else {
		upper, err = parseThousands(needs.PriceRangeUpper, s.PriceMultiplier)
		if err != nil {
			return nil, fmt.Errorf("%w: price_range_upper: %w", ErrInvalidCriteria, err)
		}
	}

	var minAge float64
	if !strings.EqualFold(strings.TrimSpace(needs.AgeOfHome), s.AnyAgeSentinel) {
		age, err := digits(needs.AgeOfHome)
		if err != nil {
			return nil, fmt.Errorf("%w: age_of_home: %w", ErrInvalidCriteria, err)
		}
		minAge = float64(age)
	}

	return &Criteria{
		PriceLower: lower,
		PriceUpper: upper,
		MinAge:     minAge,
		Locations:  trimAll(needs.Location),
		Sizes:      trimAll(needs.SizeOfCommunity),
	}, nil
}

func parseThousands(s string, multiplier float64) (float64, error) {
	n, err := digits(s)
	if err != nil {
		return 0, err
	}
	return float64(n) * multiplier, nil
}

// digits concatenates every ASCII digit in s, so "$400k" reads as 400.
func digits(s string) (int64, error) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, fmt.Errorf("no digits in %q", s)
	}
	return strconv.ParseInt(b.String(), 10, 64)
}

func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
