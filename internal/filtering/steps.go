package filtering

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spigell/community-ranker/internal/community"
)

type sizeFilter struct {
	toggle
	sizes []string
}

// NewSize creates a filter that keeps communities whose size category was requested.
func NewSize() Filter {
	return &sizeFilter{}
}

func (f *sizeFilter) Name() string { return "size" }

func (f *sizeFilter) Validate(c *Criteria) error {
	if c == nil {
		return fmt.Errorf("criteria are required")
	}
	f.sizes = c.Sizes
	return nil
}

func (f *sizeFilter) Apply(_ context.Context, deps Deps, t *community.Table) (*community.Table, Step, error) {
	if !t.HasColumn(deps.Schema.Size) {
		return t, Step{}, fmt.Errorf("communities are not sized yet")
	}

	next, step := keep(deps, t, f.Name(), func(r *community.Row) bool {
		return slices.Contains(f.sizes, r.Get(deps.Schema.Size).String())
	})
	return next, step, nil
}

func (f *sizeFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"sizes": strings.Join(f.sizes, ",")})
}

type locationFilter struct {
	toggle
	locations []string
}

// NewLocation creates a filter that keeps communities listing at least one of
// the requested locations. A cell may hold several delimited locations, so
// the match is a substring test.
func NewLocation() Filter {
	return &locationFilter{}
}

func (f *locationFilter) Name() string { return "location" }

func (f *locationFilter) Validate(c *Criteria) error {
	if c == nil {
		return fmt.Errorf("criteria are required")
	}
	f.locations = c.Locations
	return nil
}

func (f *locationFilter) Apply(_ context.Context, deps Deps, t *community.Table) (*community.Table, Step, error) {
	next, step := keep(deps, t, f.Name(), func(r *community.Row) bool {
		cell := r.Get(deps.Schema.Location)
		if cell.IsEmpty() {
			return false
		}
		value := cell.String()
		for _, loc := range f.locations {
			if strings.Contains(value, loc) {
				return true
			}
		}
		return false
	})
	return next, step, nil
}

func (f *locationFilter) Status() Status {
	return f.status(f.Name(), map[string]string{"locations": strings.Join(f.locations, ",")})
}

type priceFilter struct {
	toggle
	lower float64
	upper float64
}

// NewPrice creates a filter that keeps communities whose price range overlaps
// the requested range.
func NewPrice() Filter {
	return &priceFilter{}
}

func (f *priceFilter) Name() string { return "price" }

func (f *priceFilter) Validate(c *Criteria) error {
	if c == nil {
		return fmt.Errorf("criteria are required")
	}
	f.lower = c.PriceLower
	f.upper = c.PriceUpper
	return nil
}

func (f *priceFilter) Apply(_ context.Context, deps Deps, t *community.Table) (*community.Table, Step, error) {
	next, step := keep(deps, t, f.Name(), func(r *community.Row) bool {
		low, okLow := r.Get(deps.Schema.PriceLow).Float()
		high, okHigh := r.Get(deps.Schema.PriceHigh).Float()
		if !okLow || !okHigh {
			return false
		}
		return Overlaps(low, high, f.lower, f.upper)
	})
	return next, step, nil
}

func (f *priceFilter) Status() Status {
	return f.status(f.Name(), map[string]string{
		"lower": strconv.FormatFloat(f.lower, 'f', 0, 64),
		"upper": strconv.FormatFloat(f.upper, 'f', 0, 64),
	})
}

// Overlaps reports whether the community range [low, high] and the requested
// range [lower, upper] share at least one price. Either range may contain the other.
func Overlaps(low, high, lower, upper float64) bool {
	switch {
	case low <= lower && high >= lower:
		return true
	case low <= upper && high >= upper:
		return true
	case low >= lower && low <= upper:
		return true
	case high >= lower && high <= upper:
		return true
	default:
		return false
	}
}

type ageFilter struct {
	toggle
	minAge float64
}

// NewAge creates a filter that keeps communities whose average home age is
// strictly above the requested minimum.
func NewAge() Filter {
	return &ageFilter{}
}

func (f *ageFilter) Name() string { return "age" }

func (f *ageFilter) Validate(c *Criteria) error {
	if c == nil {
		return fmt.Errorf("criteria are required")
	}
	f.minAge = c.MinAge
	return nil
}

func (f *ageFilter) Apply(_ context.Context, deps Deps, t *community.Table) (*community.Table, Step, error) {
	next, step := keep(deps, t, f.Name(), func(r *community.Row) bool {
		age, ok := r.Get(deps.Schema.HomeAge).Float()
		return ok && age > f.minAge
	})
	return next, step, nil
}

func (f *ageFilter) Status() Status {
	return f.status(f.Name(), map[string]string{
		"min_age": strconv.FormatFloat(f.minAge, 'f', -1, 64),
	})
}
