package filtering

import (
	"context"
	"fmt"
	"sort"

	"github.com/spigell/community-ranker/internal/clustering"
	"github.com/spigell/community-ranker/internal/community"
	"go.uber.org/zap"
)

// FilterNeeds reduces the needs table to the communities satisfying every
// homebuyer need. Communities without a home count cannot be sized and are
// dropped before clustering. The returned table carries the derived size
// column, ordered by home count. The input table is left untouched. An empty
// result is not an error here; callers decide how to report it. Steps
// defaults to the full Steps list.
func FilterNeeds(ctx context.Context, deps Deps, t *community.Table, needs Needs, steps ...Filter) (*community.Table, error) {
	if deps.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	s := deps.Schema

	criteria, err := ParseCriteria(s, needs, t)
	if err != nil {
		return nil, err
	}

	if deps.Logger != nil {
		deps.Logger.Info("filtering communities by homebuyer needs",
			zap.Float64("price_lower", criteria.PriceLower),
			zap.Float64("price_upper", criteria.PriceUpper),
			zap.Float64("min_age", criteria.MinAge),
			zap.Strings("locations", criteria.Locations),
			zap.Strings("sizes", criteria.Sizes),
		)
	}

	sized, err := Cluster(deps, t)
	if err != nil {
		return nil, err
	}

	if len(steps) == 0 {
		steps = Steps()
	}
	return Run(ctx, criteria, deps, steps, sized)
}

// Cluster returns a copy of the table sorted by home count with every
// countable community labelled Small, Medium or Large.
func Cluster(deps Deps, t *community.Table) (*community.Table, error) {
	if deps.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	s := deps.Schema

	sized := t.Clone()
	unsized := sized.Keep(func(r *community.Row) bool {
		return r.Get(s.HomeTotal).IsNumber()
	})
	if deps.Logger != nil && len(unsized) > 0 {
		deps.Logger.Info("excluding communities without a home count",
			zap.Strings("excluded_communities", unsized),
		)
	}

	sort.SliceStable(sized.Rows, func(i, j int) bool {
		a, _ := sized.Rows[i].Get(s.HomeTotal).Float()
		b, _ := sized.Rows[j].Get(s.HomeTotal).Float()
		return a < b
	})

	values := make([]float64, 0, sized.Len())
	for _, row := range sized.Rows {
		v, _ := row.Get(s.HomeTotal).Float()
		values = append(values, v)
	}

	result := clustering.KMeans(values)
	sizes := result.Labels(s.SizeLabels)
	sized.AddColumn(s.Size)
	for i, row := range sized.Rows {
		row.Set(s.Size, community.Text(sizes[i]))
	}

	if deps.Logger != nil {
		deps.Logger.Debug("clustered community sizes",
			zap.Float64s("centroids", result.Centroids[:]),
			zap.Int("iterations", result.Iterations),
		)
	}

	return sized, nil
}
