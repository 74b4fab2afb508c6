// Package scoring computes the homebuyer score of every community from the
// wants sheet and the buyer's amenity preferences.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/community-ranker/internal/community"
	"go.uber.org/zap"
)

// ErrInvalidWeight is returned when a preference weight is outside the schema range.
var ErrInvalidWeight = errors.New("invalid preference weight")

// Preferences maps a wants payload key to the buyer's weight for it.
type Preferences map[string]int

// Scorer attaches the homebuyer score column to a wants table.
type Scorer struct {
	schema *community.Schema
	logger *zap.Logger
}

func New(schema *community.Schema, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{schema: schema, logger: logger}
}

// Score returns a copy of the wants table with the score column attached.
// Every scored amenity adds fraction * (weight - min) / (max - min), so the
// lowest weight never contributes and a missing preference reads as the
// lowest weight. Count maxima are taken from t itself.
func (s *Scorer) Score(t *community.Table, prefs Preferences) (*community.Table, error) {
	if s.schema == nil {
		return nil, fmt.Errorf("schema is required")
	}

	columns := s.schema.Scored()
	factors := make([]float64, len(columns))
	for i, col := range columns {
		f, err := s.factor(col, prefs)
		if err != nil {
			return nil, err
		}
		factors[i] = f
	}

	maxima := make(map[string]float64)
	for _, col := range columns {
		if col.Strategy.Kind == community.CountBased {
			maxima[col.Header] = columnMax(t, col.Header)
		}
	}

	scored := t.Clone()
	scored.AddColumn(s.schema.Score)

	for _, row := range scored.Rows {
		var total float64
		for i, col := range columns {
			fraction := Fraction(*col.Strategy, row.Get(col.Header), maxima[col.Header])
			contribution := fraction * factors[i]
			total += contribution

			s.logger.Debug("scored amenity",
				zap.String("community", row.Key),
				zap.String("amenity", col.PreferenceKey),
				zap.Stringer("strategy", col.Strategy.Kind),
				zap.Float64("fraction", fraction),
				zap.Float64("contribution", contribution),
			)
		}
		row.Set(s.schema.Score, community.Number(total))
	}

	s.logger.Info("scored communities", zap.Int("communities", scored.Len()), zap.Int("amenities", len(columns)))

	return scored, nil
}

func (s *Scorer) factor(col community.WantsColumn, prefs Preferences) (float64, error) {
	lo, hi := s.schema.MinPreference, s.schema.MaxPreference
	if hi <= lo {
		return 0, fmt.Errorf("preference range %d..%d is empty", lo, hi)
	}

	w, ok := prefs[col.PreferenceKey]
	if !ok {
		return 0, nil
	}
	if w < lo || w > hi {
		return 0, fmt.Errorf("%w: %s=%d, expected %d..%d", ErrInvalidWeight, col.PreferenceKey, w, lo, hi)
	}
	return float64(w-lo) / float64(hi-lo), nil
}

// Fraction returns how well a single cell matches its amenity, between 0 and 1.
// Empty and unrecognised cells score 0. max is only read by count strategies.
func Fraction(st community.Strategy, c community.Cell, max float64) float64 {
	if c.IsEmpty() {
		return 0
	}

	switch st.Kind {
	case community.PresenceFlag:
		if strings.Contains(c.String(), st.YesMarker) {
			return 1
		}
		return 0
	case community.OrdinalQuality:
		if len(st.Vocabulary) < 2 {
			return 0
		}
		value := community.Normalize(c.String())
		for i, term := range st.Vocabulary {
			if strings.Contains(value, community.Normalize(term)) {
				return float64(i) / float64(len(st.Vocabulary)-1)
			}
		}
		return 0
	case community.CountBased:
		v, ok := Count(c)
		if !ok || max <= 0 {
			return 0
		}
		return clamp(v / max)
	case community.RatingBased:
		v, ok := c.Float()
		if !ok || st.MaxRating <= st.MinRating {
			return 0
		}
		return clamp((v - st.MinRating) / (st.MaxRating - st.MinRating))
	default:
		return 0
	}
}

var integerRun = regexp.MustCompile(`\d+`)

// Count reads a count cell. Text cells such as "40+ clubs" yield their first
// run of digits.
func Count(c community.Cell) (float64, bool) {
	if v, ok := c.Float(); ok {
		return v, true
	}
	if c.IsEmpty() {
		return 0, false
	}
	run := integerRun.FindString(c.String())
	if run == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(run, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func columnMax(t *community.Table, column string) float64 {
	max := 0.0
	for _, row := range t.Rows {
		if v, ok := Count(row.Get(column)); ok && v > max {
			max = v
		}
	}
	return max
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
