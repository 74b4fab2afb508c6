package sheet

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/spigell/community-ranker/internal/community"
)

// DataError lists every problem found in a workbook.
type DataError struct {
	Problems []error
}

func (e *DataError) Error() string {
	return errors.Join(e.Problems...).Error()
}

func (e *DataError) Unwrap() []error {
	return e.Problems
}

// Messages returns the problems as strings, in the order they were found.
func (e *DataError) Messages() []string {
	out := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		out = append(out, p.Error())
	}
	return out
}

// Validate checks a workbook before it is published: both sheets must list
// the same communities, carry every schema column and hold values of the
// expected shape. It returns a *DataError holding every problem, or nil.
func Validate(s *community.Schema, wb *Workbook) error {
	v := &validation{schema: s}

	v.keys(wb.Needs, wb.Wants)

	formats := s.NeedsFormats()
	present := v.columns(s.NeedsSheet, wb.Needs, s.NeedsHeaders())
	for _, header := range present {
		v.format(s.NeedsSheet, wb.Needs, header, formats[header])
	}
	if slices.Contains(present, s.Location) {
		v.locations(s.NeedsSheet, wb.Needs)
	}

	present = v.columns(s.WantsSheet, wb.Wants, s.WantsHeaders())
	for _, col := range s.Wants {
		if !slices.Contains(present, col.Header) {
			continue
		}
		v.format(s.WantsSheet, wb.Wants, col.Header, col.Format)
		if col.Strategy != nil && !col.FreeForm {
			v.vocabulary(s.WantsSheet, wb.Wants, col)
		}
	}

	if len(v.problems) > 0 {
		return &DataError{Problems: v.problems}
	}
	return nil
}

type validation struct {
	schema   *community.Schema
	problems []error
}

func (v *validation) addf(format string, args ...any) {
	v.problems = append(v.problems, fmt.Errorf(format, args...))
}

func (v *validation) keys(needs, wants *community.Table) {
	s := v.schema
	for _, t := range []struct {
		sheet string
		table *community.Table
	}{{s.NeedsSheet, needs}, {s.WantsSheet, wants}} {
		seen := make(map[string]bool, t.table.Len())
		for _, key := range t.table.Keys() {
			if seen[key] {
				v.addf("sheet %q lists %q more than once", t.sheet, key)
			}
			seen[key] = true
		}
	}

	a, b := needs.Keys(), wants.Keys()
	slices.Sort(a)
	slices.Sort(b)
	if slices.Equal(a, b) {
		return
	}

	v.addf("%q column must be the same for sheet %q and sheet %q", s.PrimaryKey, s.NeedsSheet, s.WantsSheet)
	for _, key := range a {
		if !slices.Contains(b, key) {
			v.addf("%q is missing from sheet %q", key, s.WantsSheet)
		}
	}
	for _, key := range b {
		if !slices.Contains(a, key) {
			v.addf("%q is missing from sheet %q", key, s.NeedsSheet)
		}
	}
}

// columns reports missing headers and returns the ones present.
func (v *validation) columns(sheet string, t *community.Table, headers []string) []string {
	present := make([]string, 0, len(headers))
	for _, h := range headers {
		if !t.HasColumn(h) {
			v.addf("sheet %q is missing column %q", sheet, h)
			continue
		}
		present = append(present, h)
	}
	return present
}

func (v *validation) format(sheet string, t *community.Table, header string, format community.CellFormat) {
	for _, row := range t.Rows {
		cell := row.Get(header)
		if matches(format, cell) {
			continue
		}
		v.addf("sheet %q, column %q, community %q: %s, got %q", sheet, header, row.Key, describeFormat(format), cell.String())
	}
}

func matches(format community.CellFormat, c community.Cell) bool {
	switch format {
	case community.FormatText:
		return c.Kind() == community.KindText
	case community.FormatOptionalText:
		return c.Kind() != community.KindNumber
	case community.FormatNumber:
		return c.Kind() != community.KindText
	case community.FormatInteger:
		f, ok := c.Float()
		return ok && f == math.Trunc(f)
	default:
		return true
	}
}

func describeFormat(format community.CellFormat) string {
	switch format {
	case community.FormatText:
		return "expected text"
	case community.FormatOptionalText:
		return "expected text or nothing"
	case community.FormatNumber:
		return "expected a number or nothing"
	case community.FormatInteger:
		return "expected a whole number"
	default:
		return "unexpected value"
	}
}

func (v *validation) locations(sheet string, t *community.Table) {
	s := v.schema
	for _, row := range t.Rows {
		cell := row.Get(s.Location)
		if cell.Kind() != community.KindText {
			continue
		}
		for _, loc := range strings.Split(cell.String(), s.LocationDelimiter) {
			if !slices.Contains(s.Locations, loc) {
				v.addf("sheet %q, column %q, community %q: %q is not one of %v", sheet, s.Location, row.Key, loc, s.Locations)
			}
		}
	}
}

func (v *validation) vocabulary(sheet string, t *community.Table, col community.WantsColumn) {
	st := col.Strategy
	for _, row := range t.Rows {
		cell := row.Get(col.Header)

		switch st.Kind {
		case community.PresenceFlag:
			if cell.Kind() != community.KindText {
				continue
			}
			allowed := []string{community.Normalize(st.YesMarker), community.Normalize(st.NoMarker)}
			for _, part := range strings.Split(community.Normalize(cell.String()), "&") {
				if !slices.Contains(allowed, part) {
					v.addf("sheet %q, column %q, community %q: %q is not one of %v", sheet, col.Header, row.Key, cell.String(), allowed)
					break
				}
			}
		case community.OrdinalQuality:
			if cell.Kind() != community.KindText {
				continue
			}
			allowed := make([]string, 0, len(st.Vocabulary))
			for _, term := range st.Vocabulary {
				allowed = append(allowed, community.Normalize(term))
			}
			quality, _, _ := strings.Cut(community.Normalize(cell.String()), "=")
			if !slices.Contains(allowed, quality) {
				v.addf("sheet %q, column %q, community %q: %q is not one of %v", sheet, col.Header, row.Key, cell.String(), allowed)
			}
		case community.RatingBased:
			r, ok := cell.Float()
			if !ok || r < st.MinRating || r > st.MaxRating {
				v.addf("sheet %q, column %q, community %q: rating %q is not within [%g,%g]", sheet, col.Header, row.Key, cell.String(), st.MinRating, st.MaxRating)
			}
		case community.CountBased:
			// counts are read leniently when scoring
		}
	}
}
