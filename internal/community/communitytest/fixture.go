// Package communitytest provides a small community workbook for tests.
//
// Home counts cluster into Small (Palo Verde, Desert Trails, Saguaro Heights,
// Sun Ridge), Medium (Lake Vista, Canyon Gate) and Large (Mesa Del Sol).
// Quail Run has no home count.
package communitytest

import (
	"github.com/spigell/community-ranker/internal/community"
)

const (
	SunRidge       = "Sun Ridge"
	DesertTrails   = "Desert Trails"
	PaloVerde      = "Palo Verde"
	CanyonGate     = "Canyon Gate"
	LakeVista      = "Lake Vista"
	MesaDelSol     = "Mesa Del Sol"
	QuailRun       = "Quail Run"
	SaguaroHeights = "Saguaro Heights"
)

// Order is the row order of both sheets.
var Order = []string{SunRidge, DesertTrails, PaloVerde, CanyonGate, LakeVista, MesaDelSol, QuailRun, SaguaroHeights}

// NeedsRows follows Schema.NeedsHeaders: city, location, average price, price
// low, price high, HOA fee, total homes, average age, preservation fee, link.
var NeedsRows = map[string][]string{
	SunRidge:       {"Peoria", "West Valley", "450000", "350000", "600000", "2400", "1200", "8", "0.25%", "https://example.com/sun-ridge"},
	DesertTrails:   {"Mesa", "East Valley", "380000", "300000", "450000", "1800", "600", "15", "", "https://example.com/desert-trails"},
	PaloVerde:      {"Phoenix", "Central", "700000", "550000", "900000", "3000", "300", "7", "500", "https://example.com/palo-verde"},
	CanyonGate:     {"Surprise", "West Valley/Central", "520000", "400000", "700000", "2100", "5000", "12", "", "https://example.com/canyon-gate"},
	LakeVista:      {"Gilbert", "East Valley", "610000", "500000", "800000", "2600", "2500", "6", "1000", ""},
	MesaDelSol:     {"Mesa", "East Valley", "330000", "250000", "400000", "1500", "9000", "25", "", "https://example.com/mesa-del-sol"},
	QuailRun:       {"Goodyear", "West Valley", "480000", "420000", "560000", "2000", "", "10", "", "https://example.com/quail-run"},
	SaguaroHeights: {"Tempe", "Central", "900000", "800000", "1200000", "4000", "800", "2", "", "https://example.com/saguaro-heights"},
}

// WantsRows follows Schema.WantsHeaders.
var WantsRows = map[string][]string{
	//               golf  clubs        rec  golf q       trails   fish dog  gated  pool               wood mtn  soft isolated pickleball
	SunRidge:       {"2", "40+ clubs", "3", "GREAT", "GOOD", "Y", "Y", "N", "Y (indoor only)", "Y", "Y", "N", "N", "5"},
	DesertTrails:   {"0", "10", "1", "", "OK", "N", "Y", "N", "N", "N", "N", "Y", "N", "2"},
	PaloVerde:      {"1", "80 clubs", "2", "OK-GOOD", "GREAT", "N", "Y", "Y", "Y", "N", "Y", "N", "Y", "3"},
	CanyonGate:     {"4", "about 20", "4", "VERY GOOD", "", "Y", "N", "Y&N", "Y", "Y", "N", "Y", "N", ""},
	LakeVista:      {"3", "25", "2", "GOOD", "GOOD", "Y", "Y", "Y", "N", "N", "N", "N", "N", "4"},
	MesaDelSol:     {"8", "120", "6", "GREAT", "GREAT", "Y", "Y", "N", "Y", "Y", "N", "Y", "N", "5"},
	QuailRun:       {"0", "none", "0", "", "OK", "N", "N", "N", "N", "N", "Y", "N", "Y", "1"},
	SaguaroHeights: {"1", "15", "1", "OK", "", "N", "Y", "Y", "Y", "N", "Y", "N", "Y", "2"},
}

// Needs returns the needs sheet as a table.
func Needs(s *community.Schema) *community.Table {
	return build(s.PrimaryKey, s.NeedsHeaders(), NeedsRows)
}

// Wants returns the wants sheet as a table.
func Wants(s *community.Schema) *community.Table {
	return build(s.PrimaryKey, s.WantsHeaders(), WantsRows)
}

func build(key string, headers []string, rows map[string][]string) *community.Table {
	table := community.NewTable(key, headers)
	for _, name := range Order {
		row := community.NewRow(name)
		for i, raw := range rows[name] {
			row.Set(headers[i], community.ParseCell(raw))
		}
		table.Append(row)
	}
	return table
}

// Preferences used by the ranking scenario in tests.
var Preferences = map[string]int{
	"mult_golf_courses":      3,
	"many_social_clubs":      5,
	"quality_golf_courses":   4,
	"quality_trails":         2,
	"fishing":                1,
	"dog_park":               5,
	"gated":                  3,
	"indoor_pool":            2,
	"woodwork_shop":          1,
	"mountain_views":         4,
	"softball_field":         1,
	"isolated_from_city":     1,
	"competitive_pickleball": 5,
}

// Expected scores of the filtered communities under Preferences.
const (
	SunRidgeScore   = 13.0 / 3.0
	PaloVerdeScore  = 191.0 / 48.0
	CanyonGateScore = 37.0 / 24.0
)
