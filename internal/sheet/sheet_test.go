package sheet

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/spigell/community-ranker/internal/community"
	ct "github.com/spigell/community-ranker/internal/community/communitytest"
)

func fixture(s *community.Schema) *Workbook {
	return &Workbook{Needs: ct.Needs(s), Wants: ct.Wants(s)}
}

func assertSameTable(t *testing.T, want, got *community.Table) {
	t.Helper()

	if diff := cmp.Diff(want.Keys(), got.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Columns, got.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	for _, w := range want.Rows {
		g := got.Find(w.Key)
		for _, c := range want.Columns {
			if w.Get(c).Kind() != g.Get(c).Kind() || w.Get(c).String() != g.Get(c).String() {
				t.Fatalf("%s/%s: expected %q, got %q", w.Key, c, w.Get(c).String(), g.Get(c).String())
			}
		}
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	l := NewLoader(s, nil)

	var buf bytes.Buffer
	if err := l.Write(&buf, fixture(s)); err != nil {
		t.Fatalf("write: %v", err)
	}

	wb, err := l.ReadWorkbook(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	assertSameTable(t, ct.Needs(s), wb.Needs)
	assertSameTable(t, ct.Wants(s), wb.Wants)
}

func TestReadWorkbookFileCleansSheets(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(s.WantsSheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	rows := [][]any{
		{" Community Name ", " City ", "Total Homes in community"},
		{"  Sun Ridge ", "Peoria", 1200},
		{"   ", "Nowhere", 10},
		{nil, "Blank", 5},
		{"Desert Trails", "Mesa"},
	}
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		r := row
		if err := f.SetSheetRow(s.NeedsSheet, axis, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}
	if err := f.SetSheetRow(s.WantsSheet, "A1", &[]any{"Community Name"}); err != nil {
		t.Fatalf("set row: %v", err)
	}

	path := filepath.Join(t.TempDir(), "communities.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	wb, err := NewLoader(s, nil).ReadWorkbookFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if diff := cmp.Diff([]string{"Sun Ridge", "Desert Trails"}, wb.Needs.Keys()); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"City", "Total Homes in community"}, wb.Needs.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if v, ok := wb.Needs.Find("Sun Ridge").Get("Total Homes in community").Float(); !ok || v != 1200 {
		t.Fatalf("expected a numeric home count, got %v", v)
	}
	if !wb.Needs.Find("Desert Trails").Get("Total Homes in community").IsEmpty() {
		t.Fatalf("expected a missing trailing cell to read as empty")
	}
	if wb.Wants.Len() != 0 {
		t.Fatalf("expected no wants rows, got %d", wb.Wants.Len())
	}
}

func TestReadWorkbookErrors(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()

	t.Run("missing sheet", func(t *testing.T) {
		t.Parallel()

		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetRow(s.NeedsSheet, "A1", &[]any{s.PrimaryKey}); err != nil {
			t.Fatalf("set row: %v", err)
		}
		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			t.Fatalf("write: %v", err)
		}

		_, err := NewLoader(s, nil).ReadWorkbook(&buf)
		if !errors.Is(err, ErrSheetNotFound) {
			t.Fatalf("expected ErrSheetNotFound, got %v", err)
		}
	})

	t.Run("missing key column", func(t *testing.T) {
		t.Parallel()

		f := excelize.NewFile()
		defer f.Close()
		if _, err := f.NewSheet(s.WantsSheet); err != nil {
			t.Fatalf("new sheet: %v", err)
		}
		if err := f.SetSheetRow(s.NeedsSheet, "A1", &[]any{"Name", "City"}); err != nil {
			t.Fatalf("set row: %v", err)
		}
		var buf bytes.Buffer
		if _, err := f.WriteTo(&buf); err != nil {
			t.Fatalf("write: %v", err)
		}

		_, err := NewLoader(s, nil).ReadWorkbook(&buf)
		if !errors.Is(err, ErrMissingKey) {
			t.Fatalf("expected ErrMissingKey, got %v", err)
		}
	})

	t.Run("not a workbook", func(t *testing.T) {
		t.Parallel()

		if _, err := NewLoader(s, nil).ReadWorkbook(strings.NewReader("plain text")); err == nil {
			t.Fatalf("expected an error")
		}
	})
}

func writeCSV(t *testing.T, dir, name string, table *community.Table) string {
	t.Helper()

	var b strings.Builder
	b.WriteString(`"` + table.Key + `"`)
	for _, c := range table.Columns {
		b.WriteString(`,"` + c + `"`)
	}
	b.WriteString("\n")
	for _, row := range table.Rows {
		b.WriteString(`"` + row.Key + `"`)
		for _, c := range table.Columns {
			b.WriteString(`,"` + row.Get(c).String() + `"`)
		}
		b.WriteString("\n")
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestReadCSV(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	dir := t.TempDir()
	needsPath := writeCSV(t, dir, "needs.csv", ct.Needs(s))
	wantsPath := writeCSV(t, dir, "wants.csv", ct.Wants(s))

	wb, err := NewLoader(s, nil).ReadCSV(context.Background(), needsPath, wantsPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	assertSameTable(t, ct.Needs(s), wb.Needs)
	assertSameTable(t, ct.Wants(s), wb.Wants)

	if _, err := NewLoader(s, nil).ReadCSV(context.Background(), needsPath, filepath.Join(dir, "missing.csv")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestValidateFixture(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	err := Validate(s, fixture(s))

	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DataError, got %v", err)
	}

	want := []string{`sheet "Sheet2", column "Competitive Pickleball?", community "Canyon Gate": rating "" is not within [1,5]`}
	if diff := cmp.Diff(want, derr.Messages()); diff != "" {
		t.Fatalf("problems mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAcceptsCleanData(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	wb := fixture(s)
	wb.Wants.Find(ct.CanyonGate).Set("Competitive Pickleball?", community.Number(3))

	if err := Validate(s, wb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Parallel()

	s := community.DefaultSchema()
	wb := fixture(s)
	wb.Wants.Find(ct.CanyonGate).Set("Competitive Pickleball?", community.Number(3))

	wb.Wants.Exclude([]string{ct.QuailRun})
	wb.Needs.Find(ct.SunRidge).Set(s.Location, community.Text("North Valley/Central"))
	wb.Needs.Find(ct.DesertTrails).Set(s.PriceLow, community.Text("cheap"))
	wb.Needs.Find(ct.PaloVerde).Set(s.HomeAge, community.Number(7.5))
	wb.Needs.Find(ct.LakeVista).Set(s.City, community.Empty())
	wb.Wants.Find(ct.MesaDelSol).Set("Gated?", community.Text("Y&maybe"))
	wb.Wants.Find(ct.SunRidge).Set("Golf Course Quality", community.Text("superb=3"))
	wb.Wants.Find(ct.SunRidge).Set("Competitive Pickleball?", community.Number(7))
	wb.Wants.Columns = slicesWithout(wb.Wants.Columns, "Dog Park?")

	err := Validate(s, wb)
	var derr *DataError
	if !errors.As(err, &derr) {
		t.Fatalf("expected *DataError, got %v", err)
	}

	fragments := []string{
		`"Community Name" column must be the same for sheet "Sheet1" and sheet "Sheet2"`,
		`"Quail Run" is missing from sheet "Sheet2"`,
		`column "City", community "Lake Vista": expected text`,
		`column "Price Range Low", community "Desert Trails": expected a number or nothing, got "cheap"`,
		`column "Average Age of Home", community "Palo Verde": expected a whole number, got "7.5"`,
		`community "Sun Ridge": "North Valley" is not one of`,
		`sheet "Sheet2" is missing column "Dog Park?"`,
		`column "Gated?", community "Mesa Del Sol": "Y&maybe" is not one of [Y N]`,
		`column "Golf Course Quality", community "Sun Ridge": "superb=3" is not one of`,
		`column "Competitive Pickleball?", community "Sun Ridge": rating "7" is not within [1,5]`,
	}
	report := derr.Error()
	for _, fragment := range fragments {
		if !strings.Contains(report, fragment) {
			t.Fatalf("expected %q in report:\n%s", fragment, report)
		}
	}
	if len(derr.Messages()) != len(fragments) {
		t.Fatalf("expected %d problems, got %d:\n%s", len(fragments), len(derr.Messages()), report)
	}
}

func slicesWithout(values []string, drop string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != drop {
			out = append(out, v)
		}
	}
	return out
}
