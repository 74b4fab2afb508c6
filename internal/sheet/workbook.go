// Package sheet loads the community workbook into tables and checks it
// before it is published.
package sheet

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
)

var (
	ErrSheetNotFound = errors.New("worksheet not found")
	ErrMissingKey    = errors.New("primary key column not found")
)

// Workbook holds both community sheets.
type Workbook struct {
	Needs *community.Table
	Wants *community.Table
}

// Loader reads community data laid out by a schema.
type Loader struct {
	schema *community.Schema
	logger *zap.Logger
}

func NewLoader(schema *community.Schema, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{schema: schema, logger: logger}
}

// ReadWorkbook reads the needs and wants sheets of an xlsx document.
func (l *Loader) ReadWorkbook(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	return l.read(f)
}

// ReadWorkbookFile reads the workbook stored at path.
func (l *Loader) ReadWorkbookFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	return l.read(f)
}

func (l *Loader) read(f *excelize.File) (*Workbook, error) {
	needs, err := l.readSheet(f, l.schema.NeedsSheet)
	if err != nil {
		return nil, err
	}
	wants, err := l.readSheet(f, l.schema.WantsSheet)
	if err != nil {
		return nil, err
	}
	return &Workbook{Needs: needs, Wants: wants}, nil
}

func (l *Loader) readSheet(f *excelize.File, name string) (*community.Table, error) {
	idx, err := f.GetSheetIndex(name)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
	}

	l.logger.Info("reading sheet", zap.String("sheet", name))

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}

	t, err := toTable(rows, l.schema.PrimaryKey)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", name, err)
	}

	l.logger.Debug("sheet loaded",
		zap.String("sheet", name),
		zap.Int("communities", t.Len()),
		zap.Strings("columns", t.Columns),
	)
	return t, nil
}

// toTable converts raw records, header first, into a table. Headers and keys
// are trimmed and rows with a blank key are dropped.
func toTable(records [][]string, key string) (*community.Table, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	keyIdx := slices.Index(headers, key)
	if keyIdx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingKey, key)
	}

	columns := make([]string, 0, len(headers))
	for i, h := range headers {
		if i != keyIdx && h != "" {
			columns = append(columns, h)
		}
	}

	t := community.NewTable(key, columns)
	for _, rec := range records[1:] {
		if keyIdx >= len(rec) {
			continue
		}
		name := strings.TrimSpace(rec[keyIdx])
		if name == "" {
			continue
		}

		row := community.NewRow(name)
		for i, h := range headers {
			if i == keyIdx || h == "" {
				continue
			}
			var raw string
			if i < len(rec) {
				raw = rec[i]
			}
			row.Set(h, community.ParseCell(raw))
		}
		t.Append(row)
	}
	return t, nil
}

// Write renders both sheets as an xlsx document.
func (l *Loader) Write(w io.Writer, wb *Workbook) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), l.schema.NeedsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(l.schema.WantsSheet); err != nil {
		return err
	}

	if err := writeSheet(f, l.schema.NeedsSheet, wb.Needs); err != nil {
		return err
	}
	if err := writeSheet(f, l.schema.WantsSheet, wb.Wants); err != nil {
		return err
	}

	_, err := f.WriteTo(w)
	return err
}

func writeSheet(f *excelize.File, name string, t *community.Table) error {
	header := make([]any, 0, len(t.Columns)+1)
	header = append(header, t.Key)
	for _, c := range t.Columns {
		header = append(header, c)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q: %w", name, err)
	}

	for i, row := range t.Rows {
		values := make([]any, 0, len(t.Columns)+1)
		values = append(values, row.Key)
		for _, c := range t.Columns {
			cell := row.Get(c)
			switch {
			case cell.IsEmpty():
				values = append(values, nil)
			case cell.IsNumber():
				v, _ := cell.Float()
				values = append(values, v)
			default:
				values = append(values, cell.String())
			}
		}

		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, axis, &values); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
	}
	return nil
}
