package sheet

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/community-ranker/internal/community"
)

// ReadCSV loads the needs and wants sheets from two CSV exports.
func (l *Loader) ReadCSV(ctx context.Context, needsPath, wantsPath string) (*Workbook, error) {
	wb := &Workbook{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := l.readCSVFile(ctx, needsPath)
		if err != nil {
			return err
		}
		wb.Needs = t
		return nil
	})
	g.Go(func() error {
		t, err := l.readCSVFile(ctx, wantsPath)
		if err != nil {
			return err
		}
		wb.Wants = t
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return wb, nil
}

func (l *Loader) readCSVFile(ctx context.Context, path string) (*community.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	t, err := l.ReadCSVTable(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	l.logger.Info("csv loaded", zap.String("path", path), zap.Int("communities", t.Len()))
	return t, nil
}

// ReadCSVTable reads one sheet exported as CSV.
func (l *Loader) ReadCSVTable(r io.Reader) (*community.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return toTable(records, l.schema.PrimaryKey)
}
