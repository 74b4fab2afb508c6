package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/sheet"
	"github.com/spigell/community-ranker/internal/storage"
)

const sourceCSV = "csv"

// newStorage builds the backend of the storage section. typ overrides the
// configured type when set.
func newStorage(ctx context.Context, config *Config, typ string, logger *zap.Logger) (storage.Storage, error) {
	cfg := config.Storage
	if typ != "" {
		cfg.Type = storage.Type(typ)
	}
	return storage.New(ctx, cfg, logger)
}

// newSource resolves data.source into something ranking can load from.
func newSource(ctx context.Context, config *Config, loader *sheet.Loader, logger *zap.Logger) (sheet.Source, error) {
	if config.Data.Source == sourceCSV {
		if config.Data.NeedsCSV == "" || config.Data.WantsCSV == "" {
			return nil, fmt.Errorf("data.needs-csv and data.wants-csv are required for the csv source")
		}
		return &sheet.CSVSource{
			NeedsPath: config.Data.NeedsCSV,
			WantsPath: config.Data.WantsCSV,
			Loader:    loader,
		}, nil
	}

	store, err := newStorage(ctx, config, config.Data.Source, logger)
	if err != nil {
		return nil, err
	}
	return &sheet.StorageSource{Storage: store, Key: config.Data.Object, Loader: loader}, nil
}

// loadWorkbook reads a local xlsx file, or the configured source when path is empty.
func loadWorkbook(ctx context.Context, config *Config, schema *community.Schema, path string, logger *zap.Logger) (*sheet.Workbook, error) {
	loader := sheet.NewLoader(schema, logger)
	if path != "" {
		return loader.ReadWorkbookFile(path)
	}

	src, err := newSource(ctx, config, loader, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("loading community data", zap.String("source", src.String()))
	return src.Load(ctx)
}
