package sheet

import (
	"context"
	"errors"
	"fmt"

	"github.com/spigell/community-ranker/internal/storage"
)

// ErrFetch marks failures to reach the place community data lives, as
// opposed to data that was fetched but could not be read.
var ErrFetch = errors.New("fetch community data")

// Source provides the community workbook for one request.
type Source interface {
	Load(ctx context.Context) (*Workbook, error)
	String() string
}

// StorageSource reads an xlsx object from a storage backend.
type StorageSource struct {
	Storage storage.Storage
	Key     string
	Loader  *Loader
}

func (s *StorageSource) Load(ctx context.Context) (*Workbook, error) {
	rc, err := s.Storage.Get(ctx, s.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer rc.Close()

	return s.Loader.ReadWorkbook(rc)
}

func (s *StorageSource) String() string {
	return s.Key
}

// CSVSource reads the two sheets from CSV exports.
type CSVSource struct {
	NeedsPath string
	WantsPath string
	Loader    *Loader
}

func (s *CSVSource) Load(ctx context.Context) (*Workbook, error) {
	wb, err := s.Loader.ReadCSV(ctx, s.NeedsPath, s.WantsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return wb, nil
}

func (s *CSVSource) String() string {
	return s.NeedsPath + "," + s.WantsPath
}

// StaticSource serves an already loaded workbook.
type StaticSource struct {
	Workbook *Workbook
}

func (s *StaticSource) Load(ctx context.Context) (*Workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Workbook, nil
}

func (s *StaticSource) String() string {
	return "static"
}
