package gateway

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"exchange-import/internal/usecase"
)

// FileRepository implements the SourceRepository interface for exports on the local
// filesystem. Spreadsheets are read with excelize; anything else is treated as
// delimited text.
type FileRepository struct{}

// NewFileRepository creates a new repository instance.
func NewFileRepository() *FileRepository {
	return &FileRepository{}
}

// Open loads the export at path.
func (r *FileRepository) Open(ctx context.Context, path string) (usecase.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		src, err := openSheet(path)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := openDelimited(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open export file %s: %w", path, err)
		}
		return src, nil
	}
}
