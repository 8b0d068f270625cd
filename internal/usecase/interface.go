package usecase

import (
	"context"

	"exchange-import/internal/domain"
)

// SourceRepository opens exchange exports.
// The usecase layer depends on this interface, not on a concrete implementation.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=interface.go SourceRepository,Source
type SourceRepository interface {
	Open(ctx context.Context, path string) (Source, error)
}

// Source is one opened export file.
type Source interface {
	Name() string
	// HeaderLine is the raw first line of a delimited file.
	HeaderLine() string
	// HeaderCells is set for sources whose cells come already split, like spreadsheets.
	HeaderCells() []string
	// Rows tokenizes the data rows with the delimiter of the selected schema. Records
	// that cannot be tokenized are returned as problems and reading continues.
	Rows(delimiter rune) ([]domain.RawRow, []domain.RowProblem, error)
}
