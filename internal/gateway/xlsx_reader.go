package gateway

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"exchange-import/internal/domain"
)

// sheetSource is the first non-empty worksheet of a spreadsheet export. Cells arrive
// already split and formatted as displayed, so the delimiter is unused.
type sheetSource struct {
	name   string
	header []string
	// headerRow is the 1-based sheet row of the header.
	headerRow int
	rows      [][]string
}

func openSheet(path string) (*sheetSource, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %s: %w", name, err)
		}
		for i, row := range rows {
			if blank(row) {
				continue
			}
			return &sheetSource{
				name:      filepath.Base(path),
				header:    row,
				headerRow: i + 1,
				rows:      rows[i+1:],
			}, nil
		}
	}
	return nil, fmt.Errorf("no data in spreadsheet %s", filepath.Base(path))
}

func (s *sheetSource) Name() string {
	return s.name
}

func (s *sheetSource) HeaderLine() string {
	return strings.Join(s.header, ",")
}

func (s *sheetSource) HeaderCells() []string {
	return s.header
}

func (s *sheetSource) Rows(rune) ([]domain.RawRow, []domain.RowProblem, error) {
	var rows []domain.RawRow
	for i, cells := range s.rows {
		if blank(cells) {
			continue
		}
		rows = append(rows, domain.RawRow{
			Source: s.name,
			Line:   s.headerRow + 1 + i,
			Cells:  cells,
			Text:   strings.Join(cells, ","),
		})
	}
	return rows, nil, nil
}
