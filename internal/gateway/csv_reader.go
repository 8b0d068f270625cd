package gateway

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"exchange-import/internal/domain"
)

// csvSource is a delimited export held in memory. The delimiter is only known once a
// schema has been chosen from the header, so tokenizing is deferred to Rows.
type csvSource struct {
	name string
	text string
}

func openDelimited(path string) (*csvSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	return newCSVSource(filepath.Base(path), text), nil
}

func newCSVSource(name, text string) *csvSource {
	return &csvSource{name: name, text: text}
}

func (s *csvSource) Name() string {
	return s.name
}

func (s *csvSource) HeaderLine() string {
	for _, l := range strings.Split(s.text, "\n") {
		if l = strings.TrimSuffix(l, "\r"); strings.TrimSpace(l) != "" {
			return l
		}
	}
	return ""
}

func (s *csvSource) HeaderCells() []string {
	return nil
}

// Rows reads every record after the header. Blank records are skipped. A record the
// csv reader rejects becomes a problem carrying its line.
func (s *csvSource) Rows(delimiter rune) ([]domain.RawRow, []domain.RowProblem, error) {
	reader := csv.NewReader(strings.NewReader(s.text))
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to read header from %s: %w", s.name, err)
	}

	var (
		rows     []domain.RawRow
		problems []domain.RowProblem
	)
	for {
		offset := reader.InputOffset()
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		text := strings.Trim(s.text[offset:reader.InputOffset()], "\r\n")
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			raw := domain.RawRow{Source: s.name, Line: parseErr.StartLine, Text: text}
			problems = append(problems, domain.NewRowProblem(domain.ProblemCoercionFailure, parseErr.Err.Error(), raw))
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("error reading record from %s: %w", s.name, err)
		}
		if blank(record) {
			continue
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, domain.RawRow{
			Source: s.name,
			Line:   line,
			Cells:  record,
			Text:   text,
		})
	}
	return rows, problems, nil
}

func blank(record []string) bool {
	for _, c := range record {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
