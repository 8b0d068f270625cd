package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"

	"exchange-import/internal/domain"
)

func TestFileRepository_Open_Delimited(t *testing.T) {
	tests := []struct {
		name       string
		content    []byte
		delimiter  rune
		wantHeader string
		wantRows   []domain.RawRow
	}{
		{
			name: "comma separated with blank and empty rows",
			content: []byte("Date,Type,Amount,Currency,Order ID\n" +
				"2021-04-10 18:28:12.885,trade payment,-1000,CZK,113180\n" +
				"\n" +
				",,,,\n" +
				"2021-04-10 18:28:12.885,trade fill,\"0,00075667\",BTC,113180\n"),
			delimiter:  ',',
			wantHeader: "Date,Type,Amount,Currency,Order ID",
			wantRows: []domain.RawRow{
				{
					Source: "export.csv",
					Line:   2,
					Cells:  []string{"2021-04-10 18:28:12.885", "trade payment", "-1000", "CZK", "113180"},
					Text:   "2021-04-10 18:28:12.885,trade payment,-1000,CZK,113180",
				},
				{
					Source: "export.csv",
					Line:   5,
					Cells:  []string{"2021-04-10 18:28:12.885", "trade fill", "0,00075667", "BTC", "113180"},
					Text:   "2021-04-10 18:28:12.885,trade fill,\"0,00075667\",BTC,113180",
				},
			},
		},
		{
			name:       "semicolon with CRLF and utf-8 BOM",
			content:    []byte("\xEF\xBB\xBFID;Amount\r\n1;0,5\r\n"),
			delimiter:  ';',
			wantHeader: "ID;Amount",
			wantRows: []domain.RawRow{
				{Source: "export.csv", Line: 2, Cells: []string{"1", "0,5"}, Text: "1;0,5"},
			},
		},
		{
			name:       "windows-1252 without BOM",
			content:    []byte("ID,Note\n7,caf\xe9\n"),
			delimiter:  ',',
			wantHeader: "ID,Note",
			wantRows: []domain.RawRow{
				{Source: "export.csv", Line: 2, Cells: []string{"7", "café"}, Text: "7,café"},
			},
		},
		{
			name:       "quoted field spanning lines",
			content:    []byte("ID,Note\n1,\"first\nsecond\"\n2,x\n"),
			delimiter:  ',',
			wantHeader: "ID,Note",
			wantRows: []domain.RawRow{
				{Source: "export.csv", Line: 2, Cells: []string{"1", "first\nsecond"}, Text: "1,\"first\nsecond\""},
				{Source: "export.csv", Line: 4, Cells: []string{"2", "x"}, Text: "2,x"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := createTempFile(t, "export.csv", tt.content)
			repo := NewFileRepository()

			src, err := repo.Open(context.Background(), path)
			require.NoError(t, err)

			assert.Equal(t, "export.csv", src.Name())
			assert.Equal(t, tt.wantHeader, src.HeaderLine())
			assert.Nil(t, src.HeaderCells())

			rows, problems, err := src.Rows(tt.delimiter)
			require.NoError(t, err)
			assert.Empty(t, problems)
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestFileRepository_Open_UTF16(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("ID,Amount\n1,2.5\n")
	require.NoError(t, err)
	path := createTempFile(t, "utf16.csv", []byte(encoded))

	src, err := NewFileRepository().Open(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "ID,Amount", src.HeaderLine())

	rows, _, err := src.Rows(',')
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"1", "2.5"}, rows[0].Cells)
}

func TestFileRepository_Open_HeaderOnly(t *testing.T) {
	path := createTempFile(t, "empty.csv", []byte("ID,Amount\n"))

	src, err := NewFileRepository().Open(context.Background(), path)
	require.NoError(t, err)

	rows, problems, err := src.Rows(',')
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, problems)
}

func TestFileRepository_Open_Errors(t *testing.T) {
	t.Run("non-existent file", func(t *testing.T) {
		_, err := NewFileRepository().Open(context.Background(), "non_existent_file.csv")
		assert.Error(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		path := createTempFile(t, "export.csv", []byte("ID\n1\n"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewFileRepository().Open(ctx, path)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("corrupt spreadsheet", func(t *testing.T) {
		path := createTempFile(t, "broken.xlsx", []byte("not a zip"))
		_, err := NewFileRepository().Open(context.Background(), path)
		assert.Error(t, err)
	})
}

func TestFileRepository_Open_Spreadsheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]string{"Date", "Type", "Amount", "Currency", "Order ID"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]string{"2021-04-10 18:28:12.885", "trade payment", "-1000", "CZK", "113180"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A4", &[]string{"2021-04-10 18:28:12.885", "trade fill", "0.00075667", "BTC", "113180"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := NewFileRepository().Open(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "export.xlsx", src.Name())
	assert.Equal(t, []string{"Date", "Type", "Amount", "Currency", "Order ID"}, src.HeaderCells())
	assert.Equal(t, "Date,Type,Amount,Currency,Order ID", src.HeaderLine())

	rows, problems, err := src.Rows(';')
	require.NoError(t, err)
	assert.Empty(t, problems)
	require.Len(t, rows, 2)
	assert.Equal(t, 2, rows[0].Line)
	assert.Equal(t, 4, rows[1].Line)
	assert.Equal(t, "BTC", rows[1].Cells[3])
	assert.Equal(t, "2021-04-10 18:28:12.885,trade fill,0.00075667,BTC,113180", rows[1].Text)
}

// createTempFile writes content to a file named name in a per-test directory.
func createTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}
