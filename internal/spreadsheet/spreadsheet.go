// Package spreadsheet читает и пишет файлы .xlsx для импорта и экспорта
package spreadsheet

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/zimmet-api/internal/dto"
)

// ContentType - MIME-тип файлов .xlsx
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrEmptyWorkbook возвращается, если в файле нет листов или строки заголовка
var ErrEmptyWorkbook = errors.New("spreadsheet has no header row")

// Column - столбец выгрузки: заголовок и ширина в символах
type Column struct {
	Header string
	Width  float64
}

// Sheet - лист выгрузки
type Sheet struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

// Decode читает первый лист: первая строка - заголовки, остальные - записи.
// Повторяющиеся заголовки получают суффикс "_2", "_3" и т.д.
func Decode(r io.Reader) ([]dto.RawRecord, error) {
	f, err := excelize.OpenReader(r, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptyWorkbook
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, errors.Wrapf(err, "read sheet %s", sheets[0])
	}
	if len(rows) == 0 {
		return nil, ErrEmptyWorkbook
	}

	headers := uniqueHeaders(rows[0])
	records := make([]dto.RawRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rec := make(dto.RawRecord, len(headers))
		filled := false
		for i, header := range headers {
			if header == "" || i >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i])
			if value == "" {
				continue
			}
			rec[header] = value
			filled = true
		}
		// пустые строки не считаются записями, но сохраняют нумерацию листа
		if filled {
			rec[dto.SourceRowKey] = i + 2
			records = append(records, rec)
		}
	}
	return records, nil
}

func uniqueHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		seen[h]++
		if n := seen[h]; n > 1 {
			h = fmt.Sprintf("%s_%d", h, n)
		}
		headers[i] = h
	}
	return headers
}

// Encode пишет лист с жирной строкой заголовков и заданной шириной столбцов
func Encode(w io.Writer, sheet Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheet.Name
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]any, len(sheet.Columns))
	for i, col := range sheet.Columns {
		header[i] = col.Header
		colName, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(name, colName, colName, col.Width); err != nil {
			return errors.Wrapf(err, "set width of column %s", colName)
		}
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	if len(sheet.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		last, err := excelize.CoordinatesToCellName(len(sheet.Columns), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, bold); err != nil {
			return err
		}
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return errors.Wrapf(err, "write row %d", i+1)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write workbook")
	}
	return nil
}
