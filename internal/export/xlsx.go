package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// numericColumns are written as numbers so spreadsheets can sort them.
var numericColumns = map[string]bool{
	"enrollment": true,
	"score":      true,
}

// writeXLSX writes a single-sheet workbook with the same columns as the CSV export.
func writeXLSX[T any](w io.Writer, sheetName string, header T, rows []T) error {
	var buf bytes.Buffer
	if err := writeCSV(&buf, header, rows); err != nil {
		return err
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		return eris.Wrap(err, "xlsx: read rows")
	}

	f := xlsx.NewFile()
	sheet, err := f.AddSheet(sheetName)
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	var columns []string
	for i, record := range records {
		if i == 0 {
			columns = record
		}

		row := sheet.AddRow()
		for j, value := range record {
			cell := row.AddCell()
			if i > 0 && numericColumns[columns[j]] {
				if n, err := strconv.Atoi(value); err == nil {
					cell.SetInt(n)
					continue
				}
			}
			cell.SetString(value)
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "xlsx: write workbook")
	}
	return nil
}
