package infra

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxSpreadsheetBytes caps uploads read into memory.
const MaxSpreadsheetBytes = 10 << 20

var ErrUnsupportedSpreadsheet = errors.New("formato no soportado (usa .xlsx o .csv)")

// ReadRows returns the cells of the first sheet of an xlsx workbook, or of a
// csv file, as text. xlsx cells are read raw so dates arrive as serial numbers.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return readXLSX(r)
	case ".csv":
		return readCSV(r)
	default:
		return nil, ErrUnsupportedSpreadsheet
	}
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(io.LimitReader(r, MaxSpreadsheetBytes))
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx: libro sin hojas")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return rows, nil
}

// readCSV accepts comma or semicolon separated files, sniffed from the first line.
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSpreadsheetBytes))
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	first, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	cr := csv.NewReader(bytes.NewReader(data))
	if strings.Count(first, ";") > strings.Count(first, ",") {
		cr.Comma = ';'
	}
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	return rows, nil
}
