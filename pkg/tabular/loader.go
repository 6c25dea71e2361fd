package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"mcp-insight-service/pkg/errors"
)

// Supported file extensions
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
)

// Load parses buf according to the extension of fileName and returns the data
// rows in source order. The first record supplies column names.
func Load(buf []byte, fileName string) ([]Row, error) {
	ext := strings.ToLower(filepath.Ext(fileName))

	var (
		records [][]string
		err     error
	)
	switch ext {
	case ExtCSV:
		records, err = readCSV(buf)
	case ExtXLSX:
		records, err = readXLSX(buf)
	case ExtXLS:
		records, err = readXLS(buf)
	default:
		return nil, errors.NewParsingError(errors.ErrCodeUnsupportedFormat,
			fmt.Sprintf("unsupported file extension %q", ext), nil).
			WithContext("file_name", fileName).
			WithContext("supported", []string{ExtCSV, ExtXLSX, ExtXLS})
	}
	if err != nil {
		return nil, errors.NewParsingError(errors.ErrCodeMalformedTable,
			fmt.Sprintf("failed to parse %s", fileName), err).
			WithContext("file_name", fileName)
	}

	return toRows(records), nil
}

func readCSV(buf []byte) ([][]string, error) {
	buf = bytes.TrimPrefix(buf, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(buf) {
		return nil, fmt.Errorf("csv content is not valid UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(buf))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func readXLSX(buf []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func readXLS(buf []byte) (records [][]string, err error) {
	// the xls decoder panics on some truncated inputs
	defer func() {
		if r := recover(); r != nil {
			records, err = nil, fmt.Errorf("corrupt xls workbook: %v", r)
		}
	}()

	wb, err := xls.OpenReader(bytes.NewReader(buf), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, fmt.Errorf("no workbook stream in xls container")
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet.MaxRow == 0 {
		// at most a header record
		return nil, nil
	}

	// ReadAllCells fills sheets in order until max records, so MaxRow+1
	// keeps it on the first sheet. Missing rows come back as nil records.
	return wb.ReadAllCells(int(sheet.MaxRow) + 1), nil
}

// toRows applies the header record to every following record. Blank cells are
// omitted so rows stay sparse, and records without any value are dropped.
func toRows(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	header := uniqueNames(records[0])

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		var row Row
		for i, raw := range rec {
			if i >= len(header) {
				break
			}
			if v, ok := cellValue(raw); ok {
				row.Set(header[i], v)
			}
		}
		if row.Len() > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// uniqueNames trims the header record, names blank cells column<N> and
// suffixes repeated names _2, _3 and so on so that no column is lost.
func uniqueNames(record []string) []string {
	header := make([]string, len(record))
	taken := make(map[string]bool, len(record))
	for i, name := range record {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("column%d", i+1)
		}
		candidate := name
		for n := 2; taken[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		taken[candidate] = true
		header[i] = candidate
	}
	return header
}
