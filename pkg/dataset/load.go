package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Load reads a dataset file from disk. See Read.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	return Read(data)
}

// Read decodes an XLSX workbook (first sheet) or CSV text. The format is
// detected from the content, not the file name.
func Read(data []byte) (*Dataset, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("dataset is empty")
	}

	mtype := mimetype.Detect(data)
	if mtype.Is(xlsxMIME) || mtype.Is("application/zip") {
		return readXLSX(data)
	}
	return readCSV(data)
}

func readXLSX(data []byte) (*Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRecords(records)
}

func readCSV(data []byte) (*Dataset, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		// Spreadsheet exports on Windows default to cp1252.
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode CSV: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	return fromRecords(records)
}

// detectDelimiter picks ';' over ',' when the header line has more of them.
func detectDelimiter(data []byte) rune {
	header := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		header = data[:i]
	}
	if bytes.Count(header, []byte{';'}) > bytes.Count(header, []byte{','}) {
		return ';'
	}
	return ','
}

// fromRecords turns a header row plus data rows into a Dataset. Every row gets
// every column (missing cells are ""), and rows with only blank cells are skipped.
func fromRecords(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("dataset has no header row")
	}

	columns := headerNames(records[0])
	ds := &Dataset{Columns: columns}
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		var row Row
		for i, c := range columns {
			v := ""
			if i < len(rec) {
				v = rec[i]
			}
			row.Set(c, v)
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds, nil
}

// headerNames trims header cells, names blank ones __EMPTY, __EMPTY_1, ... and
// suffixes repeated names with _1, _2, ...
func headerNames(header []string) []string {
	names := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = "__EMPTY"
		}
		base := name
		for n := 1; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
