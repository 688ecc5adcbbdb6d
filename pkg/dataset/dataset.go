// Package dataset holds the tabular data that drives a certificate batch.
//
// A Dataset is an ordered list of columns and one Row per certificate. Rows are
// ordered mappings from column name to a scalar value (string, number, bool or
// blank). Lookups never fail: a missing column or a blank value reads as "".
//
// Load and Read ingest the first sheet of an XLSX workbook or a CSV file, using the
// first row as the header.
package dataset

import (
	"fmt"
	"strconv"
)

// Dataset is the decoded table.
type Dataset struct {
	Columns []string // Header order
	Rows    []Row
}

// Row is one record. The zero value is an empty row ready to use.
type Row struct {
	keys   []string
	values map[string]any
}

// NewRow builds a row from parallel column and value slices. Extra values are
// dropped and missing values are blank.
func NewRow(columns []string, values []any) Row {
	var r Row
	for i, c := range columns {
		var v any
		if i < len(values) {
			v = values[i]
		}
		r.Set(c, v)
	}
	return r
}

// RowFromPairs builds a row from key/value pairs given as alternating arguments,
// preserving argument order.
func RowFromPairs(pairs ...any) Row {
	var r Row
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

// Set assigns a value, appending the key if it is new.
func (r *Row) Set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the stringified value of key. ok is false when the key is absent
// or its value is nil.
func (r Row) Get(key string) (value string, ok bool) {
	v, found := r.values[key]
	if !found || v == nil {
		return "", false
	}
	return Stringify(v), true
}

// Value returns the raw value of key.
func (r Row) Value(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the column names in insertion order.
func (r Row) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Len returns the number of columns in the row.
func (r Row) Len() int { return len(r.keys) }

// Stringify renders a scalar the way a spreadsheet shows it: integers without a
// decimal point, floats in their shortest form, nil as "".
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
