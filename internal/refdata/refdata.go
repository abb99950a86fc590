// Package refdata holds the curated reference values that extracted fields
// are reconciled against.
package refdata

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/core/normalize"
)

// Dataset maps a field to its candidate values. It is immutable once built
// and safe for concurrent readers.
type Dataset struct {
	values map[constants.Field][]string
}

// New builds a Dataset from raw columns. Values are trimmed, blanks and
// "nan" cells dropped, and values equal up to case, accents and separator
// runs are kept once, in the spelling of their first occurrence.
func New(columns map[constants.Field][]string) *Dataset {
	d := &Dataset{values: make(map[constants.Field][]string, len(columns))}
	for f, vals := range columns {
		if clean := dedupe(vals); len(clean) > 0 {
			d.values[f] = clean
		}
	}
	return d
}

// Empty returns a dataset with no candidates.
func Empty() *Dataset { return New(nil) }

// Values returns the candidates of f in source order. A field without a
// column yields nil.
func (d *Dataset) Values(f constants.Field) []string {
	if d == nil {
		return nil
	}
	return slices.Clone(d.values[f])
}

// Len is the total number of candidates.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, v := range d.values {
		n += len(v)
	}
	return n
}

// Fields lists the fields that have at least one candidate, in canonical
// field order.
func (d *Dataset) Fields() []constants.Field {
	var out []constants.Field
	for _, f := range constants.AllFields() {
		if d != nil && len(d.values[f]) > 0 {
			out = append(out, f)
		}
	}
	return out
}

func dedupe(vals []string) []string {
	seen := make(map[string]struct{}, len(vals))
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" || strings.EqualFold(v, "nan") {
			continue
		}
		key := normalize.ForMatch(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// LoadXLSX reads the reference workbook. The first row is the header; each
// column whose trimmed title equals a reference field name (ignoring case)
// becomes that field's candidate list. sheet "" selects the first sheet.
//
// A missing workbook is not an error: matching then runs against an empty
// dataset and a warning is logged.
func LoadXLSX(path, sheet string, logger *slog.Logger) (*Dataset, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		logger.Warn("reference workbook not found, matching against empty dataset", "path", path)
		return Empty(), nil
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open reference workbook: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logger.Warn("close reference workbook", "path", path, "error", err)
		}
	}()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return Empty(), nil
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(rows) == 0 {
		logger.Warn("reference sheet is empty", "path", path, "sheet", sheet)
		return Empty(), nil
	}

	byTitle := make(map[string]constants.Field)
	for _, fld := range constants.ReferenceFields {
		byTitle[strings.ToLower(string(fld))] = fld
	}
	colField := make(map[int]constants.Field)
	for i, h := range rows[0] {
		if fld, ok := byTitle[strings.ToLower(strings.TrimSpace(h))]; ok {
			colField[i] = fld
		}
	}

	cols := make(map[constants.Field][]string, len(colField))
	for _, row := range rows[1:] {
		for i, fld := range colField {
			if i < len(row) {
				cols[fld] = append(cols[fld], row[i])
			}
		}
	}
	d := New(cols)
	logger.Info("reference data loaded", "path", path, "sheet", sheet, "fields", len(d.Fields()), "values", d.Len())
	return d, nil
}
