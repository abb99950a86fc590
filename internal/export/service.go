// Package export renders stored results as spreadsheets.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/AjayaPrabhu/lcablesync/constants"
	"github.com/AjayaPrabhu/lcablesync/internal/pipeline"
	"github.com/AjayaPrabhu/lcablesync/internal/repository"
)

const (
	SheetResults = "Results"
	SheetFields  = "Fields"
)

// Service is a tiny façade over the result store that produces XLSX bytes.
type Service struct {
	store  repository.ResultStore
	logger *slog.Logger
}

func NewService(store repository.ResultStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportXLSX returns a workbook of the stored results matching f.
func (s *Service) ExportXLSX(ctx context.Context, f repository.ListFilter) ([]byte, error) {
	start := time.Now()
	results, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	out, err := ResultsXLSX(results)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok",
		"rows", len(results),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// ResultsXLSX writes one row per result on the Results sheet and one row per
// field and result on the Fields sheet.
func ResultsXLSX(results []*pipeline.Result) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	// the default sheet is renamed rather than left empty
	if err := f.SetSheetName(f.GetSheetName(0), SheetResults); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetFields); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	fields := constants.AllFields()
	headers := []any{"Document", "Status", "Route", "Pages"}
	for _, fl := range fields {
		headers = append(headers, string(fl))
	}
	headers = append(headers, "LIB Paths", "Source Path", "Run ID")
	if err := writeRow(f, SheetResults, 1, headers); err != nil {
		return nil, err
	}
	if err := writeRow(f, SheetFields, 1, []any{"Document", "Field", "Extracted", "Matched", "Similarity"}); err != nil {
		return nil, err
	}

	detail := 2
	for i, r := range results {
		row := []any{r.Document, string(r.Status), string(r.Route), r.Pages}
		for _, fl := range fields {
			row = append(row, r.Value(fl))
		}
		row = append(row, strings.Join(r.Paths, "\n"), r.SourcePath, r.RunID.String())
		if err := writeRow(f, SheetResults, i+2, row); err != nil {
			return nil, err
		}

		for _, fr := range r.Ordered() {
			if err := writeRow(f, SheetFields, detail, []any{r.Document, string(fr.Field), fr.Extracted, fr.Matched, fr.Score}); err != nil {
				return nil, err
			}
			detail++
		}
	}

	last, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(SheetResults, "A", "A", 48)
	_ = f.SetColWidth(SheetResults, "B", last, 16)
	_ = f.SetColWidth(SheetFields, "A", "A", 48)
	_ = f.SetColWidth(SheetFields, "B", "E", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("xlsx row %d: %w", row, err)
	}
	return nil
}
