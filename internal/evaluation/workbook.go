package evaluation

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteWorkbook writes the summary, sweep, curve and confusion matrix as
// sheets of one xlsx workbook.
func WriteWorkbook(w io.Writer, r *Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	summary := [][]any{
		{"Metric", "Value"},
		{"Mode", string(r.Mode)},
		{"Threshold", r.Threshold},
		{"Queries", len(r.Queries)},
		{"Accuracy", r.Accuracy},
		{"Precision", r.Precision},
		{"Recall", r.Recall},
		{"F1", r.F1},
		{"Mean distance", r.Distances.Mean},
		{"Min distance", r.Distances.Min},
		{"Max distance", r.Distances.Max},
		{"Std distance", r.Distances.Std},
	}
	if err := writeRows(f, "Summary", summary, bold); err != nil {
		return err
	}

	sweepRows := [][]any{{"Threshold", "Correct", "Incorrect", "Unknown", "Accuracy"}}
	for _, t := range r.Sweep {
		sweepRows = append(sweepRows, []any{t.Threshold, t.Correct, t.Incorrect, t.Unknown, t.Accuracy()})
	}
	if err := addSheet(f, "Threshold sweep", sweepRows, bold); err != nil {
		return err
	}

	curveRows := [][]any{{"Threshold", "Accuracy"}}
	for _, p := range r.Curve {
		curveRows = append(curveRows, []any{p.Threshold, p.Accuracy})
	}
	if err := addSheet(f, "Accuracy curve", curveRows, bold); err != nil {
		return err
	}

	classRows := [][]any{{"Identity", "Name", "Precision", "Recall", "F1", "Support", "Mean distance"}}
	for _, c := range r.Classes {
		classRows = append(classRows, []any{c.Label, c.Name, c.Precision, c.Recall, c.F1, c.Support, c.MeanDistance})
	}
	if err := addSheet(f, "Identities", classRows, bold); err != nil {
		return err
	}

	header := []any{"truth\\predicted"}
	for _, l := range r.Confusion.Labels {
		header = append(header, l)
	}
	confRows := [][]any{header}
	for i, l := range r.Confusion.Labels {
		row := []any{l}
		for _, n := range r.Confusion.Counts[i] {
			row = append(row, n)
		}
		confRows = append(confRows, row)
	}
	if err := addSheet(f, "Confusion matrix", confRows, bold); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func addSheet(f *excelize.File, name string, rows [][]any, headerStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("creating sheet %s: %w", name, err)
	}
	return writeRows(f, name, rows, headerStyle)
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}
