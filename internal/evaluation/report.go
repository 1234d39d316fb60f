package evaluation

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Report file names inside the results directory.
const (
	ReportFile          = "analysis_report.txt"
	ConfusionMatrixFile = "confusion_matrix.csv"
	ThresholdSweepFile  = "threshold_sweep.csv"
	AccuracyCurveFile   = "accuracy_curve.csv"
	DistancesFile       = "distances.csv"
	WorkbookFile        = "analysis_results.xlsx"
)

var rule = strings.Repeat("=", 60)

// WriteText writes the human-readable report.
func WriteText(w io.Writer, r *Result, generatedAt time.Time) error {
	var b strings.Builder

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, " FACE RECOGNITION - PERFORMANCE REPORT")
	fmt.Fprintf(&b, " Date: %s\n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, " Mode: %s, threshold %.2f, %d queries\n", r.Mode, r.Threshold, len(r.Queries))
	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "OVERALL METRICS:")
	fmt.Fprintf(&b, "  Accuracy:  %s\n", percent(r.Accuracy))
	fmt.Fprintf(&b, "  Precision: %s\n", percent(r.Precision))
	fmt.Fprintf(&b, "  Recall:    %s\n", percent(r.Recall))
	fmt.Fprintf(&b, "  F1-Score:  %s\n", percent(r.F1))
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "DISTANCE STATISTICS:")
	fmt.Fprintf(&b, "  Mean Distance: %.4f\n", r.Distances.Mean)
	fmt.Fprintf(&b, "  Min Distance:  %.4f\n", r.Distances.Min)
	fmt.Fprintf(&b, "  Max Distance:  %.4f\n", r.Distances.Max)
	fmt.Fprintf(&b, "  Std Deviation: %.4f\n", r.Distances.Std)
	fmt.Fprintln(&b)

	if len(r.Sweep) > 0 {
		fmt.Fprintln(&b, "THRESHOLD ANALYSIS:")
		for _, t := range r.Sweep {
			fmt.Fprintf(&b, "  Threshold %.2f: Correct=%d, Incorrect=%d, Unknown=%d (Accuracy: %.1f%%)\n",
				t.Threshold, t.Correct, t.Incorrect, t.Unknown, t.Accuracy()*100)
		}
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "CLASSIFICATION REPORT:")
	writeClassificationReport(&b, r)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "WARNINGS:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(&b, "  - %s\n", warn)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeClassificationReport(b *strings.Builder, r *Result) {
	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(classLabel(c)))
	}

	fmt.Fprintf(b, "  %*s %10s %10s %10s %10s\n", width, "", "precision", "recall", "f1-score", "support")
	for _, c := range r.Classes {
		fmt.Fprintf(b, "  %*s %10.2f %10.2f %10.2f %10d\n", width, classLabel(c), c.Precision, c.Recall, c.F1, c.Support)
	}
	fmt.Fprintln(b)
	fmt.Fprintf(b, "  %*s %10s %10s %10.2f %10d\n", width, "accuracy", "", "", r.Accuracy, len(r.Queries))
	fmt.Fprintf(b, "  %*s %10.2f %10.2f %10.2f %10d\n", width, "weighted avg", r.Precision, r.Recall, r.F1, len(r.Queries))
}

func classLabel(c ClassStats) string {
	if c.Name == "" {
		return c.Label
	}
	return c.Label + " " + c.Name
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteReport writes the text report, the chart data files and the
// workbook into dir and returns the paths written.
func WriteReport(dir string, r *Result, generatedAt time.Time) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}

	var written []string
	write := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	files := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{ReportFile, func(w io.Writer) error { return WriteText(w, r, generatedAt) }},
		{ConfusionMatrixFile, func(w io.Writer) error { return writeConfusionCSV(w, r) }},
		{ThresholdSweepFile, func(w io.Writer) error { return writeSweepCSV(w, r) }},
		{AccuracyCurveFile, func(w io.Writer) error { return writeCurveCSV(w, r) }},
		{DistancesFile, func(w io.Writer) error { return writeDistancesCSV(w, r) }},
		{WorkbookFile, func(w io.Writer) error { return WriteWorkbook(w, r) }},
	}
	for _, f := range files {
		if err := write(f.name, f.fn); err != nil {
			return written, err
		}
	}
	return written, nil
}

func writeCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func writeConfusionCSV(w io.Writer, r *Result) error {
	header := append([]string{"truth\\predicted"}, r.Confusion.Labels...)
	rows := [][]string{header}
	for i, label := range r.Confusion.Labels {
		row := []string{label}
		for _, n := range r.Confusion.Counts[i] {
			row = append(row, strconv.Itoa(n))
		}
		rows = append(rows, row)
	}
	return writeCSV(w, rows)
}

func writeSweepCSV(w io.Writer, r *Result) error {
	rows := [][]string{{"threshold", "correct", "incorrect", "unknown", "accuracy"}}
	for _, t := range r.Sweep {
		rows = append(rows, []string{
			strconv.FormatFloat(t.Threshold, 'f', 2, 64),
			strconv.Itoa(t.Correct),
			strconv.Itoa(t.Incorrect),
			strconv.Itoa(t.Unknown),
			formatFloat(t.Accuracy()),
		})
	}
	return writeCSV(w, rows)
}

func writeCurveCSV(w io.Writer, r *Result) error {
	rows := [][]string{{"threshold", "accuracy"}}
	for _, p := range r.Curve {
		rows = append(rows, []string{strconv.FormatFloat(p.Threshold, 'f', 2, 64), formatFloat(p.Accuracy)})
	}
	return writeCSV(w, rows)
}

func writeDistancesCSV(w io.Writer, r *Result) error {
	rows := [][]string{{"index", "identity_id", "name", "predicted_id", "predicted_name", "distance", "correct", "decision"}}
	for _, q := range r.Queries {
		dist := ""
		if q.Predicted != NoPrediction {
			dist = formatFloat(q.Distance)
		}
		rows = append(rows, []string{
			strconv.Itoa(q.Index),
			q.GroundTruth,
			q.GroundTruthName,
			q.Predicted,
			q.PredictedName,
			dist,
			strconv.FormatBool(q.Correct()),
			string(q.Decision),
		})
	}
	return writeCSV(w, rows)
}
