package evaluation

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func sampleResult(t *testing.T) *Result {
	t.Helper()
	g := mustGallery(t,
		entry("001", "Ali", 0, 0),
		entry("001", "Ali", 0.3, 0),
		entry("002", "Veli", 1, 0),
	)
	r, err := Evaluate(g, Options{
		SweepThresholds: []float64{0.4, 0.5},
		CurveThresholds: []float64{0.30, 0.31},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 3, 11, 10, 0, 0, 0, time.UTC)
	if err := WriteText(&buf, sampleResult(t), at); err != nil {
		t.Fatalf("WriteText() error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Date: 2024-03-11 10:00:00",
		"Accuracy:  100.00%",
		"Threshold 0.40: Correct=3, Incorrect=0, Unknown=0 (Accuracy: 100.0%)",
		"001 Ali",
		"weighted avg",
		"WARNINGS:",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestWriteReport(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	paths, err := WriteReport(dir, sampleResult(t), time.Now())
	if err != nil {
		t.Fatalf("WriteReport() error: %v", err)
	}
	if len(paths) != 6 {
		t.Errorf("expected 6 files, got %v", paths)
	}

	f, err := os.Open(filepath.Join(dir, ThresholdSweepFile))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][0] != "0.40" || rows[1][1] != "3" {
		t.Errorf("unexpected sweep csv %v", rows)
	}

	cm, err := os.ReadFile(filepath.Join(dir, ConfusionMatrixFile))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(cm), "truth\\predicted,001,002\n001,2,0\n") {
		t.Errorf("unexpected confusion csv:\n%s", cm)
	}

	wb, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer wb.Close()
	sheets := wb.GetSheetList()
	if len(sheets) != 5 || sheets[0] != "Summary" {
		t.Errorf("unexpected sheets %v", sheets)
	}
	curve, err := wb.GetRows("Accuracy curve")
	if err != nil || len(curve) != 3 {
		t.Errorf("accuracy curve sheet = %v, %v", curve, err)
	}
}
