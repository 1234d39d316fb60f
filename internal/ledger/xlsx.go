package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// Column headers of the attendance workbook.
var xlsxHeader = []any{"Ad Soyad", "Numara", "Tarih", "Saat", "Durum"}

// XLSXStore keeps one workbook per day in a directory. Every append rewrites
// the whole workbook through a temp file and rename.
type XLSXStore struct {
	dir string
	loc *time.Location
	mu  sync.Mutex
}

// NewXLSXStore creates a store writing to dir. loc is used to interpret the
// date and time cells when loading.
func NewXLSXStore(dir string, loc *time.Location) *XLSXStore {
	if loc == nil {
		loc = time.Local
	}
	return &XLSXStore{dir: dir, loc: loc}
}

// Path returns the workbook path for day.
func (s *XLSXStore) Path(day Day) string {
	return filepath.Join(s.dir, constants.LedgerFilePrefix+day.FileStamp()+".xlsx")
}

// Location implements Locator.
func (s *XLSXStore) Location(day Day) string {
	return s.Path(day)
}

// Load implements Store.
func (s *XLSXStore) Load(ctx context.Context, day Day) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(day)
}

func (s *XLSXStore) load(day Day) ([]Record, error) {
	path := s.Path(day)
	if _, err := os.Stat(path); err != nil {
		// A missing directory is an empty ledger; the next write creates it.
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
			return nil, nil
		}
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading rows of %s: %w", path, err)
	}

	var records []Record
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		rec, ok := s.parseRow(day, row)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *XLSXStore) parseRow(day Day, row []string) (Record, bool) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	rec := Record{
		DisplayName: cell(0),
		IdentityID:  cell(1),
		Date:        day,
		Status:      ParseStatusLabel(cell(4)),
	}
	if rec.IdentityID == "" {
		return Record{}, false
	}
	if t, err := time.ParseInLocation(constants.LedgerDateFormat+" "+constants.LedgerTimeFormat, cell(2)+" "+cell(3), s.loc); err == nil {
		rec.Time = t
	}
	return rec, true
}

// Append implements Store.
func (s *XLSXStore) Append(ctx context.Context, day Day, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(day)
	if err != nil {
		return err
	}
	records = append(records, rec)
	return s.write(day, records)
}

func (s *XLSXStore) write(day Day, records []Record) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating attendance directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetRow(sheetName, "A1", &xlsxHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheetName, "A1", "E1", style)
	}
	_ = f.SetColWidth(sheetName, "A", "A", 28)
	_ = f.SetColWidth(sheetName, "B", "E", 14)

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{r.DisplayName, r.IdentityID, r.Date.Display(), r.Clock(), r.Status.Label()}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	path := s.Path(day)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp workbook: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("writing workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing workbook: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing workbook: %w", err)
	}
	return nil
}

// Days lists the days that have a workbook, newest first. A missing
// directory has no days.
func (s *XLSXStore) Days(ctx context.Context, limit int) ([]Day, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", s.dir, err)
	}

	var days []Day
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, constants.LedgerFilePrefix) || filepath.Ext(name) != ".xlsx" {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, constants.LedgerFilePrefix), ".xlsx")
		t, err := time.Parse("2006_01_02", stamp)
		if err != nil {
			continue
		}
		days = append(days, DayOf(t, time.UTC))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].String() > days[j].String() })
	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days, nil
}
