package ledger

import (
	"context"
	"fmt"
	"io"
)

// Summary describes one day's ledger.
type Summary struct {
	Day      string   `json:"day"`
	Total    int      `json:"total"`
	Present  int      `json:"present"`
	Names    []string `json:"names"`
	Location string   `json:"location,omitempty"`
	Records  []Record `json:"records"`
}

// Summarize builds a summary from a day's records.
func Summarize(day Day, records []Record) *Summary {
	s := &Summary{
		Day:     day.String(),
		Total:   len(records),
		Names:   []string{},
		Records: records,
	}
	if s.Records == nil {
		s.Records = []Record{}
	}
	for _, r := range records {
		if r.Status == StatusPresent {
			s.Present++
			s.Names = append(s.Names, r.DisplayName)
		}
	}
	return s
}

// Summary returns the summary of day, including where the ledger is stored
// when the store can tell.
func (g *Guard) Summary(ctx context.Context, day Day) (*Summary, error) {
	records, err := g.Records(ctx, day)
	if err != nil {
		return nil, err
	}
	s := Summarize(day, records)
	if loc, ok := g.store.(Locator); ok {
		s.Location = loc.Location(day)
	}
	return s, nil
}

// Fprint writes the summary in the console format used by the CLI.
func (s *Summary) Fprint(w io.Writer) {
	fmt.Fprintf(w, "\nAttendance summary for %s\n", s.Day)
	if s.Location != "" {
		fmt.Fprintf(w, "  Ledger:  %s\n", s.Location)
	}
	fmt.Fprintf(w, "  Records: %d\n", s.Total)
	fmt.Fprintf(w, "  Present: %d\n", s.Present)
	for _, name := range s.Names {
		fmt.Fprintf(w, "    - %s\n", name)
	}
}
