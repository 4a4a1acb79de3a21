package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"famledger/internal/core"
	ports "famledger/internal/sheets"
)

var (
	_ ports.ReportWriter = (*Store)(nil)
	_ ports.ReportLister = (*Store)(nil)
)

// Store keeps exported reports in memory. Used when no spreadsheet is
// configured and in tests.
type Store struct {
	mu    sync.Mutex
	items []core.CycleReport
}

func New() *Store {
	return &Store{}
}

// AppendCycleReport stores the report and returns a synthetic row reference.
func (s *Store) AppendCycleReport(_ context.Context, r core.CycleReport) (string, error) {
	if r.AccountID == "" {
		return "", errors.New("report without account")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, r)
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

// ListCycleReports returns the reports of accountID in insertion order.
func (s *Store) ListCycleReports(_ context.Context, accountID string) ([]core.CycleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.CycleReport
	for _, r := range s.items {
		if r.AccountID == accountID {
			out = append(out, r)
		}
	}
	return out, nil
}

// Len returns how many reports were written.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
