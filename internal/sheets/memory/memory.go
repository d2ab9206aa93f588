package memory

import (
	"context"
	"fmt"
	"sync"

	"billflow/internal/core"
	ports "billflow/internal/sheets"
)

var _ ports.SummaryWriter = (*Store)(nil)

// Store keeps exported summaries in memory, one table per year.
type Store struct {
	mu     sync.Mutex
	years  map[int]core.SummaryExport
	writes int
}

func New() *Store {
	return &Store{years: make(map[int]core.SummaryExport)}
}

// WriteYearSummary replaces the stored table for the export's year.
func (s *Store) WriteYearSummary(_ context.Context, export core.SummaryExport) (string, error) {
	if export.Year <= 0 {
		return "", fmt.Errorf("invalid export year %d", export.Year)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	export.Rows = append([]core.SummaryExportRow(nil), export.Rows...)
	s.years[export.Year] = export
	s.writes++
	return fmt.Sprintf("mem:%d", export.Year), nil
}

// Year returns the last table written for year.
func (s *Store) Year(year int) (core.SummaryExport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	export, ok := s.years[year]
	return export, ok
}

// Writes counts successful writes.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
