// Package api exposes the ops HTTP surface: health, the latest run report,
// run history and Prometheus metrics.
package api

import (
	"sync"

	"github.com/pratik-mahalle/costpilot/internal/domain/remediation"
)

// ReportStore retains recent run reports in memory. The newest report is
// index 0. Older reports beyond the retention limit are dropped.
type ReportStore struct {
	mu      sync.RWMutex
	reports []*remediation.Report
	limit   int
}

// NewReportStore creates a store retaining up to limit reports
func NewReportStore(limit int) *ReportStore {
	if limit < 1 {
		limit = 1
	}
	return &ReportStore{limit: limit}
}

// Add records a completed run report
func (s *ReportStore) Add(report *remediation.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append([]*remediation.Report{report}, s.reports...)
	if len(s.reports) > s.limit {
		s.reports = s.reports[:s.limit]
	}
}

// Latest returns the most recent report, or nil when no run has completed
func (s *ReportStore) Latest() *remediation.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.reports) == 0 {
		return nil
	}
	return s.reports[0]
}

// All returns retained reports, newest first
func (s *ReportStore) All() []*remediation.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*remediation.Report, len(s.reports))
	copy(out, s.reports)
	return out
}
