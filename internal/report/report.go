package report

import (
	"strings"
	"sync"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

type Entry struct {
	Source    string
	ProjectID string
	Status    Status
	Reasons   []string
}

// Reporter collects the outcome of every project touched by a fetch run.
type Reporter interface {
	Add(e Entry) error
	Close() error
}

// DBReporter writes entries to the reports table under one run id.
type DBReporter struct {
	db    *storage.DB
	runID string

	mu     sync.Mutex
	counts map[Status]int
}

func NewDBReporter(db *storage.DB, runID string) *DBReporter {
	return &DBReporter{db: db, runID: runID, counts: map[Status]int{}}
}

func (r *DBReporter) RunID() string { return r.runID }

func (r *DBReporter) Add(e Entry) error {
	status := e.Status
	if status == "" {
		status = StatusUnknown
	}
	if err := r.db.InsertReport(r.runID, e.Source, e.ProjectID, string(status), strings.Join(e.Reasons, "; ")); err != nil {
		return err
	}
	r.mu.Lock()
	r.counts[status]++
	r.mu.Unlock()
	return nil
}

func (r *DBReporter) Counts() map[Status]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[Status]int, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

func (r *DBReporter) Close() error { return nil }
