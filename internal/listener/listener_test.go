package listener

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/fetcher"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

type fakeSyncer struct {
	db    *storage.DB
	calls int
	after func()
}

func (f *fakeSyncer) Sync(context.Context, bool) (fetcher.SyncResult, error) {
	f.calls++
	p := &internal.Project{
		Meta: internal.ProjectMeta{Source: "oshwa", Host: "oshwa", Owner: "Acme", Name: "US000001", LastVisited: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		Name: "Wind Station",
		Repo: "https://github.com/acme/wind",
	}
	if err := f.db.UpsertProjects([]*internal.Project{p}, nil); err != nil {
		return fetcher.SyncResult{}, err
	}
	if err := f.db.InsertReport("run-1", "oshwa", p.ID(), "ok", ""); err != nil {
		return fetcher.SyncResult{}, err
	}
	if f.after != nil {
		f.after()
	}
	return fetcher.SyncResult{RunID: "run-1", Fetched: 1, Stored: 1}, nil
}

func testService(t *testing.T) (*Service, *fakeSyncer) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "krawler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Config{
		WorkDir:            dir,
		OutputDir:          filepath.Join(dir, "out"),
		ListenerSchedule:   "@every 1h",
		ListenerAutoExport: true,
	}
	s, err := NewService(db, cfg, normalizer.Deps{}, logging.Discard())
	require.NoError(t, err)
	f := &fakeSyncer{db: db}
	s.add("oshwa", f)
	return s, f
}

func TestRunCycleExports(t *testing.T) {
	s, f := testService(t)
	require.NoError(t, s.runCycle(context.Background()))
	assert.Equal(t, 1, f.calls)

	_, err := os.Stat(filepath.Join(s.cfg.OutputDir, "rdf", "oshwa", "oshwa-acme-us000001.ttl"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(s.cfg.OutputDir, "reports", "run-1.xlsx"))
	assert.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, f := testService(t)
	ctx, cancel := context.WithCancel(context.Background())
	f.after = cancel

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
	assert.Equal(t, 1, f.calls)
}

func TestRunRejectsBadSchedule(t *testing.T) {
	s, f := testService(t)
	s.cfg.ListenerSchedule = "every now and then"
	assert.Error(t, s.Run(context.Background()))
	assert.Zero(t, f.calls)
}

func TestNewServiceRejectsUnknownFetcher(t *testing.T) {
	_, err := NewService(nil, config.Config{ListenerFetchers: []string{"thingiverse"}}, normalizer.Deps{}, logging.Discard())
	assert.Error(t, err)
}
