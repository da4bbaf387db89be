package fetcher

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

type fakeSource struct {
	items   []json.RawMessage
	offsets []int
}

func (f *fakeSource) FetchPage(_ context.Context, offset, limit int) (Page, error) {
	f.offsets = append(f.offsets, offset)
	end := min(offset+limit, len(f.items))
	if offset >= end {
		return Page{Total: len(f.items)}, nil
	}
	return Page{Total: len(f.items), Items: f.items[offset:end]}, nil
}

func (f *fakeSource) FetchProject(_ context.Context, uid string) (json.RawMessage, error) {
	for _, item := range f.items {
		var rec map[string]any
		if json.Unmarshal(item, &rec) == nil && rec["oshwaUid"] == uid {
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
}

func record(uid, name string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{
		"oshwaUid": %q,
		"responsibleParty": "Open Weather Collective",
		"projectName": %q,
		"projectVersion": "1.0",
		"projectDescription": "A small open weather station for schools.",
		"primaryType": "Electronics",
		"hardwareLicense": "CERN OHL",
		"certificationDate": "2020-05-04T00:00-04:00"
	}`, uid, name))
}

func testSyncService(t *testing.T, src ProjectSource) (*SyncService, *storage.DB) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "krawler.db")
	db, err := storage.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	deps, err := normalizer.LoadDeps(logging.Discard())
	require.NoError(t, err)

	cfg := config.Config{WorkDir: dir, DBPath: dbPath, RawDir: filepath.Join(dir, "raw"), OSHWABatchSize: 2, NormalizeWorkers: 2}
	logger := logging.Discard()
	return &SyncService{
		db:         db,
		state:      storage.NewStateStore(cfg.StateDir(), logger),
		raw:        NewRawStore(cfg.RawDir),
		source:     src,
		normalizer: normalizer.NewOSHWA(deps),
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) },
	}, db
}

func TestSyncPagesAndReports(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{
		record("US000001", "Wind Station"),
		json.RawMessage(`"not a record"`),
		record("US000003", "Rain Gauge"),
	}}
	svc, db := testSyncService(t, src)

	res, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, src.offsets)
	assert.Equal(t, 3, res.Fetched)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Offset)

	row, err := db.GetProject("oshwa/Open Weather Collective/US000003")
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, "Rain Gauge", row.Project.Name)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), row.Project.Meta.LastVisited)
	_, err = os.Stat(row.RawRef)
	assert.NoError(t, err)

	reports, err := db.ListReports(res.RunID)
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "failed", reports[0].Status)

	state, err := svc.state.Load("oshwa")
	require.NoError(t, err)
	assert.Equal(t, float64(3), state["offset"])

	last, err := db.GetMetadata("oshwa.last_sync")
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "2024-03-01T08:00:00Z", *last)
}

func TestSyncSurvivesMetadataFailure(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{record("US000001", "Wind Station")}}
	svc, _ := testSyncService(t, src)
	var logs bytes.Buffer
	svc.logger = logging.NewWithWriter(&logs, "warn", false)

	conn, err := sql.Open("sqlite", svc.cfg.DBPath)
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Exec(`DROP TABLE metadata`)
	require.NoError(t, err)

	res, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stored)
	assert.Contains(t, logs.String(), "could not record sync time")
}

func TestSyncResumesAndResets(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{
		record("US000001", "Wind Station"),
		record("US000002", "Rain Gauge"),
	}}
	svc, _ := testSyncService(t, src)
	require.NoError(t, svc.state.Store("oshwa", map[string]any{"offset": 2}))

	res, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched)
	assert.Equal(t, []int{2}, src.offsets)

	src.offsets = nil
	res, err = svc.Sync(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Stored)
	assert.Equal(t, []int{0}, src.offsets)
}

func TestRenormalizeFromRawStore(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{record("US000001", "Wind Station")}}
	svc, db := testSyncService(t, src)
	_, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)

	id := "oshwa/Open Weather Collective/US000001"
	row, err := db.GetProject(id)
	require.NoError(t, err)
	stale := *row.Project
	stale.Name = "Stale Name"
	require.NoError(t, db.UpsertProjects([]*internal.Project{&stale}, nil))

	svc.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	res, err := svc.Renormalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Stored)
	assert.Zero(t, res.Failed)

	row, err = db.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, "Wind Station", row.Project.Name)
	assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), row.Project.Meta.LastVisited)
}

func TestRenormalizeReportsMissingRaw(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{record("US000001", "Wind Station")}}
	svc, db := testSyncService(t, src)
	_, err := svc.Sync(context.Background(), false)
	require.NoError(t, err)

	row, err := db.GetProject("oshwa/Open Weather Collective/US000001")
	require.NoError(t, err)
	require.NoError(t, os.Remove(row.RawRef))

	res, err := svc.Renormalize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	reports, err := db.ListReports(res.RunID)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "failed", reports[0].Status)
}

func TestFetchOne(t *testing.T) {
	src := &fakeSource{items: []json.RawMessage{record("US000007", "Anemometer")}}
	svc, db := testSyncService(t, src)

	p, err := svc.FetchOne(context.Background(), "https://certification.oshwa.org/us000007.html")
	require.NoError(t, err)
	assert.Equal(t, "Anemometer", p.Name)

	n, err := db.CountProjects()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = svc.FetchOne(context.Background(), "US000008")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.FetchOne(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidID)
}
