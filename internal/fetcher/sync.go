package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/report"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/serializer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

const stateOffset = "offset"

// ProjectSource is the part of the API client the sync loop needs.
type ProjectSource interface {
	FetchPage(ctx context.Context, offset, limit int) (Page, error)
	FetchProject(ctx context.Context, uid string) (json.RawMessage, error)
}

type SyncService struct {
	db         *storage.DB
	state      *storage.StateStore
	raw        *RawStore
	source     ProjectSource
	normalizer normalizer.Normalizer
	cfg        config.Config
	logger     *log.Logger
	now        func() time.Time
}

type SyncResult struct {
	RunID   string
	Fetched int
	Stored  int
	Failed  int
	Offset  int
}

func NewSyncService(db *storage.DB, cfg config.Config, n normalizer.Normalizer, logger *log.Logger) *SyncService {
	logger = logger.WithPrefix("sync")
	return &SyncService{
		db:         db,
		state:      storage.NewStateStore(cfg.StateDir(), logger),
		raw:        NewRawStore(cfg.RawDir),
		source:     NewClient(cfg, logger),
		normalizer: n,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
	}
}

type outcome struct {
	project *internal.Project
	rawRef  string
	err     error
}

// Sync pages through the provider listing starting at the stored cursor.
// Records that fail to normalize are reported and skipped; the cursor is
// persisted after every page so an interrupted run resumes where it stopped.
func (s *SyncService) Sync(ctx context.Context, reset bool) (SyncResult, error) {
	fetcherName := s.normalizer.Source()
	reporter := report.NewDBReporter(s.db, uuid.NewString())
	result := SyncResult{RunID: reporter.RunID()}
	defer reporter.Close()

	if reset {
		if _, err := s.state.Delete(fetcherName); err != nil {
			return result, err
		}
	}
	state, err := s.state.Load(fetcherName)
	if err != nil {
		return result, err
	}
	offset := 0
	if v, ok := state[stateOffset].(float64); ok && v > 0 {
		offset = int(v)
	}

	batch := s.cfg.OSHWABatchSize
	if batch <= 0 {
		batch = 50
	}

	for {
		page, err := s.source.FetchPage(ctx, offset, batch)
		if err != nil {
			return result, fmt.Errorf("fetch page at offset %d: %w", offset, err)
		}
		if len(page.Items) == 0 {
			break
		}

		outcomes, err := s.normalizeAll(ctx, page.Items)
		if err != nil {
			return result, err
		}
		stored, failed, err := s.persist(outcomes, reporter)
		if err != nil {
			return result, err
		}
		result.Fetched += len(page.Items)
		result.Stored += stored
		result.Failed += failed

		offset += len(page.Items)
		state[stateOffset] = offset
		state["total"] = page.Total
		state["lastRun"] = result.RunID
		if err := s.state.Store(fetcherName, state); err != nil {
			return result, err
		}
		s.logger.Info("page done", "offset", offset, "total", page.Total, "stored", stored, "failed", failed)

		if page.Total > 0 && offset >= page.Total {
			break
		}
	}

	result.Offset = offset
	if err := s.db.SetMetadata(fetcherName+".last_sync", s.now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("could not record sync time", "fetcher", fetcherName, "err", err)
	}
	return result, nil
}

// Renormalize rebuilds every stored project of this fetcher from its raw
// record, keeping the original visit time. Nothing is fetched.
func (s *SyncService) Renormalize(ctx context.Context) (SyncResult, error) {
	reporter := report.NewDBReporter(s.db, uuid.NewString())
	result := SyncResult{RunID: reporter.RunID()}
	defer reporter.Close()

	rows, err := s.db.ListProjects(s.normalizer.Source())
	if err != nil {
		return result, err
	}
	var outcomes []outcome
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if row.RawRef == "" {
			continue
		}
		result.Fetched++
		raw, err := s.raw.Load(row.RawRef)
		if err != nil {
			outcomes = append(outcomes, outcome{rawRef: row.RawRef, err: err})
			continue
		}
		enrich := map[string]any{
			"fetcher":     row.Project.Meta.Source,
			"lastVisited": row.LastVisited,
		}
		p, err := serializer.JSONDeserializer{}.Deserialize(raw, s.normalizer, enrich)
		outcomes = append(outcomes, outcome{project: p, rawRef: row.RawRef, err: err})
	}

	result.Stored, result.Failed, err = s.persist(outcomes, reporter)
	return result, err
}

// FetchOne fetches and stores a single project by uid or certification url.
func (s *SyncService) FetchOne(ctx context.Context, idOrURL string) (*internal.Project, error) {
	uid, err := ParseProjectID(idOrURL)
	if err != nil {
		return nil, err
	}
	raw, err := s.source.FetchProject(ctx, uid)
	if err != nil {
		return nil, err
	}
	reporter := report.NewDBReporter(s.db, uuid.NewString())
	defer reporter.Close()

	out := s.normalizeOne(raw)
	if _, _, err := s.persist([]outcome{out}, reporter); err != nil {
		return nil, err
	}
	if out.err != nil {
		return nil, out.err
	}
	return out.project, nil
}

func (s *SyncService) normalizeAll(ctx context.Context, items []json.RawMessage) ([]outcome, error) {
	outcomes := make([]outcome, len(items))
	g, ctx := errgroup.WithContext(ctx)
	workers := s.cfg.NormalizeWorkers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			outcomes[i] = s.normalizeOne(item)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func (s *SyncService) normalizeOne(item json.RawMessage) outcome {
	ref, err := s.raw.Store(s.normalizer.Source(), item)
	if err != nil {
		return outcome{err: err}
	}
	enrich := map[string]any{
		"fetcher":     s.normalizer.Source(),
		"lastVisited": s.now().UTC().Format(time.RFC3339),
	}
	p, err := serializer.JSONDeserializer{}.Deserialize(item, s.normalizer, enrich)
	return outcome{project: p, rawRef: ref, err: err}
}

func (s *SyncService) persist(outcomes []outcome, reporter report.Reporter) (int, int, error) {
	var projects []*internal.Project
	refs := map[string]string{}
	failed := 0
	for _, o := range outcomes {
		if o.err != nil {
			failed++
			s.logger.Warn("record failed", "ref", o.rawRef, "err", o.err)
			if err := reporter.Add(report.Entry{Source: s.normalizer.Source(), ProjectID: o.rawRef, Status: report.StatusFailed, Reasons: []string{o.err.Error()}}); err != nil {
				return 0, 0, err
			}
			continue
		}
		projects = append(projects, o.project)
		refs[o.project.ID()] = o.rawRef
	}
	if len(projects) > 0 {
		if err := s.db.UpsertProjects(projects, refs); err != nil {
			return 0, 0, err
		}
	}
	for _, p := range projects {
		if err := reporter.Add(report.Entry{Source: s.normalizer.Source(), ProjectID: p.ID(), Status: report.StatusOK}); err != nil {
			return 0, 0, err
		}
	}
	return len(projects), failed, nil
}
