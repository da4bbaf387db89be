package listener

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/robfig/cron/v3"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/fetcher"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/report"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/serializer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

type Syncer interface {
	Sync(ctx context.Context, reset bool) (fetcher.SyncResult, error)
}

type Service struct {
	db      *storage.DB
	cfg     config.Config
	logger  *log.Logger
	order   []string
	syncers map[string]Syncer
}

func NewService(db *storage.DB, cfg config.Config, deps normalizer.Deps, logger *log.Logger) (*Service, error) {
	s := &Service{db: db, cfg: cfg, logger: logger.WithPrefix("listener"), syncers: map[string]Syncer{}}
	for _, name := range cfg.ListenerFetchers {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case internal.SourceOSHWA:
			s.add(name, fetcher.NewSyncService(db, cfg, normalizer.NewOSHWA(deps), logger))
		default:
			return nil, fmt.Errorf("unsupported listener fetcher: %s", name)
		}
	}
	return s, nil
}

func (s *Service) add(name string, syncer Syncer) {
	if _, ok := s.syncers[name]; !ok {
		s.order = append(s.order, name)
	}
	s.syncers[name] = syncer
}

// Run performs one cycle right away, then follows the configured cron
// schedule until ctx is cancelled. Cycles never overlap.
func (s *Service) Run(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.logger})))
	if _, err := c.AddFunc(s.cfg.ListenerSchedule, func() { s.cycle(ctx) }); err != nil {
		return fmt.Errorf("listener schedule %q: %w", s.cfg.ListenerSchedule, err)
	}

	s.cycle(ctx)
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *Service) cycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.runCycle(ctx); err != nil {
		s.logger.Error("listener cycle error", "err", err)
	}
}

func (s *Service) runCycle(ctx context.Context) error {
	var runIDs []string
	for _, name := range s.order {
		res, err := s.syncers[name].Sync(ctx, false)
		if err != nil {
			return fmt.Errorf("sync %s: %w", name, err)
		}
		runIDs = append(runIDs, res.RunID)
		s.logger.Info("listener cycle done", "fetcher", name, "fetched", res.Fetched, "stored", res.Stored, "failed", res.Failed)
	}

	if s.cfg.ListenerAutoExport {
		return s.exportCycle(runIDs)
	}
	return nil
}

func (s *Service) exportCycle(runIDs []string) error {
	for _, name := range s.order {
		rows, err := s.db.ListProjects(name)
		if err != nil {
			return err
		}
		projects := make([]*internal.Project, 0, len(rows))
		for _, row := range rows {
			projects = append(projects, row.Project)
		}
		written, err := serializer.WriteProjects(projects, serializer.RDFSerializer{Format: serializer.FormatTurtle}, filepath.Join(s.cfg.OutputDir, "rdf", name))
		if err != nil {
			s.logger.Warn("some projects were not exported", "fetcher", name, "err", err)
		}
		s.logger.Debug("exported graphs", "fetcher", name, "files", len(written))
	}

	for _, runID := range runIDs {
		rows, err := s.db.ListReports(runID)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			continue
		}
		if err := report.ExportXLSX(rows, filepath.Join(s.cfg.OutputDir, "reports", runID+".xlsx")); err != nil {
			return err
		}
	}
	return nil
}

type cronLogger struct {
	l *log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error(msg, append(keysAndValues, "err", err)...)
}
