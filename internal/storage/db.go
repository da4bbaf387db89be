package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
)

type DB struct {
	conn *sql.DB
}

// ProjectRow is a stored project together with its provenance.
type ProjectRow struct {
	ID          string
	Source      string
	RawRef      string
	LastVisited string
	UpdatedAt   string
	Project     *internal.Project
}

type ReportRow struct {
	ID        int
	RunID     string
	Source    string
	ProjectID string
	Status    string
	Reason    string
	CreatedAt string
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS projects (
  id TEXT PRIMARY KEY,
  source TEXT NOT NULL,
  name TEXT NOT NULL,
  version TEXT NOT NULL,
  license TEXT,
  rawRef TEXT,
  projectJson TEXT NOT NULL,
  lastVisited TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_projects_source ON projects(source);

CREATE TABLE IF NOT EXISTS reports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  source TEXT NOT NULL,
  projectId TEXT NOT NULL,
  status TEXT NOT NULL,
  reason TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_reports_runId ON reports(runId);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProjects(projects []*internal.Project, rawRefs map[string]string) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO projects (id, source, name, version, license, rawRef, projectJson, lastVisited, updatedAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  source=excluded.source,
  name=excluded.name,
  version=excluded.version,
  license=excluded.license,
  rawRef=COALESCE(excluded.rawRef, projects.rawRef),
  projectJson=excluded.projectJson,
  lastVisited=excluded.lastVisited,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range projects {
		blob, err := json.Marshal(p)
		if err != nil {
			return err
		}
		var license, rawRef *string
		if p.License != nil {
			license = &p.License.ID
		}
		if ref, ok := rawRefs[p.ID()]; ok {
			rawRef = &ref
		}
		if _, err := stmt.Exec(
			p.ID(), p.Meta.Source, p.Name, p.Version, license, rawRef, string(blob),
			p.Meta.LastVisited.UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) GetProject(id string) (*ProjectRow, error) {
	row := d.conn.QueryRow(`
SELECT id, source, COALESCE(rawRef, ''), lastVisited, updatedAt, projectJson
FROM projects WHERE id = ?`, id)
	out, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProjects returns stored projects ordered by id; an empty source lists all.
func (d *DB) ListProjects(source string) ([]ProjectRow, error) {
	rows, err := d.conn.Query(`
SELECT id, source, COALESCE(rawRef, ''), lastVisited, updatedAt, projectJson
FROM projects WHERE (? = '' OR source = ?) ORDER BY id`, source, source)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ProjectRow
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (d *DB) CountProjects() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*ProjectRow, error) {
	var row ProjectRow
	var blob string
	if err := s.Scan(&row.ID, &row.Source, &row.RawRef, &row.LastVisited, &row.UpdatedAt, &blob); err != nil {
		return nil, err
	}
	var p internal.Project
	if err := json.Unmarshal([]byte(blob), &p); err != nil {
		return nil, err
	}
	row.Project = &p
	return &row, nil
}

func (d *DB) InsertReport(runID, source, projectID, status, reason string) error {
	_, err := d.conn.Exec(`
INSERT INTO reports (runId, source, projectId, status, reason) VALUES (?, ?, ?, ?, ?)
`, runID, source, projectID, status, reason)
	return err
}

func (d *DB) ListReports(runID string) ([]ReportRow, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, source, projectId, status, COALESCE(reason, ''), createdAt
FROM reports WHERE runId = ?
ORDER BY
  CASE status WHEN 'failed' THEN 1 WHEN 'unknown' THEN 2 ELSE 3 END,
  id ASC
`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ReportRow
	for rows.Next() {
		var r ReportRow
		if err := rows.Scan(&r.ID, &r.RunID, &r.Source, &r.ProjectID, &r.Status, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunID returns the run id of the most recent report, nil if none exist.
func (d *DB) LatestRunID() (*string, error) {
	var runID string
	err := d.conn.QueryRow(`SELECT runId FROM reports ORDER BY id DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &runID, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
