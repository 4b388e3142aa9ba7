package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // register sqlite driver

	"github.com/sells-group/streetworks-impact/internal/model"
)

const dateLayout = "2006-01-02"

// SQLiteStore implements Store on a local SQLite file, for development and
// single-node deployments without Postgres.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS raw_projects (
	project_id         TEXT PRIMARY KEY,
	programme_id       TEXT,
	source             TEXT,
	swa_code           TEXT,
	title              TEXT,
	scheme             TEXT,
	simple_theme       TEXT,
	geo_point          TEXT,
	latitude           REAL NOT NULL,
	longitude          REAL NOT NULL,
	geo_shape_wkt      TEXT,
	usrn               INTEGER,
	post_code          TEXT,
	asset_type         TEXT,
	asset_id           TEXT,
	start_date         TEXT,
	start_date_yy      INTEGER,
	completion_date    TEXT,
	completion_date_yy INTEGER,
	funding_status     TEXT,
	collaboration      INTEGER NOT NULL DEFAULT 1,
	created_at         TEXT NOT NULL,
	CHECK (start_date_yy IS NULL OR completion_date_yy IS NULL OR completion_date_yy >= start_date_yy)
);

CREATE INDEX IF NOT EXISTS idx_raw_projects_usrn ON raw_projects(usrn);
`

// Migrate creates the project table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the handle for tests and tooling.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Get resolves a project by identifier.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*model.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT project_id, COALESCE(title, ''), latitude, longitude,
		       COALESCE(geo_shape_wkt, ''), usrn, start_date, completion_date,
		       MAX(COALESCE(
		           CAST(julianday(completion_date) - julianday(start_date) AS INTEGER),
		           (NULLIF(completion_date_yy, 0) - NULLIF(start_date_yy, 0)) * 365,
		           0), 0),
		       created_at
		FROM raw_projects
		WHERE project_id = ?`, id)

	var (
		p                model.Project
		lat, lng         float64
		shape, createdAt string
		usrn             sql.NullInt64
		startRaw, endRaw sql.NullString
	)
	err := row.Scan(&p.ID, &p.Title, &lat, &lng, &shape, &usrn, &startRaw, &endRaw, &p.DurationDays, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %s", id)
	}

	if usrn.Valid {
		v := usrn.Int64
		p.USRN = &v
	}
	if p.StartDate, err = parseDate(startRaw); err != nil {
		return nil, eris.Wrapf(err, "sqlite: project %s start_date", id)
	}
	if p.CompletionDate, err = parseDate(endRaw); err != nil {
		return nil, eris.Wrapf(err, "sqlite: project %s completion_date", id)
	}
	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, eris.Wrapf(err, "sqlite: project %s created_at", id)
	}
	if p.Points, err = points(lat, lng, shape); err != nil {
		return nil, eris.Wrapf(err, "sqlite: get project %s", id)
	}
	return &p, nil
}

// Create inserts a project and returns its new identifier.
func (s *SQLiteStore) Create(ctx context.Context, in model.ProjectInput) (*model.ProjectReceipt, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	shape, err := shapeWKT(in.GeoShapeCoordinates)
	if err != nil {
		return nil, err
	}

	id := NewID()
	created := s.now().UTC()
	pt := primaryPoint(in)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raw_projects (
			project_id, programme_id, source, swa_code, title, scheme, simple_theme,
			geo_point, latitude, longitude, geo_shape_wkt, usrn, post_code, asset_type, asset_id,
			start_date, start_date_yy, completion_date, completion_date_yy,
			funding_status, collaboration, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, in.ProgrammeID, in.Source, in.SWACode, in.Title, in.Scheme, in.SimpleTheme,
		in.GeoPoint, pt.Lat, pt.Lng, shape, in.USRN, in.PostCode, in.AssetType, in.AssetID,
		formatDate(in.StartDate), in.StartDateYY, formatDate(in.CompletionDate), in.CompletionDateYY,
		in.FundingStatus, in.Collaboration, created.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: create project")
	}
	return &model.ProjectReceipt{
		Success:   true,
		ProjectID: id,
		Message:   "Project created successfully",
		CreatedAt: created,
	}, nil
}

// Delete removes a project.
func (s *SQLiteStore) Delete(ctx context.Context, id string) (*model.ProjectReceipt, error) {
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`DELETE FROM raw_projects WHERE project_id = ? RETURNING created_at`, id,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: delete project %s", id)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: project %s created_at", id)
	}
	return &model.ProjectReceipt{
		Success:   true,
		ProjectID: id,
		Message:   fmt.Sprintf("Project %s deleted successfully", id),
		CreatedAt: created,
	}, nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
