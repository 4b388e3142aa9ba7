package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/streetworks-impact/internal/db"
	"github.com/sells-group/streetworks-impact/internal/model"
)

// DefaultTable is the project table in the Postgres store.
const DefaultTable = "collaboration.raw_projects"

// PostgresStore implements Store on a PostGIS-enabled Postgres database.
type PostgresStore struct {
	pool  db.Pool
	table string
	now   func() time.Time
}

// NewPostgres wraps pool. The pool's lifecycle stays with the caller.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, table: db.QualifiedTable(DefaultTable), now: time.Now}
}

// durationSQL is the project length in days: the date difference when both
// dates are set, else whole years from the *_yy columns, else 0. A zero year
// counts as unset and the result never goes negative.
const durationSQL = `GREATEST(COALESCE(
		completion_date - start_date,
		(NULLIF(completion_date_yy, 0) - NULLIF(start_date_yy, 0)) * 365,
		0), 0)`

// Get resolves a project by identifier.
func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Project, error) {
	sql := fmt.Sprintf(`
		SELECT project_id, COALESCE(title, ''), ST_Y(geometry), ST_X(geometry),
		       COALESCE(ST_AsText(geo_shape), ''), usrn, start_date, completion_date,
		       %s, created_at
		FROM %s
		WHERE project_id = $1`, durationSQL, s.table)

	var (
		p          model.Project
		lat, lng   float64
		shape      string
		start, end *time.Time
	)
	err := s.pool.QueryRow(ctx, sql, id).Scan(
		&p.ID, &p.Title, &lat, &lng, &shape, &p.USRN, &start, &end,
		&p.DurationDays, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "project: get %s", id)
	}

	p.StartDate, p.CompletionDate = start, end
	if p.Points, err = points(lat, lng, shape); err != nil {
		return nil, eris.Wrapf(err, "project: get %s", id)
	}
	return &p, nil
}

// Create inserts a project and returns its new identifier.
func (s *PostgresStore) Create(ctx context.Context, in model.ProjectInput) (*model.ProjectReceipt, error) {
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	shape, err := shapeWKT(in.GeoShapeCoordinates)
	if err != nil {
		return nil, err
	}

	pt := primaryPoint(in)
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			project_id, programme_id, source, swa_code, title, scheme, simple_theme,
			geo_point, geometry, geo_shape, usrn, post_code, asset_type, asset_id,
			start_date, start_date_yy, completion_date, completion_date_yy,
			funding_status, collaboration, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, ST_SetSRID(ST_MakePoint($9, $10), 4326), ST_GeomFromText($11, 4326), $12, $13, $14, $15,
			$16, $17, $18, $19,
			$20, $21, $22
		) RETURNING project_id, created_at`, s.table)

	var receipt model.ProjectReceipt
	err = s.pool.QueryRow(ctx, sql,
		NewID(), in.ProgrammeID, in.Source, in.SWACode, in.Title, in.Scheme, in.SimpleTheme,
		in.GeoPoint, pt.Lng, pt.Lat, shape, in.USRN, in.PostCode, in.AssetType, in.AssetID,
		in.StartDate, in.StartDateYY, in.CompletionDate, in.CompletionDateYY,
		in.FundingStatus, in.Collaboration, s.now().UTC(),
	).Scan(&receipt.ProjectID, &receipt.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "project: create")
	}

	receipt.Success = true
	receipt.Message = "Project created successfully"
	return &receipt, nil
}

// Delete removes a project.
func (s *PostgresStore) Delete(ctx context.Context, id string) (*model.ProjectReceipt, error) {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1 RETURNING project_id, created_at`, s.table)

	var receipt model.ProjectReceipt
	err := s.pool.QueryRow(ctx, sql, id).Scan(&receipt.ProjectID, &receipt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(model.ErrNotFound, "project %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "project: delete %s", id)
	}

	receipt.Success = true
	receipt.Message = fmt.Sprintf("Project %s deleted successfully", id)
	return &receipt, nil
}

// Migrate applies the embedded project migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.pool)
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }
