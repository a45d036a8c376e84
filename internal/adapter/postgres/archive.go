// Package postgres archives published classification snapshots.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

//go:embed sql/*.sql
var migrationFS embed.FS

// Open connects to Postgres through the pgx database/sql driver.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

// RunMigrations applies the embedded schema files in name order. Every
// statement is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	entries, err := migrationFS.ReadDir("sql")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrationFS.ReadFile("sql/" + name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
	}
	return nil
}

// Archive stores snapshots. It implements dashboard.Publisher and
// dashboard.SnapshotArchive.
type Archive struct {
	db *sql.DB
}

// NewArchive wraps an open database.
func NewArchive(db *sql.DB) *Archive {
	return &Archive{db: db}
}

const insertSnapshot = `INSERT INTO risk_snapshots
    (id, dataset_version, scope, percentile, chronic_threshold, acute_threshold, total_counties, dj_count, computed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const insertCounty = `INSERT INTO county_risk
    (snapshot_id, state, county, median_aqi_avg, max_aqi_avg, high_aqi_days_total, observations, risk)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// PublishSnapshot writes the snapshot header and every county in one
// transaction.
func (a *Archive) PublishSnapshot(ctx context.Context, s dashboard.Snapshot) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, insertSnapshot,
		s.ID, s.DatasetVersion, string(s.Params.Scope), s.Params.Percentile,
		s.ChronicThreshold, s.AcuteThreshold, len(s.Counties), s.DoubleJeopardyCount(), s.ComputedAt,
	); err != nil {
		return fmt.Errorf("insert snapshot %s: %w", s.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, insertCounty)
	if err != nil {
		return fmt.Errorf("prepare county insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range s.Counties {
		if _, err := stmt.ExecContext(ctx,
			s.ID, c.State, c.County, c.MedianAQIAvg, c.MaxAQIAvg, c.HighAQIDaysTotal, c.Observations, string(c.Risk),
		); err != nil {
			return fmt.Errorf("insert county %s: %w", c.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", s.ID, err)
	}
	return nil
}

const listSnapshots = `SELECT id, dataset_version, scope, percentile, chronic_threshold, acute_threshold, total_counties, dj_count, computed_at
FROM risk_snapshots
ORDER BY computed_at DESC
LIMIT $1`

// ListSnapshots implements dashboard.SnapshotArchive.
func (a *Archive) ListSnapshots(ctx context.Context, limit int) ([]dashboard.SnapshotRecord, error) {
	rows, err := a.db.QueryContext(ctx, listSnapshots, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]dashboard.SnapshotRecord, 0, limit)
	for rows.Next() {
		var (
			r              dashboard.SnapshotRecord
			chronic, acute sql.NullFloat64
		)
		if err := rows.Scan(&r.ID, &r.DatasetVersion, &r.Scope, &r.Percentile,
			&chronic, &acute, &r.TotalCounties, &r.DoubleJeopardyCount, &r.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.ChronicThreshold = nullFloat(chronic)
		r.AcuteThreshold = nullFloat(acute)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

const selectCounties = `SELECT state, county, median_aqi_avg, max_aqi_avg, high_aqi_days_total, observations, risk
FROM county_risk
WHERE snapshot_id = $1
ORDER BY state, county`

// SnapshotCounties implements dashboard.SnapshotArchive.
func (a *Archive) SnapshotCounties(ctx context.Context, id uuid.UUID) ([]domain.ClassifiedCounty, error) {
	var exists bool
	err := a.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM risk_snapshots WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup snapshot %s: %w", id, err)
	}
	if !exists {
		return nil, dashboard.ErrSnapshotNotFound
	}

	rows, err := a.db.QueryContext(ctx, selectCounties, id)
	if err != nil {
		return nil, fmt.Errorf("select counties: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ClassifiedCounty, 0)
	for rows.Next() {
		var (
			c    domain.ClassifiedCounty
			risk string
		)
		if err := rows.Scan(&c.State, &c.County, &c.MedianAQIAvg, &c.MaxAQIAvg,
			&c.HighAQIDaysTotal, &c.Observations, &risk); err != nil {
			return nil, fmt.Errorf("scan county: %w", err)
		}
		c.Risk = domain.RiskLabel(risk)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counties: %w", err)
	}
	return out, nil
}

// CheckReadiness pings the database.
func (a *Archive) CheckReadiness(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return errors.Join(errors.New("postgres unavailable"), err)
	}
	return nil
}

func nullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
