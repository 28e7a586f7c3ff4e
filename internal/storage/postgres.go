package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/profile-lab-go/internal/domain"
)

// PostgresService mirrors the JSON records into Postgres for ad-hoc SQL
// reporting. The JSON files stay the source of truth; the mirror is
// rebuilt by the migrate_json_to_db command and may lag behind the
// files between runs.
type PostgresService struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresService(dsn string, logger *zap.Logger) (*PostgresService, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logger.Info("PostgreSQL connected")

	return &PostgresService{db: db, logger: logger}, nil
}

func (ps *PostgresService) GetDB() *sql.DB {
	return ps.db
}

func (ps *PostgresService) Close() error {
	if ps.db != nil {
		return ps.db.Close()
	}
	return nil
}

func (ps *PostgresService) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

// EnsureSchema creates the mirror tables if they do not exist.
func (ps *PostgresService) EnsureSchema(ctx context.Context) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tests (
			id           TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			prompt       TEXT NOT NULL,
			section      TEXT NOT NULL,
			params       TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL,
			version      TEXT NOT NULL,
			created_date TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			profile_id  TEXT NOT NULL,
			test_title  TEXT NOT NULL,
			affinity    TEXT NOT NULL,
			score       INTEGER NOT NULL,
			confidence  DOUBLE PRECISION NOT NULL,
			commentary  TEXT NOT NULL DEFAULT '',
			palette     TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (profile_id, test_title)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_test_title ON ratings (test_title)`,
	}

	for _, stmt := range schema {
		if _, err := ps.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

func (ps *PostgresService) UpsertTest(ctx context.Context, test domain.Test) error {
	_, err := ps.db.ExecContext(ctx, `
		INSERT INTO tests (id, title, prompt, section, params, status, version, created_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			prompt = EXCLUDED.prompt,
			section = EXCLUDED.section,
			params = EXCLUDED.params,
			status = EXCLUDED.status,
			version = EXCLUDED.version,
			created_date = EXCLUDED.created_date`,
		test.ID, test.Title, test.Prompt, string(test.Section),
		test.Params, string(test.Status), string(test.Version), test.CreatedDate)
	if err != nil {
		return fmt.Errorf("failed to upsert test %s: %w", test.ID, err)
	}
	return nil
}

func (ps *PostgresService) DeleteTest(ctx context.Context, id string) error {
	if _, err := ps.db.ExecContext(ctx, `DELETE FROM tests WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete test %s: %w", id, err)
	}
	return nil
}

// ReplaceProfileRatings swaps a profile's rating rows for the given set
// in one transaction, matching the wholesale JSON write.
func (ps *PostgresService) ReplaceProfileRatings(ctx context.Context, profileID string, ratings map[string]domain.Rating) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("failed to clear ratings for %s: %w", profileID, err)
	}

	for title, rating := range ratings {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO ratings (profile_id, test_title, affinity, score, confidence, commentary, palette)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			profileID, title, string(rating.Affinity), rating.Score,
			rating.Confidence, rating.Commentary, rating.ColorPalette)
		if err != nil {
			return fmt.Errorf("failed to insert rating %s/%s: %w", profileID, title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ratings for %s: %w", profileID, err)
	}

	ps.logger.Debug("Profile ratings mirrored",
		zap.String("profile_id", profileID),
		zap.Int("ratings", len(ratings)),
	)
	return nil
}

func (ps *PostgresService) CountRatings(ctx context.Context) (int, error) {
	var count int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}

func (ps *PostgresService) CountTests(ctx context.Context) (int, error) {
	var count int
	if err := ps.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tests`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tests: %w", err)
	}
	return count, nil
}
