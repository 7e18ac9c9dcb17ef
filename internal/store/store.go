package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/legalscope/internal/contractanalysis"
)

var ErrNotFound = errors.New("analysis not found")

// Store persists completed analyses to SQLite. Results are stored as JSON
// blobs; the listing columns are denormalized for cheap queries.
type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id           TEXT PRIMARY KEY,
	filename     TEXT NOT NULL DEFAULT '',
	created_at   TEXT NOT NULL,
	total_clauses INTEGER NOT NULL DEFAULT 0,
	risk_count   INTEGER NOT NULL DEFAULT 0,
	risk_level   TEXT NOT NULL DEFAULT 'low',
	result       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses (created_at DESC);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AnalysisRecord is the listing view of a stored analysis.
type AnalysisRecord struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	CreatedAt    time.Time `json:"created_at"`
	TotalClauses int       `json:"total_clauses"`
	RiskCount    int       `json:"risk_count"`
	RiskLevel    string    `json:"risk_level"`
}

func (s *Store) Save(ctx context.Context, id string, res contractanalysis.AnalysisResult) error {
	blob, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO analyses (id, filename, created_at, total_clauses, risk_count, risk_level, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		res.Filename,
		time.Now().UTC().Format(time.RFC3339Nano),
		res.TotalClauses,
		res.RiskCount,
		string(res.RiskSummary.OverallRiskLevel),
		string(blob),
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (contractanalysis.AnalysisResult, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, "SELECT result FROM analyses WHERE id = ?", id).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return contractanalysis.AnalysisResult{}, ErrNotFound
	}
	if err != nil {
		return contractanalysis.AnalysisResult{}, fmt.Errorf("query analysis: %w", err)
	}
	var res contractanalysis.AnalysisResult
	if err := json.Unmarshal([]byte(blob), &res); err != nil {
		return contractanalysis.AnalysisResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return res, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]AnalysisRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, created_at, total_clauses, risk_count, risk_level
		FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	out := []AnalysisRecord{}
	for rows.Next() {
		var rec AnalysisRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.Filename, &createdAt, &rec.TotalClauses, &rec.RiskCount, &rec.RiskLevel); err != nil {
			return nil, err
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
