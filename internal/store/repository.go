package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/hedgestress/internal/stress"
	"github.com/wonny/hedgestress/pkg/database"
)

// ErrNotFound 저장된 결과 없음
var ErrNotFound = errors.New("stress result not found")

// Record 시나리오 하나의 저장된 스트레스 결과
type Record struct {
	ID           int64                  `json:"id"`
	RunID        uuid.UUID              `json:"run_id"`
	Scenario     string                 `json:"scenario"`
	ScenarioHash string                 `json:"scenario_hash"`
	ModelHash    string                 `json:"model_hash"`
	Converged    bool                   `json:"converged"`
	LossRatio    float64                `json:"loss_ratio"`
	JointSigma   float64                `json:"joint_sigma"`
	Score        float64                `json:"score"`
	Hint         stress.Hint            `json:"hint"`
	Shock        stress.ShockParams     `json:"shock"`
	Moves        stress.FactorMoves     `json:"moves"`
	PnL          stress.PnLBreakdown    `json:"pnl"`
	Metrics      stress.ScenarioMetrics `json:"metrics"`
	CreatedAt    time.Time              `json:"created_at"`
}

// NewRecord flattens an engine result into a storable record.
func NewRecord(runID uuid.UUID, scenarioHash, modelHash string, res *stress.StressResult) *Record {
	return &Record{
		RunID:        runID,
		Scenario:     res.Scenario,
		ScenarioHash: scenarioHash,
		ModelHash:    modelHash,
		Converged:    res.Result.Converged,
		LossRatio:    res.Result.PnL.LossRatio,
		JointSigma:   res.Result.Shock.JointSigma,
		Score:        res.Metrics.Score,
		Hint:         res.Metrics.Hint,
		Shock:        res.Result.Shock,
		Moves:        res.Result.Moves,
		PnL:          res.Result.PnL,
		Metrics:      res.Metrics,
	}
}

// Repository 스트레스 결과 저장소
// ⭐ SSOT: stress.results 테이블 접근은 여기서만
type Repository struct {
	db *database.DB
}

// NewRepository 새 저장소 생성
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS stress`,
	`CREATE TABLE IF NOT EXISTS stress.results (
		id            BIGSERIAL PRIMARY KEY,
		run_id        UUID NOT NULL,
		scenario      TEXT NOT NULL,
		scenario_hash TEXT NOT NULL,
		model_hash    TEXT NOT NULL,
		converged     BOOLEAN NOT NULL,
		loss_ratio    DOUBLE PRECISION NOT NULL,
		joint_sigma   DOUBLE PRECISION NOT NULL,
		score         DOUBLE PRECISION NOT NULL,
		hint          TEXT NOT NULL,
		shock         JSONB NOT NULL,
		moves         JSONB NOT NULL,
		pnl           JSONB NOT NULL,
		metrics       JSONB NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_results_scenario_created ON stress.results (scenario, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_results_run ON stress.results (run_id)`,
}

// EnsureSchema 테이블/인덱스 생성 (idempotent)
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		for _, stmt := range schemaStatements {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		return nil
	})
}

// Save 결과 저장, ID/CreatedAt 채움
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	shock, moves, pnl, metrics, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stress.results
			(run_id, scenario, scenario_hash, model_hash, converged, loss_ratio, joint_sigma,
			 score, hint, shock, moves, pnl, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at`

	err = r.db.Pool.QueryRow(ctx, query,
		rec.RunID.String(), rec.Scenario, rec.ScenarioHash, rec.ModelHash, rec.Converged,
		rec.LossRatio, rec.JointSigma, rec.Score, string(rec.Hint),
		shock, moves, pnl, metrics,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("save result %s: %w", rec.Scenario, err)
	}
	return nil
}

const selectColumns = `
	SELECT id, run_id::text, scenario, scenario_hash, model_hash, converged, loss_ratio,
		   joint_sigma, score, hint, shock, moves, pnl, metrics, created_at
	FROM stress.results`

// Latest 시나리오의 가장 최근 결과
func (r *Repository) Latest(ctx context.Context, scenario string) (*Record, error) {
	query := selectColumns + `
	WHERE scenario = $1
	ORDER BY created_at DESC, id DESC
	LIMIT 1`

	rec, err := scanRecord(r.db.Pool.QueryRow(ctx, query, scenario))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest result %s: %w", scenario, err)
	}
	return rec, nil
}

// ListRun 배치 실행 하나의 모든 결과 (시나리오명 순)
func (r *Repository) ListRun(ctx context.Context, runID uuid.UUID) ([]*Record, error) {
	query := selectColumns + `
	WHERE run_id = $1
	ORDER BY scenario`

	rows, err := r.db.Pool.Query(ctx, query, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list run %s: %w", runID, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec                        Record
		runID, hint                string
		shock, moves, pnl, metrics []byte
	)
	err := row.Scan(
		&rec.ID, &runID, &rec.Scenario, &rec.ScenarioHash, &rec.ModelHash, &rec.Converged,
		&rec.LossRatio, &rec.JointSigma, &rec.Score, &hint,
		&shock, &moves, &pnl, &metrics, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rec.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("parse run_id: %w", err)
	}
	rec.Hint = stress.Hint(hint)
	if err := decodeRecord(&rec, shock, moves, pnl, metrics); err != nil {
		return nil, err
	}
	return &rec, nil
}

func encodeRecord(rec *Record) (shock, moves, pnl, metrics []byte, err error) {
	if shock, err = json.Marshal(rec.Shock); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode shock: %w", err)
	}
	if moves, err = json.Marshal(rec.Moves); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode moves: %w", err)
	}
	if pnl, err = json.Marshal(rec.PnL); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode pnl: %w", err)
	}
	if metrics, err = json.Marshal(rec.Metrics); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("encode metrics: %w", err)
	}
	return shock, moves, pnl, metrics, nil
}

func decodeRecord(rec *Record, shock, moves, pnl, metrics []byte) error {
	if err := json.Unmarshal(shock, &rec.Shock); err != nil {
		return fmt.Errorf("decode shock: %w", err)
	}
	if err := json.Unmarshal(moves, &rec.Moves); err != nil {
		return fmt.Errorf("decode moves: %w", err)
	}
	if err := json.Unmarshal(pnl, &rec.PnL); err != nil {
		return fmt.Errorf("decode pnl: %w", err)
	}
	if err := json.Unmarshal(metrics, &rec.Metrics); err != nil {
		return fmt.Errorf("decode metrics: %w", err)
	}
	return nil
}
