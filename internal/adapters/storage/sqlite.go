package storage

// sqlite.go — cache de snapshots e histórico de runs.
//
// Estrategia:
//   - `snapshots`: una fila por (market_id, ts) con UPSERT. El collector puede
//     re-recolectar el mismo rango sin duplicar filas.
//   - `runs`: resumen ligero por backtest, una fila por run. La curva de
//     equity y los fills viven en los exports CSV, no en la DB.
//   - Prune automático al arrancar: snapshots con más de 180 días.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polysim/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Un snapshot por mercado y timestamp, sin duplicados
CREATE TABLE IF NOT EXISTS snapshots (
    market_id  TEXT     NOT NULL,
    ts         DATETIME NOT NULL,
    question   TEXT,
    yes_price  REAL     NOT NULL,
    no_price   REAL     NOT NULL,
    volume     REAL     NOT NULL DEFAULT 0,
    volume_24h REAL     NOT NULL DEFAULT 0,
    liquidity  REAL     NOT NULL DEFAULT 0,
    end_date   DATETIME,
    resolved   INTEGER  NOT NULL DEFAULT 0,
    resolution TEXT     NOT NULL DEFAULT '',
    PRIMARY KEY (market_id, ts)
);

-- Resumen por run de backtest
CREATE TABLE IF NOT EXISTS runs (
    id               TEXT PRIMARY KEY,
    created_at       DATETIME NOT NULL,
    strategy         TEXT     NOT NULL,
    start_date       DATETIME,
    end_date         DATETIME,
    initial_capital  REAL     NOT NULL,
    final_capital    REAL     NOT NULL,
    total_return_pct REAL     NOT NULL,
    total_trades     INTEGER  NOT NULL,
    fill_rate        REAL     NOT NULL,
    sharpe_ratio     REAL     NOT NULL,
    max_drawdown_pct REAL     NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snap_ts   ON snapshots(ts);
CREATE INDEX IF NOT EXISTS idx_runs_at   ON runs(created_at DESC);
`

const retentionSnapshots = 180 * 24 * time.Hour

// SQLiteStorage implementa ports.SnapshotStore, ports.RunStore y
// ports.PaperStorage sobre SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia snapshots antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	if _, err := db.Exec(paperSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply paper schema: %w", err)
	}

	s := &SQLiteStorage{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveSnapshots hace upsert de los snapshots en una sola transacción.
func (s *SQLiteStorage) SaveSnapshots(ctx context.Context, snaps []domain.MarketSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots
			(market_id, ts, question, yes_price, no_price, volume, volume_24h,
			 liquidity, end_date, resolved, resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id, ts) DO UPDATE SET
			question   = excluded.question,
			yes_price  = excluded.yes_price,
			no_price   = excluded.no_price,
			volume     = excluded.volume,
			volume_24h = excluded.volume_24h,
			liquidity  = excluded.liquidity,
			end_date   = excluded.end_date,
			resolved   = excluded.resolved,
			resolution = excluded.resolution
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveSnapshots: prepare: %w", err)
	}
	defer stmt.Close()

	for _, snap := range snaps {
		resolved := 0
		if snap.Resolved {
			resolved = 1
		}
		var endDate *time.Time
		if !snap.EndDate.IsZero() {
			t := snap.EndDate.UTC()
			endDate = &t
		}

		if _, err := stmt.ExecContext(ctx,
			snap.MarketID,
			snap.Timestamp.UTC(),
			snap.Question,
			snap.YesPrice,
			snap.NoPrice,
			snap.Volume,
			snap.Volume24h,
			snap.Liquidity,
			endDate,
			resolved,
			snap.Resolution,
		); err != nil {
			return fmt.Errorf("storage.SaveSnapshots: upsert %s: %w", snap.MarketID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveSnapshots: commit: %w", err)
	}
	return nil
}

// LoadSnapshots devuelve los snapshots del rango ordenados por timestamp.
// Rango zero = sin límite por ese extremo.
func (s *SQLiteStorage) LoadSnapshots(ctx context.Context, from, to time.Time) ([]domain.MarketSnapshot, error) {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Now().UTC().AddDate(10, 0, 0)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT market_id, ts, question, yes_price, no_price, volume, volume_24h,
		       liquidity, end_date, resolved, resolution
		FROM snapshots
		WHERE ts BETWEEN ? AND ?
		ORDER BY ts ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("storage.LoadSnapshots: query: %w", err)
	}
	defer rows.Close()

	var snaps []domain.MarketSnapshot
	for rows.Next() {
		var snap domain.MarketSnapshot
		var endDate sql.NullTime
		var resolved int

		if err := rows.Scan(
			&snap.MarketID,
			&snap.Timestamp,
			&snap.Question,
			&snap.YesPrice,
			&snap.NoPrice,
			&snap.Volume,
			&snap.Volume24h,
			&snap.Liquidity,
			&endDate,
			&resolved,
			&snap.Resolution,
		); err != nil {
			return nil, fmt.Errorf("storage.LoadSnapshots: scan row: %w", err)
		}

		snap.Resolved = resolved == 1
		if endDate.Valid {
			snap.EndDate = endDate.Time.UTC()
		}
		snap.Timestamp = snap.Timestamp.UTC()
		snaps = append(snaps, snap)
	}

	return snaps, rows.Err()
}

// SaveRun persiste el resumen de un run y devuelve su ID.
func (s *SQLiteStorage) SaveRun(ctx context.Context, result *domain.Result) (string, error) {
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
			(id, created_at, strategy, start_date, end_date, initial_capital,
			 final_capital, total_return_pct, total_trades, fill_rate,
			 sharpe_ratio, max_drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		time.Now().UTC(),
		result.StrategyName,
		result.StartDate.UTC(),
		result.EndDate.UTC(),
		result.InitialCapital,
		result.FinalCapital,
		result.TotalReturnPct,
		result.TotalTrades,
		result.FillRate,
		result.SharpeRatio,
		result.MaxDrawdownPct,
	); err != nil {
		return "", fmt.Errorf("storage.SaveRun: insert: %w", err)
	}
	return id, nil
}

// GetRuns devuelve los resúmenes guardados, el más reciente primero.
func (s *SQLiteStorage) GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, strategy, start_date, end_date, initial_capital,
		       final_capital, total_return_pct, total_trades, fill_rate,
		       sharpe_ratio, max_drawdown_pct
		FROM runs
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRuns: query: %w", err)
	}
	defer rows.Close()

	var runs []domain.RunSummary
	for rows.Next() {
		var r domain.RunSummary
		if err := rows.Scan(
			&r.ID,
			&r.CreatedAt,
			&r.StrategyName,
			&r.StartDate,
			&r.EndDate,
			&r.InitialCapital,
			&r.FinalCapital,
			&r.TotalReturnPct,
			&r.TotalTrades,
			&r.FillRate,
			&r.SharpeRatio,
			&r.MaxDrawdownPct,
		); err != nil {
			return nil, fmt.Errorf("storage.GetRuns: scan row: %w", err)
		}
		runs = append(runs, r)
	}

	return runs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// pruneOld elimina snapshots antiguos para mantener la DB ligera.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionSnapshots)
	s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE ts < ?`, cutoff)
}
