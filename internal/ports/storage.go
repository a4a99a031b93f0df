package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// SnapshotStore persiste el histórico de snapshots que alimenta los backtests.
type SnapshotStore interface {
	// SaveSnapshots hace upsert de los snapshots (clave: market_id + timestamp).
	SaveSnapshots(ctx context.Context, snaps []domain.MarketSnapshot) error

	// LoadSnapshots devuelve los snapshots del rango, ordenados por timestamp.
	// Rango zero = sin límite por ese extremo.
	LoadSnapshots(ctx context.Context, from, to time.Time) ([]domain.MarketSnapshot, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}

// RunStore persiste el resumen de cada run de backtest para comparar
// configuraciones a lo largo del tiempo.
type RunStore interface {
	// SaveRun persiste el resumen de un run y devuelve su ID.
	SaveRun(ctx context.Context, result *domain.Result) (string, error)

	// GetRuns devuelve los resúmenes guardados, el más reciente primero.
	GetRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)
}
