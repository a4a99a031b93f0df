package storage

// paper.go — persistencia del estado de paper trading.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

const paperSchema = `
CREATE TABLE IF NOT EXISTS paper_orders (
    id           TEXT PRIMARY KEY,
    market_id    TEXT     NOT NULL,
    question     TEXT,
    side         TEXT     NOT NULL,
    price        REAL     NOT NULL,
    size         REAL     NOT NULL,
    status       TEXT     NOT NULL DEFAULT 'open',
    created_at   DATETIME NOT NULL,
    expires_at   DATETIME NOT NULL,
    filled_at    DATETIME,
    filled_price REAL     NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_paper_status ON paper_orders(status);
CREATE INDEX IF NOT EXISTS idx_paper_market ON paper_orders(market_id);
`

// SavePaperOrder persiste una orden virtual nueva.
func (s *SQLiteStorage) SavePaperOrder(ctx context.Context, order domain.VirtualOrder) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO paper_orders
			(id, market_id, question, side, price, size, status, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		order.ID,
		order.MarketID,
		order.Question,
		order.Side,
		order.Price,
		order.Size,
		order.Status,
		order.CreatedAt.UTC(),
		order.ExpiresAt.UTC(),
	); err != nil {
		return fmt.Errorf("storage.SavePaperOrder: insert %s: %w", order.ID, err)
	}
	return nil
}

// MarkPaperOrderFilled marca una orden como filled al precio dado.
func (s *SQLiteStorage) MarkPaperOrderFilled(ctx context.Context, orderID string, filledAt time.Time, filledPrice float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE paper_orders
		SET status = ?, filled_at = ?, filled_price = ?
		WHERE id = ? AND status = ?
	`, domain.OrderFilled, filledAt.UTC(), filledPrice, orderID, domain.OrderOpen)
	if err != nil {
		return fmt.Errorf("storage.MarkPaperOrderFilled: update %s: %w", orderID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.MarkPaperOrderFilled: order %s not open", orderID)
	}
	return nil
}

// ExpirePaperOrders marca como expiradas las órdenes abiertas que superaron
// su TTL. Devuelve cuántas expiraron.
func (s *SQLiteStorage) ExpirePaperOrders(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE paper_orders
		SET status = ?
		WHERE status = ? AND expires_at < ?
	`, domain.OrderExpired, domain.OrderOpen, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("storage.ExpirePaperOrders: update: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// GetOpenPaperOrders devuelve las órdenes abiertas, la más antigua primero.
func (s *SQLiteStorage) GetOpenPaperOrders(ctx context.Context) ([]domain.VirtualOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, question, side, price, size, status,
		       created_at, expires_at, filled_at, filled_price
		FROM paper_orders
		WHERE status = ?
		ORDER BY created_at ASC
	`, domain.OrderOpen)
	if err != nil {
		return nil, fmt.Errorf("storage.GetOpenPaperOrders: query: %w", err)
	}
	defer rows.Close()

	var orders []domain.VirtualOrder
	for rows.Next() {
		var o domain.VirtualOrder
		var filledAt sql.NullTime

		if err := rows.Scan(
			&o.ID,
			&o.MarketID,
			&o.Question,
			&o.Side,
			&o.Price,
			&o.Size,
			&o.Status,
			&o.CreatedAt,
			&o.ExpiresAt,
			&filledAt,
			&o.FilledPrice,
		); err != nil {
			return nil, fmt.Errorf("storage.GetOpenPaperOrders: scan row: %w", err)
		}

		if filledAt.Valid {
			t := filledAt.Time.UTC()
			o.FilledAt = &t
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// GetPaperStats devuelve el resumen agregado de la sesión.
func (s *SQLiteStorage) GetPaperStats(ctx context.Context) (domain.PaperStats, error) {
	var stats domain.PaperStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = 'open'    THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'filled'  THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'expired' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'filled'  THEN filled_price * size ELSE 0 END), 0)
		FROM paper_orders
	`).Scan(&stats.OpenOrders, &stats.FilledOrders, &stats.ExpiredOrders, &stats.TotalVolume)
	if err != nil {
		return domain.PaperStats{}, fmt.Errorf("storage.GetPaperStats: query: %w", err)
	}
	return stats, nil
}
