package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// PaperStorage persiste el estado del paper trading entre reinicios.
type PaperStorage interface {
	SavePaperOrder(ctx context.Context, order domain.VirtualOrder) error
	MarkPaperOrderFilled(ctx context.Context, orderID string, filledAt time.Time, filledPrice float64) error
	ExpirePaperOrders(ctx context.Context, now time.Time) (int, error)
	GetOpenPaperOrders(ctx context.Context) ([]domain.VirtualOrder, error)
	GetPaperStats(ctx context.Context) (domain.PaperStats, error)
}
