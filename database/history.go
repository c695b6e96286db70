package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v4"

	"multihorizon/models"
)

// Querier is the subset of a pgx pool or connection the history reader needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const dailySalesQuery = `
        SELECT date_trunc('day', s.sale_date) AS day, SUM(si.quantity_sold)::bigint
        FROM sales s
        JOIN sale_items si ON s.id = si.sale_id
        JOIN shops sh ON s.shop_id = sh.id
        JOIN inventory_items ii ON si.inventory_item_id = ii.id
        WHERE sh.name = $1 AND ii.name = $2 AND s.sale_date >= $3
        GROUP BY day
        ORDER BY day
    `

// SalesHistory reads daily unit sales for a store/item pair from Postgres.
type SalesHistory struct {
	db   Querier
	days int
	now  func() time.Time
}

// NewSalesHistory returns a reader covering the last days calendar days, today included.
func NewSalesHistory(db Querier, days int) *SalesHistory {
	return &SalesHistory{db: db, days: days, now: time.Now}
}

// History returns one value per day, oldest first. Days without sales are zero.
func (h *SalesHistory) History(ctx context.Context, id models.Identity) ([]float64, error) {
	today := truncateDay(h.now())
	start := today.AddDate(0, 0, -(h.days - 1))

	rows, err := h.db.Query(ctx, dailySalesQuery, id.StoreName, id.ItemName, start)
	if err != nil {
		return nil, fmt.Errorf("query sales history: %w", err)
	}
	defer rows.Close()

	series := make([]float64, h.days)
	found := 0
	for rows.Next() {
		var hs models.HistoricalSale
		if err := rows.Scan(&hs.SaleDate, &hs.QuantitySold); err != nil {
			return nil, fmt.Errorf("scan sales history: %w", err)
		}
		idx := int(truncateDay(hs.SaleDate).Sub(start).Hours() / 24)
		if idx < 0 || idx >= h.days {
			log.Printf("[HISTORY] skipping sale day %s outside window starting %s", hs.SaleDate.Format("2006-01-02"), start.Format("2006-01-02"))
			continue
		}
		series[idx] += float64(hs.QuantitySold)
		found++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sales history: %w", err)
	}
	if found == 0 {
		return nil, models.NewError(models.KindNoDataAvailable,
			fmt.Sprintf("No sales recorded for %s at %s in the last %d days.", id.ItemName, id.StoreName, h.days))
	}
	return series, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
