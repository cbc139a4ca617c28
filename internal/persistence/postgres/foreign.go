package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/domain"
)

// ForeignFlowRepo implements persistence.ForeignFlowRepo against
// foreign_trades (spec §6).
type ForeignFlowRepo struct {
	DB *sqlx.DB
}

func (r *ForeignFlowRepo) Upsert(ctx context.Context, rows []domain.ForeignFlow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin foreign upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	// RETURNING (xmax = 0) counts genuine inserts only, not conflict
	// overwrites — same reasoning as PriceRepo.Upsert.
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO foreign_trades (symbol, time, buy_volume, sell_volume, net_volume, buy_value, sell_value, net_value, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (symbol, time) DO UPDATE SET
			buy_volume = EXCLUDED.buy_volume, sell_volume = EXCLUDED.sell_volume,
			net_volume = EXCLUDED.net_volume, buy_value = EXCLUDED.buy_value,
			sell_value = EXCLUDED.sell_value, net_value = EXCLUDED.net_value,
			source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`)
	if err != nil {
		return 0, fmt.Errorf("postgres: prepare foreign upsert: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, f := range rows {
		var inserted bool
		if err := stmt.GetContext(ctx, &inserted, f.Symbol, f.Time, f.BuyVolume, f.SellVolume, f.NetVolume(),
			f.BuyValue, f.SellValue, f.NetValue(), string(f.Source), now); err != nil {
			return 0, fmt.Errorf("postgres: upsert foreign flow %s@%s: %w", f.Symbol, f.Time, err)
		}
		if inserted {
			stored++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit foreign upsert: %w", err)
	}
	return stored, nil
}
