package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/domain"
)

// WatermarkRepo implements persistence.WatermarkRepo against
// stock_update_tracking (spec §6, §4.2).
type WatermarkRepo struct {
	DB *sqlx.DB
}

type watermarkRow struct {
	Symbol           string    `db:"symbol"`
	Source           string    `db:"source"`
	LastUpdatedDate  time.Time `db:"last_updated_date"`
	TotalRecords     int64     `db:"total_records"`
	LastUpdateStatus string    `db:"last_update_status"`
	LastErrorMessage sql.NullString `db:"last_error_message"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (r watermarkRow) toDomain() domain.Watermark {
	return domain.Watermark{
		Symbol: r.Symbol, Source: domain.Source(r.Source), LastUpdatedDate: r.LastUpdatedDate,
		TotalRecords: r.TotalRecords, Status: domain.UpdateStatus(r.LastUpdateStatus),
		LastErrorMessage: r.LastErrorMessage.String, UpdatedAt: r.UpdatedAt,
	}
}

func (r *WatermarkRepo) GetOrCreate(ctx context.Context, symbol, source string, genesis time.Time) (domain.Watermark, error) {
	var row watermarkRow
	err := r.DB.GetContext(ctx, &row, `
		SELECT symbol, source, last_updated_date, total_records, last_update_status, last_error_message, updated_at
		FROM stock_update_tracking WHERE symbol = $1 AND source = $2`, symbol, source)
	if err == nil {
		return row.toDomain(), nil
	}
	if err != sql.ErrNoRows {
		return domain.Watermark{}, fmt.Errorf("postgres: get watermark: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO stock_update_tracking (symbol, source, last_updated_date, total_records, last_update_status, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5)
		ON CONFLICT (symbol, source) DO NOTHING`, symbol, source, genesis, domain.StatusPending, now)
	if err != nil {
		return domain.Watermark{}, fmt.Errorf("postgres: create watermark: %w", err)
	}
	return domain.Watermark{
		Symbol: symbol, Source: domain.Source(source), LastUpdatedDate: genesis,
		Status: domain.StatusPending, UpdatedAt: now,
	}, nil
}

func (r *WatermarkRepo) Advance(ctx context.Context, w domain.Watermark) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE stock_update_tracking
		SET last_updated_date = GREATEST(last_updated_date, $3),
		    total_records = $4, last_update_status = $5, last_error_message = NULL, updated_at = $6
		WHERE symbol = $1 AND source = $2`,
		w.Symbol, w.Source, w.LastUpdatedDate, w.TotalRecords, domain.StatusSuccess, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: advance watermark: %w", err)
	}
	return nil
}

func (r *WatermarkRepo) Fail(ctx context.Context, w domain.Watermark) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE stock_update_tracking
		SET last_update_status = $3, last_error_message = $4, updated_at = $5
		WHERE symbol = $1 AND source = $2`,
		w.Symbol, w.Source, domain.StatusError, w.LastErrorMessage, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: fail watermark: %w", err)
	}
	return nil
}
