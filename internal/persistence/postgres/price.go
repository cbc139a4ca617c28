package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hoangnph/vnquant/internal/domain"
)

// PriceRepo implements persistence.PriceRepo against stock_prices (spec
// §6, §4.3 steps 3/7).
type PriceRepo struct {
	DB *sqlx.DB
}

// Upsert inserts bars, overwriting numeric fields and updated_at on a
// (symbol, time) conflict (spec §4.3 step 7). created_at is preserved on
// conflict so re-ingesting the same bar twice keeps its original
// created_at (scenario E).
func (r *PriceRepo) Upsert(ctx context.Context, bars []domain.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin price upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	// RETURNING (xmax = 0) distinguishes a genuine insert from a conflict
	// overwrite: xmax is unset (0) only for a freshly inserted row, so
	// "stored" counts real new rows rather than every row touched — an
	// overwrite of an already-stored bar must not inflate stored/TotalRecords
	// (spec invariant 2, scenario A/E).
	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO stock_prices (symbol, time, open, high, low, close, volume, value, source, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (symbol, time) DO UPDATE SET
			open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close,
			volume = EXCLUDED.volume, value = EXCLUDED.value, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted`)
	if err != nil {
		return 0, fmt.Errorf("postgres: prepare price upsert: %w", err)
	}
	defer stmt.Close()

	stored := 0
	for _, b := range bars {
		var inserted bool
		if err := stmt.GetContext(ctx, &inserted, b.Symbol, b.Time, b.Open, b.High, b.Low, b.Close, b.Volume, b.Value(), string(b.Source), now); err != nil {
			return 0, fmt.Errorf("postgres: upsert bar %s@%s: %w", b.Symbol, b.Time, err)
		}
		if inserted {
			stored++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit price upsert: %w", err)
	}
	return stored, nil
}

// LastTime returns the latest stored bar time for a symbol, used by the
// ingestion engine's manual-backfill cross-check (spec §4.3 step 3).
func (r *PriceRepo) LastTime(ctx context.Context, symbol string) (time.Time, bool, error) {
	// MAX() over zero matching rows still returns one row with a NULL
	// value, not sql.ErrNoRows, so the target must tolerate NULL.
	var t sql.NullTime
	err := r.DB.GetContext(ctx, &t, `SELECT MAX(time) FROM stock_prices WHERE symbol = $1`, symbol)
	if err == sql.ErrNoRows || !t.Valid {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("postgres: last bar time: %w", err)
	}
	return t.Time, true, nil
}

// RangeQuery returns ascending bars for symbol within [from, to], the
// window the analysis pipeline loads before computing indicators (spec
// §4.4 "Input").
func (r *PriceRepo) RangeQuery(ctx context.Context, symbol string, from, to time.Time) ([]domain.Bar, error) {
	var rows []struct {
		Symbol string    `db:"symbol"`
		Time   time.Time `db:"time"`
		Open   float64   `db:"open"`
		High   float64   `db:"high"`
		Low    float64   `db:"low"`
		Close  float64   `db:"close"`
		Volume int64     `db:"volume"`
		Source string    `db:"source"`
	}
	err := r.DB.SelectContext(ctx, &rows, `
		SELECT symbol, time, open, high, low, close, volume, source
		FROM stock_prices
		WHERE symbol = $1 AND time BETWEEN $2 AND $3
		ORDER BY time ASC`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: range query: %w", err)
	}
	bars := make([]domain.Bar, len(rows))
	for i, row := range rows {
		bars[i] = domain.Bar{
			Symbol: row.Symbol, Time: row.Time,
			Open: row.Open, High: row.High, Low: row.Low, Close: row.Close,
			Volume: row.Volume, Source: domain.Source(row.Source),
		}
	}
	return bars, nil
}

// PurgeBefore deletes bars strictly before cutoff for a symbol (spec §3
// "purged only via explicit retention operations").
func (r *PriceRepo) PurgeBefore(ctx context.Context, symbol string, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM stock_prices WHERE symbol = $1 AND time < $2`, symbol, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: purge bars: %w", err)
	}
	return res.RowsAffected()
}
