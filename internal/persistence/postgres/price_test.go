package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnph/vnquant/internal/domain"
)

func newMockRepo(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPriceRepo_UpsertEmptyBatchSkipsTransaction(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	stored, err := repo.Upsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_UpsertStoresEachBarInOneTransaction(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	bars := []domain.Bar{
		{Symbol: "ACB", Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000},
		{Symbol: "ACB", Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 11.5, Low: 10, Close: 11, Volume: 1200},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO stock_prices`)
	insertedRow := sqlmock.NewRows([]string{"inserted"}).AddRow(true)
	prep.ExpectQuery().WillReturnRows(insertedRow)
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectCommit()

	stored, err := repo.Upsert(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_UpsertCountsOnlyGenuineInsertsNotOverwrites(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	bars := []domain.Bar{
		{Symbol: "ACB", Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000},
		{Symbol: "ACB", Time: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Open: 10.5, High: 11.5, Low: 10, Close: 11, Volume: 1200},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO stock_prices`)
	// First bar is a conflict overwrite (xmax != 0), second is a genuine
	// insert: "stored" must count only the second one.
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(false))
	prep.ExpectQuery().WillReturnRows(sqlmock.NewRows([]string{"inserted"}).AddRow(true))
	mock.ExpectCommit()

	stored, err := repo.Upsert(context.Background(), bars)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_UpsertRollsBackOnExecError(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	bars := []domain.Bar{
		{Symbol: "ACB", Time: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1000},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO stock_prices`)
	prep.ExpectQuery().WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err := repo.Upsert(context.Background(), bars)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_LastTimeNoMatchingSymbolReturnsFalse(t *testing.T) {
	// MAX() over zero matching rows still returns one row with a NULL
	// value rather than no rows at all.
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	rows := sqlmock.NewRows([]string{"max"}).AddRow(nil)
	mock.ExpectQuery(`SELECT MAX\(time\) FROM stock_prices WHERE symbol = \$1`).
		WithArgs("ACB").WillReturnRows(rows)

	_, ok, err := repo.LastTime(context.Background(), "ACB")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_LastTimeReturnsStoredValue(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	want := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"max"}).AddRow(want)
	mock.ExpectQuery(`SELECT MAX\(time\) FROM stock_prices WHERE symbol = \$1`).
		WithArgs("ACB").WillReturnRows(rows)

	got, ok, err := repo.LastTime(context.Background(), "ACB")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, want.Equal(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_RangeQueryMapsRowsAscending(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"symbol", "time", "open", "high", "low", "close", "volume", "source"}).
		AddRow("ACB", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 10.0, 11.0, 9.0, 10.5, int64(1000), "ssi").
		AddRow("ACB", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), 10.5, 11.5, 10.0, 11.0, int64(1200), "ssi")

	mock.ExpectQuery(`SELECT symbol, time, open, high, low, close, volume, source`).
		WithArgs("ACB", from, to).WillReturnRows(rows)

	bars, err := repo.RangeQuery(context.Background(), "ACB", from, to)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "ACB", bars[0].Symbol)
	assert.Equal(t, domain.Source("ssi"), bars[1].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceRepo_PurgeBeforeReturnsRowsAffected(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &PriceRepo{DB: sqlxDB}

	cutoff := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM stock_prices WHERE symbol = \$1 AND time < \$2`).
		WithArgs("ACB", cutoff).WillReturnResult(sqlmock.NewResult(0, 37))

	n, err := repo.PurgeBefore(context.Background(), "ACB", cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(37), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
