package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoangnph/vnquant/internal/persistence"
)

func TestIndicatorCalculationRepo_UpsertReturnsID(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &IndicatorCalculationRepo{DB: sqlxDB}

	s := persistence.IndicatorCalculationSummary{
		Symbol: "ACB", CalculationDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		ConfigID: 1, DataPoints: 70,
		StartDate: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		CalculationMillis: 12,
	}
	mock.ExpectQuery(`INSERT INTO indicator_calculations`).
		WithArgs(s.Symbol, s.CalculationDate, s.ConfigID, s.DataPoints, s.StartDate, s.EndDate, s.CalculationMillis).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	id, err := repo.Upsert(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIndicatorCalculationRepo_UpsertWrapsError(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &IndicatorCalculationRepo{DB: sqlxDB}

	mock.ExpectQuery(`INSERT INTO indicator_calculations`).WillReturnError(assert.AnError)

	_, err := repo.Upsert(context.Background(), persistence.IndicatorCalculationSummary{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert indicator calculation")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalysisResultRepo_UpsertReturnsID(t *testing.T) {
	sqlxDB, mock := newMockRepo(t)
	repo := &AnalysisResultRepo{DB: sqlxDB}

	s := persistence.AnalysisResultSummary{
		Symbol: "ACB", AnalysisDate: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		IndicatorCalculationID: 42, IndicatorConfigID: 1, ScoringConfigID: 2, AnalysisConfigID: 3,
		TotalSignals: 2, BuySignals: 1, SellSignals: 0, HoldSignals: 1,
		AvgScore: 0.6, MaxScore: 0.9, MinScore: 0.3,
	}
	mock.ExpectQuery(`INSERT INTO analysis_results`).
		WithArgs(s.Symbol, s.AnalysisDate, s.IndicatorCalculationID, s.IndicatorConfigID, s.ScoringConfigID, s.AnalysisConfigID,
			s.TotalSignals, s.BuySignals, s.SellSignals, s.HoldSignals, s.AvgScore, s.MaxScore, s.MinScore).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(99)))

	id, err := repo.Upsert(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
