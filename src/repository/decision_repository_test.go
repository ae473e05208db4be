package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"tradeorchestrator/src/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "sqlmock_db_0",
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	})

	gdb, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		sqlDB.Close()
		t.Fatalf("failed to open gorm DB with sqlmock: %v", err)
	}

	return gdb, mock
}

func TestDecisionRepositorySearchFilters(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &DecisionRepository{db: mockDB}

	decidedAt := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "portfolio_id", "correlation_id", "phase", "decision_type", "symbol", "outcome", "decided_at"}).
		AddRow(2, 1, "c-2", "intraday", "entry", "AAPL", "executed", decidedAt.Add(time.Hour)).
		AddRow(1, 1, "c-1", "intraday", "entry", "AAPL", "rejected", decidedAt)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "decisions" WHERE portfolio_id = $1 AND symbol = $2 ORDER BY decided_at DESC LIMIT $3`)).
		WithArgs(uint(1), "AAPL", 100).
		WillReturnRows(rows)

	results, err := repo.Search(context.Background(), SearchFilter{PortfolioID: 1, Symbol: "AAPL"})
	if err != nil {
		t.Fatalf("unexpected error searching decisions: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 decisions, got %d", len(results))
	}
	if results[0].CorrelationID != "c-2" {
		t.Fatalf("expected newest decision first, got %+v", results[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestDecisionRepositoryCreateAppends(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &DecisionRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "decisions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	decision := &model.Decision{
		PortfolioID:   1,
		CorrelationID: "c-1",
		Phase:         "intraday",
		DecisionType:  model.DecisionTypeEntry,
		Symbol:        "AAPL",
		Outcome:       model.DecisionOutcomeExecuted,
		DecidedAt:     time.Now(),
	}
	if err := repo.Create(context.Background(), decision); err != nil {
		t.Fatalf("unexpected error creating decision: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestDecisionRepositorySupersedeChainsToOriginal(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &DecisionRepository{db: mockDB}

	originalRows := sqlmock.NewRows([]string{"id", "portfolio_id", "correlation_id", "decision_type", "outcome"}).
		AddRow(7, 3, "c-7", "entry", "executed")
	mock.ExpectQuery(`SELECT \* FROM "decisions"`).
		WillReturnRows(originalRows)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "decisions"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(8))
	mock.ExpectCommit()

	corrected := &model.Decision{
		DecisionType: model.DecisionTypeEntry,
		Outcome:      model.DecisionOutcomeFailed,
		Reason:       "fill never confirmed",
		DecidedAt:    time.Now(),
	}
	if err := repo.Supersede(context.Background(), 7, corrected); err != nil {
		t.Fatalf("unexpected error superseding decision: %v", err)
	}

	if corrected.SupersedesID == nil || *corrected.SupersedesID != 7 {
		t.Fatalf("corrected decision must reference the original, got %+v", corrected.SupersedesID)
	}
	if corrected.PortfolioID != 3 || corrected.CorrelationID != "c-7" {
		t.Fatalf("corrected decision must inherit portfolio and correlation, got %+v", corrected)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
