package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"tradeorchestrator/src/model"
)

func TestOrderRepositoryCreateWithAutoLog(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO "order_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	order := &model.Order{
		PortfolioID:   1,
		ClientOrderID: "co-1",
		IntentID:      "intent-1",
		Broker:        "alpaca",
		Symbol:        "AAPL",
		Side:          model.SideBuy,
		OrderType:     model.OrderTypeMarket,
		Quantity:      decimal.RequireFromString("10"),
		Notional:      decimal.RequireFromString("2000"),
		Status:        model.OrderStatusNew,
	}
	if err := repo.CreateWithAutoLog(context.Background(), order); err != nil {
		t.Fatalf("unexpected error creating order: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryUpdateStatusWritesTransitionLog(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, model.OrderStatusAccepted))
	mock.ExpectExec(`UPDATE "orders" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "order_logs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectCommit()

	if err := repo.UpdateStatusWithAutoLog(context.Background(), 5, model.OrderStatusFilled, "fill confirmed"); err != nil {
		t.Fatalf("unexpected error updating status: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestOrderRepositoryUpdateStatusNoOpOnSameStatus(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &OrderRepository{db: mockDB}

	// Same status: no update, no log row, transaction still commits.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "orders"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "status"}).AddRow(5, model.OrderStatusFilled))
	mock.ExpectCommit()

	if err := repo.UpdateStatusWithAutoLog(context.Background(), 5, model.OrderStatusFilled, "duplicate update"); err != nil {
		t.Fatalf("unexpected error on no-op update: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}
