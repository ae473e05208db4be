package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHeldIntentDecideMarksPending(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &HeldIntentRepository{db: mockDB}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "held_intents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Decide(context.Background(), "intent-1", "approved", "ops"); err != nil {
		t.Fatalf("unexpected error deciding held intent: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestHeldIntentDecideRejectsDoubleDecision(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := &HeldIntentRepository{db: mockDB}

	// Zero rows affected: the intent was already decided or never existed.
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "held_intents" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.Decide(context.Background(), "intent-1", "denied", "ops"); err == nil {
		t.Fatal("expected error for already-decided intent")
	}
}

func TestHeldIntentDecideValidatesStatus(t *testing.T) {
	mockDB, _ := newMockDB(t)
	repo := &HeldIntentRepository{db: mockDB}

	if err := repo.Decide(context.Background(), "intent-1", "expired", "ops"); err == nil {
		t.Fatal("only approved and denied are valid operator decisions")
	}
}
