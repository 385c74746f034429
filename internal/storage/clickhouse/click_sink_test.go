package clickhouse

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/IgorGrieder/linkedge/internal/events"
)

func TestClickSinkWritesBatchInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	batch := []events.ClickEvent{
		{EventID: "e1", LinkID: "l1", Domain: "sho.rt", Key: "promo", Country: "BR", Device: "ios", Timestamp: ts, Count: 1},
		{EventID: "e2", LinkID: "l2", Domain: "sho.rt", Key: "docs", QR: true, Timestamp: ts},
	}

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO clicks"))
	prep.ExpectExec().
		WithArgs("e1", "l1", "sho.rt", "promo", "BR", "ios", "", "", uint8(0), int64(1), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("e2", "l2", "sho.rt", "docs", "unknown", "unknown", "", "", uint8(1), int64(1), ts).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := NewClickSink(db).WriteClicks(context.Background(), batch); err != nil {
		t.Fatalf("WriteClicks: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestClickSinkSkipsEmptyBatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	if err := NewClickSink(db).WriteClicks(context.Background(), nil); err != nil {
		t.Fatalf("WriteClicks: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}

func TestClickSinkPropagatesBeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	err = NewClickSink(db).WriteClicks(context.Background(), []events.ClickEvent{{EventID: "e1", LinkID: "l1"}})
	if err == nil {
		t.Fatal("expected error")
	}
}
