package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	obscontext "github.com/smallbiznis/coursemart/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-1")
	ctx = obscontext.WithViewerID(ctx, "42")

	WithContext(ctx, base).Info("playback_token_issued")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("expected request_id req-1, got %v", fields["request_id"])
	}
	if fields["viewer_id"] != "42" {
		t.Fatalf("expected viewer_id 42, got %v", fields["viewer_id"])
	}
	if _, ok := fields["trace_id"]; !ok {
		t.Fatalf("expected trace_id field")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT 1":                                  "SELECT",
		"WITH x AS (SELECT 1) SELECT * FROM x":      "SELECT",
		"INSERT INTO purchases (id) VALUES (1)":     "INSERT",
		"  update checkout_attempts set status = ?": "UPDATE",
		"": "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}

var errUniqueViolation = errors.New("UNIQUE constraint failed: purchases.account_id, purchases.course_id")

func TestGormTraceLogsResolvedConflictsAtDebug(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultGormLoggerConfig()
	cfg.Base = zap.New(core)
	cfg.Resolved = func(err error) bool { return errors.Is(err, errUniqueViolation) }
	gormLog := NewGormLogger(cfg)

	ctx := obscontext.WithViewerID(context.Background(), "7")
	insert := func() (string, int64) {
		return "INSERT INTO purchases (id, account_id, course_id) VALUES (?,?,?)", 0
	}
	gormLog.Trace(ctx, time.Now(), insert, errUniqueViolation)
	gormLog.Trace(ctx, time.Now(), insert, errors.New("connection reset"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	resolved := entries[0]
	if resolved.Level != zapcore.DebugLevel {
		t.Fatalf("expected duplicate insert at debug, got %s", resolved.Level)
	}
	fields := resolved.ContextMap()
	if fields["resolved_conflict"] != true {
		t.Fatalf("expected resolved_conflict marker, got %v", fields["resolved_conflict"])
	}
	if fields["table"] != "purchases" {
		t.Fatalf("expected table purchases, got %v", fields["table"])
	}
	if fields["viewer_id"] != "7" {
		t.Fatalf("expected viewer_id 7, got %v", fields["viewer_id"])
	}

	failed := entries[1]
	if failed.Level != zapcore.ErrorLevel {
		t.Fatalf("expected unexpected failure at error, got %s", failed.Level)
	}
	if failed.ContextMap()["viewer_id"] != "7" {
		t.Fatalf("expected viewer_id on failure entry")
	}
}

func TestGormTraceSkipsMissingRows(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultGormLoggerConfig()
	cfg.Base = zap.New(core)
	gormLog := NewGormLogger(cfg)

	gormLog.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM cart_items WHERE account_id = ?", 0
	}, gormlogger.ErrRecordNotFound)

	if logs.Len() != 0 {
		t.Fatalf("expected no entries for a missing row, got %d", logs.Len())
	}
}

func TestTableFromSQL(t *testing.T) {
	cases := map[string]string{
		"INSERT INTO cart_items (id) VALUES (1)":      "cart_items",
		"SELECT p.id FROM purchases p JOIN courses c": "purchases",
		`UPDATE "checkout_attempts" SET status = ?`:   "checkout_attempts",
		"SELECT 1": "",
	}
	for sql, want := range cases {
		if got := tableFromSQL(sql); got != want {
			t.Fatalf("tableFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}
