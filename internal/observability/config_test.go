package observability

import (
	"testing"
	"time"

	"github.com/smallbiznis/coursemart/internal/config"
	gormlogger "gorm.io/gorm/logger"
)

func TestLoadConfigReadsQueryLogging(t *testing.T) {
	t.Setenv("DB_LOG_LEVEL", "Error")
	t.Setenv("DB_SLOW_QUERY_MS", "750")

	cfg := LoadConfig(config.Config{AppName: "coursemart", Environment: "test"})
	if cfg.SQLLogLevel != "error" {
		t.Fatalf("expected sql log level error, got %q", cfg.SQLLogLevel)
	}
	if cfg.SlowQueryThreshold != 750*time.Millisecond {
		t.Fatalf("expected 750ms slow threshold, got %s", cfg.SlowQueryThreshold)
	}

	gormCfg := provideGormLoggerConfig(cfg)
	if gormCfg.Level != gormlogger.Error {
		t.Fatalf("expected gorm error level, got %d", gormCfg.Level)
	}
	if gormCfg.SlowThreshold != 750*time.Millisecond {
		t.Fatalf("expected gorm slow threshold 750ms, got %s", gormCfg.SlowThreshold)
	}
}

func TestLoadConfigQueryLoggingDefaults(t *testing.T) {
	t.Setenv("DB_LOG_LEVEL", "")
	t.Setenv("DB_SLOW_QUERY_MS", "-5")

	cfg := LoadConfig(config.Config{})
	if cfg.SQLLogLevel != "warn" {
		t.Fatalf("expected default sql log level warn, got %q", cfg.SQLLogLevel)
	}
	if cfg.SlowQueryThreshold != 200*time.Millisecond {
		t.Fatalf("expected default 200ms, got %s", cfg.SlowQueryThreshold)
	}
	if gormCfg := provideGormLoggerConfig(cfg); gormCfg.Level != gormlogger.Warn {
		t.Fatalf("expected gorm warn level, got %d", gormCfg.Level)
	}
}
