package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"inkwell/internal/middleware"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// gormSlog routes GORM's logging into slog and feeds the query duration histogram.
type gormSlog struct {
	log   *slog.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewGormLogger reports query errors and slow queries; LogMode(Info) adds every statement.
func NewGormLogger(l *slog.Logger) gormlogger.Interface {
	return &gormSlog{log: l, level: gormlogger.Warn, slow: slowQueryThreshold}
}

func (g *gormSlog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormSlog) printf(ctx context.Context, threshold gormlogger.LogLevel, lvl slog.Level, msg string, args []any) {
	if g.level >= threshold {
		g.log.Log(ctx, lvl, fmt.Sprintf(msg, args...))
	}
}

func (g *gormSlog) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Info, slog.LevelInfo, msg, args)
}

func (g *gormSlog) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Warn, slog.LevelWarn, msg, args)
}

func (g *gormSlog) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Error, slog.LevelError, msg, args)
}

func (g *gormSlog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	middleware.DBQueryDuration.Observe(elapsed.Seconds())
	if g.level == gormlogger.Silent {
		return
	}

	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := g.slow > 0 && elapsed > g.slow
	var lvl slog.Level
	var msg string
	switch {
	case failed && g.level >= gormlogger.Error:
		lvl, msg = slog.LevelError, "query failed"
	case slow && g.level >= gormlogger.Warn:
		lvl, msg = slog.LevelWarn, "slow query"
	case g.level >= gormlogger.Info:
		lvl, msg = slog.LevelDebug, "query"
	default:
		return
	}

	sql, rows := fc()
	attrs := []slog.Attr{
		slog.String("sql", sql),
		slog.Int64("rows", rows),
		slog.Duration("elapsed", elapsed),
	}
	if failed {
		attrs = append(attrs, slog.Any("error", err))
	}
	g.log.LogAttrs(ctx, lvl, msg, attrs...)
}
