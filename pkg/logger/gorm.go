package logger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormOptions tunes which statements reach the structured log.
type GormOptions struct {
	SlowThreshold time.Duration
	LogAll        bool
}

type gormAdapter struct {
	logg  *Logger
	opts  GormOptions
	level gormlogger.LogLevel
}

// Gorm adapts the structured logger to gorm's logger interface. Record-not-found
// errors are skipped; repositories translate them into NOT_FOUND responses.
func (l *Logger) Gorm(opts GormOptions) gormlogger.Interface {
	if opts.SlowThreshold <= 0 {
		opts.SlowThreshold = 200 * time.Millisecond
	}
	return &gormAdapter{logg: l, opts: opts, level: gormlogger.Warn}
}

func (g *gormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormAdapter) Info(ctx context.Context, msg string, _ ...interface{}) {
	if g.level >= gormlogger.Info {
		g.logg.Info(ctx, msg)
	}
}

func (g *gormAdapter) Warn(ctx context.Context, msg string, _ ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.logg.Warn(ctx, msg)
	}
}

func (g *gormAdapter) Error(ctx context.Context, msg string, _ ...interface{}) {
	if g.level >= gormlogger.Error {
		g.logg.Error(ctx, msg, nil)
	}
}

func (g *gormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= gormlogger.Error:
		sql, rows := fc()
		ctx = g.logg.WithFields(ctx, map[string]any{"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds()})
		g.logg.Error(ctx, "db.query_failed", err)
	case elapsed > g.opts.SlowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		ctx = g.logg.WithFields(ctx, map[string]any{"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds()})
		g.logg.Warn(ctx, "db.slow_query")
	case g.opts.LogAll:
		sql, rows := fc()
		ctx = g.logg.WithFields(ctx, map[string]any{"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds()})
		g.logg.Debug(ctx, "db.query")
	}
}
