// Package logging はアプリケーション全体で使う構造化ロガーのインターフェースを定義します。
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// Logger はコンテキスト付きの構造化ロガーです。
// 可変長引数は key, value の組として解釈されます。
//
//	logger.Info(ctx, "server started", "addr", addr)
type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}

// New は出力先とモードに応じた slog ベースのロガーを作成します。
// 本番では JSON、それ以外はテキスト形式で出力します。
func New(w io.Writer, level string, production bool) *SlogLogger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	if production {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return NewSlogLogger(slog.New(h))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
