// Package logger はアプリケーション共通のslogロガーを構築する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// level はSetupで生成したすべてのハンドラーが共有する出力レベル。
// 設定の読み込み前にロガーを使い始めるため、後からSetLevelで変更できるようにしている。
var level = new(slog.LevelVar)

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 出力レベルはSetLevelで設定された値に従う（初期値はInfo）。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", "knowledgeout-web"))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w))
}

// SetLevel はログの出力レベルを変更する。
func SetLevel(l slog.Level) {
	level.Set(l)
}
