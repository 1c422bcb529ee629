package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/knowledgeout/internal/admin"
	"github.com/hitoshi/knowledgeout/internal/answer"
	"github.com/hitoshi/knowledgeout/internal/apiclient"
	"github.com/hitoshi/knowledgeout/internal/auth"
	"github.com/hitoshi/knowledgeout/internal/category"
	"github.com/hitoshi/knowledgeout/internal/config"
	"github.com/hitoshi/knowledgeout/internal/handler"
	"github.com/hitoshi/knowledgeout/internal/logger"
	"github.com/hitoshi/knowledgeout/internal/member"
	"github.com/hitoshi/knowledgeout/internal/metrics"
	"github.com/hitoshi/knowledgeout/internal/mypage"
	"github.com/hitoshi/knowledgeout/internal/question"
	"github.com/hitoshi/knowledgeout/internal/security"
)

// defaultServerPort はSERVER_PORTが未設定の場合のポート。
const defaultServerPort = "3000"

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、JSON構造化ログをセットアップしてから環境変数のConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（既存の環境変数は上書きしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.SetLevel(cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = defaultServerPort
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("api_base_url", cfg.APIBaseURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runServe(ctx, cfg)
}

// newHandler はバックエンドAPIクライアントと全依存関係をワイヤリングしたHTTPハンドラーを返す。
func newHandler(cfg *config.Config, reg *prometheus.Registry) http.Handler {
	log := slog.Default()
	collector := metrics.NewCollector(reg)

	// 1. バックエンドAPIクライアント
	client := apiclient.New(cfg.APIBaseURL,
		apiclient.WithLogger(log),
		apiclient.WithObserver(collector),
		apiclient.WithTimeout(cfg.APIRequestTimeout),
	)

	// 2. 機能別のAPI
	members := member.NewAPI(client, log)
	questions := question.NewAPI(client, log)
	answers := answer.NewAPI(client, log)
	categories := category.NewAPI(client, log)
	dashboard := admin.NewAPI(client, log)

	// 3. ルーターの構築
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            log,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CookieDomain:      cfg.CookieDomain,
		CookieSecure:      cfg.CookieSecure,
		SessionAPI:        members,
		Collector:         collector,
		Gatherer:          reg,

		AuthService:     auth.NewService(members, log),
		MyPageLoader:    mypage.NewLoader(members, log),
		MemberService:   members,
		QuestionService: questions,
		AnswerService:   answers,
		CategoryService: categories,
		AdminService:    dashboard,
		Sanitizer:       security.NewContentSanitizer(),
	})
}

// newRegistry はプロセスとGoランタイムのメトリクスを登録したレジストリを返す。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はBFFサーバーを起動し、ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      newHandler(cfg, newRegistry()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.APIRequestTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return serve(ctx, server, cfg.ShutdownTimeout)
}

// serve はserverを起動し、ctxのキャンセルまたは起動失敗まで待つ。
func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server listen failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
