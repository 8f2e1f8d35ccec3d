package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/kokoro/internal/chat"
	"github.com/hitoshi/kokoro/internal/config"
	"github.com/hitoshi/kokoro/internal/conversation"
	"github.com/hitoshi/kokoro/internal/database"
	"github.com/hitoshi/kokoro/internal/entitlement"
	"github.com/hitoshi/kokoro/internal/greeting"
	"github.com/hitoshi/kokoro/internal/handler"
	"github.com/hitoshi/kokoro/internal/logger"
	"github.com/hitoshi/kokoro/internal/metrics"
	"github.com/hitoshi/kokoro/internal/provider"
	"github.com/hitoshi/kokoro/internal/repository"
	"github.com/hitoshi/kokoro/internal/security"
	"github.com/hitoshi/kokoro/internal/subscription"
	"github.com/hitoshi/kokoro/internal/summary"
	"github.com/hitoshi/kokoro/internal/telegram"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

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
			port = "8080"
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
		slog.String("model", cfg.Model),
	)

	switch cmd {
	case CommandBot:
		return runBot(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandReport:
		return runReport(w, cfg)
	default:
		return runBot(cfg)
	}
}

// runBot はTelegramボットモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、ロングポーリングを開始する。
// ヘルスチェックとメトリクス用の運用HTTPサーバーも同時に起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runBot(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. リポジトリの初期化
	messageRepo := repository.NewPostgresMessageRepo(db)
	summaryRepo := repository.NewPostgresSummaryRepo(db)
	usageRepo := repository.NewPostgresUsageRepo(db)
	subRepo := repository.NewPostgresSubscriptionRepo(db)

	// 3. メトリクスの初期化
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. 補完クライアントの初期化
	completer := provider.NewClient(
		cfg.ProviderBaseURL, cfg.ProviderAPIKey, cfg.Model,
		cfg.ProviderTimeout, cfg.ProviderAPIInterval, slog.Default(),
	)

	// 5. ドメインサービスの初期化
	entitlements := entitlement.NewService(usageRepo, subRepo, cfg.FreeDailyLimit)
	summaries := summary.NewService(
		messageRepo, summaryRepo, completer,
		cfg.MaxHistory, cfg.SummaryTrigger, cfg.SummaryTemperature,
	)
	assembler := conversation.NewAssembler(messageRepo, summaryRepo, cfg.MaxHistory)
	chatService := chat.NewService(
		entitlements, messageRepo, summaries, assembler,
		completer, collector, cfg.ChatTemperature, slog.Default(),
	)
	greetings := greeting.NewClassifier(messageRepo, cfg.LongGap)
	subscriptions := subscription.NewService(subRepo, cfg.SubscriptionDays)
	sanitizer := security.NewReplySanitizer()

	// 6. Telegramクライアントの初期化
	client, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create telegram client: %w", err)
	}

	slog.Info("telegram client ready",
		slog.String("username", client.Self.UserName),
	)

	bot := telegram.NewBot(
		client,
		telegram.BotConfig{
			PollTimeout:            cfg.PollTimeout,
			MaxConcurrent:          cfg.MaxConcurrent,
			PaymentProviderToken:   cfg.PaymentProviderToken,
			SubscriptionPriceMinor: cfg.SubscriptionPriceMinor,
			SubscriptionCurrency:   cfg.SubscriptionCurrency,
		},
		chatService, summaries, greetings, subscriptions,
		sanitizer, collector, slog.Default(),
	)

	// 7. 運用HTTPサーバーの起動
	router := handler.NewRouter(&handler.RouterDeps{
		HealthChecker: db,
		Metrics:       metrics.Handler(registry),
		Logger:        slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("ops server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("ops server listen error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down bot...")
		cancel()
	}()

	// ボットをメインgoroutineで実行（ブロッキング）
	if err := bot.Run(ctx); err != nil {
		return fmt.Errorf("bot stopped with error: %w", err)
	}

	// 8. 運用HTTPサーバーの停止
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runReport は利用状況レポートを集計してwriterへ出力する。
// 当日の利用ユーザー数・総メッセージ数・有効なサブスクリプション数を1回だけ集計する。
func runReport(w io.Writer, cfg *config.Config) error {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 日付キーは無料枠の判定と同じサーバーローカル時刻で揃える。
	now := time.Now()
	day := now.Format("2006-01-02")

	report, err := repository.NewPostgresReportRepo(db).Collect(ctx, now, day)
	if err != nil {
		return fmt.Errorf("failed to collect usage report: %w", err)
	}

	fmt.Fprintf(w, "date: %s\n", day)
	fmt.Fprintf(w, "total messages: %d\n", report.TotalMessages)
	fmt.Fprintf(w, "active users today: %d\n", report.ActiveUsersToday)
	fmt.Fprintf(w, "active subscriptions: %d\n", report.ActiveSubscriptions)

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

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
