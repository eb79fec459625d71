package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/meyasu/internal/auth"
	"github.com/hitoshi/meyasu/internal/board"
	"github.com/hitoshi/meyasu/internal/config"
	"github.com/hitoshi/meyasu/internal/database"
	"github.com/hitoshi/meyasu/internal/handler"
	"github.com/hitoshi/meyasu/internal/logger"
	"github.com/hitoshi/meyasu/internal/metrics"
	"github.com/hitoshi/meyasu/internal/ratelimit"
	"github.com/hitoshi/meyasu/internal/repository"
	"github.com/hitoshi/meyasu/internal/security"
	"github.com/hitoshi/meyasu/internal/visitor"
	"github.com/hitoshi/meyasu/internal/worker/cleanup"
)

const (
	dbPingTimeout       = 5 * time.Second
	shutdownTimeout     = 30 * time.Second
	rateJanitorInterval = time.Minute
)

// logLevel はInit後にLOG_LEVELの値で更新される。
var logLevel slog.LevelVar

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップした後、環境変数からConfigを読み込み、ログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logLevel.Set(slog.LevelInfo)
	logger.SetupDefault(w, &logLevel)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logLevel.Set(logger.ParseLevel(cfg.LogLevel))

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
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		action, err := ParseMigrateArgs(args[1:])
		if err != nil {
			return err
		}
		return runMigrate(cfg, action)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.OpenWithPool(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// ratePolicies は設定値で上限回数を上書きしたレート制限ポリシーを返す。
// ウィンドウ長は既定値のまま使う。
func ratePolicies(cfg *config.Config) ratelimit.Policies {
	policies := ratelimit.DefaultPolicies()
	limits := map[ratelimit.Class]int{
		ratelimit.ClassSubmit:     cfg.RateLimitSubmit,
		ratelimit.ClassVote:       cfg.RateLimitVote,
		ratelimit.ClassAdminLogin: cfg.RateLimitAdminLogin,
		ratelimit.ClassGeneral:    cfg.RateLimitGeneral,
	}
	for class, limit := range limits {
		if limit > 0 {
			p := policies[class]
			p.Limit = limit
			policies[class] = p
		}
	}
	return policies
}

// pingFunc は疎通確認関数をhandler.HealthCheckerとして扱うためのアダプタ。
type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// newRateStore はレート制限カウンタの保持先を生成する。
// REDIS_URLが設定されている場合はRedisを使い、そうでなければプロセス内に保持する。
// 戻り値のHealthCheckerはRedis使用時のみ非nilになる。
func newRateStore(ctx context.Context, cfg *config.Config) (ratelimit.Store, handler.HealthChecker, func(), error) {
	if cfg.RedisURL == "" {
		store := ratelimit.NewMemoryStore()
		store.StartJanitor(ctx, rateJanitorInterval)
		slog.Info("rate limit store: in-memory")
		return store, nil, func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	store := ratelimit.NewRedisStore(rdb)

	pingCtx, cancel := context.WithTimeout(ctx, dbPingTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		rdb.Close()
		return nil, nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("rate limit store: redis", slog.String("addr", opts.Addr))
	return store, pingFunc(store.Ping), func() { rdb.Close() }, nil
}

// buildHandler は全依存関係をワイヤリングし、APIのHTTPハンドラーを構築する。
func buildHandler(cfg *config.Config, db *sql.DB, store ratelimit.Store, reg *prometheus.Registry, extraCheckers ...handler.HealthChecker) http.Handler {
	// 1. メトリクス
	collector := metrics.NewCollector(reg)

	// 2. リポジトリの初期化
	visitorRepo := repository.NewPostgresVisitorRepo(db)
	repos := board.Repositories{
		Categories:   repository.NewPostgresCategoryRepo(db),
		Opinions:     repository.NewPostgresOpinionRepo(db),
		Solutions:    repository.NewPostgresSolutionRepo(db),
		Votes:        repository.NewPostgresVoteRepo(db),
		DeletionLogs: repository.NewPostgresDeletionLogRepo(db),
	}

	// 3. レート制限
	limiter := ratelimit.NewLimiter(store, ratePolicies(cfg))

	// 4. ドメインサービスの初期化
	visitors := visitor.NewManager(visitorRepo, visitor.Config{
		Retention:    cfg.VisitorRetention,
		CookieDomain: cfg.CookieDomain,
		Secure:       cfg.CookieSecure,
		EmbedOrigins: cfg.EmbedAllowedOrigins,
	}, visitor.WithCreateHook(collector.RecordVisitorCreated))

	boardService := board.NewService(
		repos,
		security.NewContentSanitizer(),
		security.NewContentFilter(),
		limiter,
		collector,
	)

	authService := auth.NewService(auth.ServiceConfig{
		Password:      cfg.AdminPassword,
		Secret:        []byte(cfg.SessionSecret),
		SessionMaxAge: cfg.AdminSessionMaxAge,
		FailureDelay:  cfg.AdminFailureDelay,
		CookieDomain:  cfg.CookieDomain,
		Secure:        cfg.CookieSecure,
	}, limiter)
	if cfg.AdminPassword == "" {
		slog.Warn("ADMIN_PASSWORD is not set; admin login is disabled")
	}

	// 5. ルーターの構築
	checkers := append([]handler.HealthChecker{db}, extraCheckers...)
	return handler.NewRouter(&handler.RouterDeps{
		Logger:         slog.Default(),
		HealthCheckers: checkers,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),

		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		FrameAncestors:     cfg.EmbedAllowedOrigins,
		CookieDomain:       cfg.CookieDomain,
		CookieSecure:       cfg.CookieSecure,
		TrustProxy:         cfg.TrustProxyHeaders,
		RateLimiter:        limiter,
		Visitors:           visitors,
		AdminVerifier:      authService,

		Board:      boardService,
		AdminAuth:  authService,
		Moderation: boardService,
		PII:        security.NewPIIDetector(),
	})
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. レート制限カウンタの保持先
	store, storeChecker, closeStore, err := newRateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var extra []handler.HealthChecker
	if storeChecker != nil {
		extra = append(extra, storeChecker)
	}
	router := buildHandler(cfg, db, store, prometheus.NewRegistry(), extra...)

	// 3. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	case <-ctx.Done():
	}
	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、失効した訪問者レコードの定期削除を実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	job := cleanup.NewCleanupJob(repository.NewPostgresVisitorRepo(db), slog.Default(), nil)

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.CleanupInterval),
	)

	// ctxがキャンセルされるまでブロックする
	job.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
func runMigrate(cfg *config.Config, action MigrateAction) error {
	slog.Info("running database migrations",
		slog.String("action", string(action.Kind)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch action.Kind {
	case MigrateDown:
		if err := database.RollbackMigrations(cfg.DatabaseURL, action.Steps); err != nil {
			return fmt.Errorf("migration rollback failed: %w", err)
		}
		slog.Info("database migrations rolled back", slog.Int("steps", action.Steps))
	case MigrateVersion:
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to read migration version: %w", err)
		}
		slog.Info("database migration version",
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	default:
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		slog.Info("database migrations completed successfully")
	}
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

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
