package main

import (
	"context"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/escrow-backend/internal/config"
	"github.com/ignatzorin/escrow-backend/internal/db"
	"github.com/ignatzorin/escrow-backend/internal/domain/entity"
	"github.com/ignatzorin/escrow-backend/internal/domain/repository"
	httpRouter "github.com/ignatzorin/escrow-backend/internal/http/router"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/escrow-backend/internal/infrastructure/persistence"
	"github.com/ignatzorin/escrow-backend/internal/interface/http/handler"
	"github.com/ignatzorin/escrow-backend/internal/logger"
	"github.com/ignatzorin/escrow-backend/internal/service"
	"github.com/ignatzorin/escrow-backend/internal/storage"
	"github.com/ignatzorin/escrow-backend/internal/usecase/chat"
	"github.com/ignatzorin/escrow-backend/internal/usecase/dispute"
	"github.com/ignatzorin/escrow-backend/internal/usecase/transaction"
	"github.com/ignatzorin/escrow-backend/internal/ws"
	"github.com/ignatzorin/escrow-backend/migrations"
)

// repositories набор хранилищ, общий для всех сценариев.
type repositories struct {
	transactions repository.TransactionRepository
	slips        repository.SlipRepository
	disputes     repository.DisputeRepository
	messages     repository.MessageRepository
}

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	repos, dbConn, err := openStorage(ctx, cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось подготовить хранилище")
	}
	if dbConn != nil {
		defer safeClose(dbConn)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	blobStorage, err := storage.NewBlobStorage(cfg.MediaStoragePath, cfg.MediaBaseURL, cfg.MaxUploadSizeMB)
	if err != nil {
		logger.Log.WithError(err).Fatal("main: не удалось подготовить файловое хранилище")
	}

	// Вебсокеты и присутствие.
	hub := ws.NewHub()
	presenceCache := service.NewCacheService(ctx, time.Minute)
	presence := chat.NewPresence(presenceCache, cfg.PresenceTTL)

	chatDeps := &chat.Deps{
		Transactions: repos.transactions,
		Messages:     repos.messages,
	}
	roomManager := chat.NewRoomManager(chatDeps, hub, presence)
	hub.SetHandler(roomManager)
	go hub.Run(ctx)

	// Сценарии сделки и споров. Переходы рассылаются в комнату сделки.
	txDeps := &transaction.Deps{
		Transactions: repos.transactions,
		Slips:        repos.slips,
		Fees:         transaction.StaticFees(cfg.Fees),
		Windows: entity.EscrowWindows{
			InviteTTL:        cfg.Escrow.InviteTTL,
			PaymentTimeout:   cfg.Escrow.PaymentTimeout,
			AutoReleaseAfter: cfg.Escrow.AutoReleaseAfter,
		},
		Notifier: roomManager,
	}
	disputeDeps := &dispute.Deps{
		Transactions: repos.transactions,
		Disputes:     repos.disputes,
		Notifier:     roomManager,
	}

	transaction.NewSweeper(txDeps, cfg.Escrow.SweepInterval).Start(ctx)

	// HTTP хэндлеры.
	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Transaction: handler.NewTransactionHandler(txDeps),
		Dispute:     handler.NewDisputeHandler(disputeDeps),
		Chat:        handler.NewChatHandler(chatDeps, roomManager),
		Admin:       handler.NewAdminHandler(txDeps, disputeDeps),
		Upload:      handler.NewUploadHandler(blobStorage),
		WS:          handler.NewWSHandler(hub, tokenManager, cfg.AllowedOrigins),
		Health:      handler.NewHealthHandler(dbConn),
	}, tokenManager)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Log.WithError(err).Error("main: ошибка остановки http сервера")
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).WithField("storage", cfg.StorageDriver).Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Log.WithError(err).Fatal("main: сервер завершился с ошибкой")
	}
}

// openStorage выбирает хранилище по STORAGE_DRIVER. Для PostgreSQL применяет миграции.
func openStorage(ctx context.Context, cfg *config.Config) (repositories, *sqlx.DB, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Log.Warn("main: данные хранятся в памяти и пропадут при перезапуске")
		store := memory.NewStore()
		return repositories{
			transactions: store.Transactions(),
			slips:        store.Slips(),
			disputes:     store.Disputes(),
			messages:     store.Messages(),
		}, nil, nil
	}

	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, nil, err
	}

	var migrationsFS fs.FS = migrations.FS
	if cfg.MigrationsPath != "" {
		migrationsFS = os.DirFS(cfg.MigrationsPath)
	}
	if err := db.RunMigrations(ctx, dbConn, migrationsFS); err != nil {
		safeClose(dbConn)
		return repositories{}, nil, err
	}

	return repositories{
		transactions: persistence.NewTransactionRepositoryAdapter(dbConn),
		slips:        persistence.NewSlipRepositoryAdapter(dbConn),
		disputes:     persistence.NewDisputeRepositoryAdapter(dbConn),
		messages:     persistence.NewMessageRepositoryAdapter(dbConn),
	}, dbConn, nil
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
