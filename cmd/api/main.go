package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"artmarket/internal/config"
	"artmarket/internal/handler"
	"artmarket/internal/infra/db"
	"artmarket/internal/infra/messaging"
	"artmarket/internal/infra/redisx"
	infraRepo "artmarket/internal/infra/repository"
	"artmarket/internal/logging"
	"artmarket/internal/payments"
	"artmarket/internal/server"
	"artmarket/internal/usecase"
	"artmarket/internal/worker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// .envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// 金額はJSONで数値として返す
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	//決済
	gateway, err := payments.NewStripeGateway(payments.StripeGatewayConfig{
		APIKey: cfg.StripeSecretKey,
		Logger: func(_ context.Context, event string, fields map[string]any) {
			logger.Info(event, logging.Fields(fields)...)
		},
	})
	if err != nil {
		return fmt.Errorf("init stripe: %w", err)
	}

	//イベント（Kafkaが無ければ捨てる）
	var events messaging.Publisher = messaging.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = messaging.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("kafka publisher enabled", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn("close publisher", zap.Error(err))
		}
	}()

	//Usecase
	clock := usecase.SystemClock{}
	cartUC := usecase.NewCartUsecase(txm, cfg.ReservationTTL, clock, events, logger)
	orderUC := usecase.NewOrderUsecase(txm, gateway, cfg.PaymentCurrency, events, logger)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, gateway, cfg.PaymentCurrency, events, logger, clock)
	artworkUC := usecase.NewArtworkUsecase(txm, events, logger, clock)
	shippingUC := usecase.NewShippingUsecase(txm, logger)
	sellerUC := usecase.NewSellerUsecase(userRepo, gateway, logger)

	//スイーパー（Redisがあればレプリカ間でロック）
	var locker worker.Locker
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		locker = redisx.NewLocker(rdb)
	}
	sweeper := worker.NewReservationSweeper(cartUC, locker, worker.SweeperConfig{
		TTL:      cfg.ReservationTTL,
		Interval: cfg.SweepInterval,
		LockKey:  redisx.KeySweeperLock,
	}, logger.Named("sweeper"))
	sweeper.Start(ctx)
	defer sweeper.Stop()

	//Handler / Server
	srv := server.New(cfg, logger, userRepo,
		handler.NewCartHandler(cartUC),
		handler.NewOrderHandler(orderUC, adminOrderUC),
		handler.NewAdminOrderHandler(adminOrderUC),
		handler.NewArtworkHandler(artworkUC),
		handler.NewShippingHandler(shippingUC),
		handler.NewSellerHandler(sellerUC),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
