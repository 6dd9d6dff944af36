package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/db"
	"storefront/internal/infra/notify"
	"storefront/internal/infra/payment"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/metrics"
	"storefront/internal/pkg/logging"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".env", "../.env")
	if err != nil {
		panic(err)
	}

	log := logging.MustNewLogger(cfg.ServiceName, cfg.GoEnv)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	m := metrics.New()
	collab := usecase.Collaborators{
		Metrics:       m,
		NotifyTimeout: cfg.NotifyTimeout,
	}

	//カートキャッシュ（REDIS_ADDR があるときだけ）
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, cart cache disabled", zap.Error(err))
		} else {
			collab.Cache = cache.NewRedisCartCache(rdb, cfg.CartCacheTTL)
		}
	}

	//通知（メールはログ、KAFKA_BROKERS があればイベントも流す）
	notifiers := notify.Multi{
		notify.NewBreaker(notify.NewMailLogNotifier(log, cfg.MailFrom), notify.BreakerSettings{Name: "mail"}, log),
	}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kn := notify.NewKafkaNotifier(notify.NewWriter(brokers, cfg.KafkaOrderTopic))
		defer func() { _ = kn.Close() }()
		notifiers = append(notifiers, notify.NewBreaker(kn, notify.BreakerSettings{Name: "kafka"}, log))
	}
	collab.Notifier = notifiers

	gateway := payment.NewBreakerGateway(payment.NewMockGateway(), log)
	if cfg.WebhookToken == "" {
		log.Warn("PAYMENT_WEBHOOK_SECRET is empty: /payments/confirm accepts unauthenticated callbacks")
	}

	//Usecase生成
	ledger := usecase.NewInventoryLedger(m)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	cartUC := usecase.NewCartUsecase(cartRepo, cartRepo, productRepo, collab)
	orderUC := usecase.NewOrderUsecase(txm, addressUC, userRepo, ledger, collab)
	paymentUC := usecase.NewPaymentUsecase(txm, gateway, userRepo, collab)
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, userRepo, collab)
	adminUC := usecase.NewAdminUsecase(orderRepo, userRepo, productRepo, auditRepo)
	productUC := usecase.NewProductUsecase(productRepo, inventoryRepo, txm, ledger)
	loginUC := usecase.NewLoginUsecase(userRepo, auth.NewBcryptPasswordVerifier(), cfg.JWTSecret, cfg.AccessTTL)

	//Handler生成
	e := server.New(cfg, log, m, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(loginUC),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		Address:      handler.NewAddressHandler(addressUC),
		Payment:      handler.NewPaymentHandler(paymentUC, cfg.WebhookToken),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC, adminUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx, e, cfg.Addr(), cfg.ShutdownTimeout, log)
}
