package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ordermesh/internal/pkg/bootstrap"
	"ordermesh/internal/pkg/redis"
	"ordermesh/internal/service/product/application"
	"ordermesh/internal/service/product/domain"
	"ordermesh/internal/service/product/infrastructure"
	"ordermesh/internal/service/product/interfaces"
)

const (
	serviceName = "product-service"
	servicePort = 8082
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate product schema")
	}
	repo := infrastructure.NewGormProductRepository(db)
	seedDemoProducts(db, repo)

	redisClient, err := redis.NewClient(cfg.Infra.Redis.Addr)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	svc := application.NewProductApplicationService(repo)
	ledger := infrastructure.NewStockLedgerConsumer(cfg.Infra.Kafka.Brokers, svc, redisClient)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewProductHandler(svc).RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			ledger.Run,
		},
	})
}

// seedDemoProducts 在空库时写入演示商品，方便本地联调。
func seedDemoProducts(db *gorm.DB, repo domain.ProductRepository) {
	var count int64
	if err := db.Model(&infrastructure.ProductModel{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	demo := []*domain.Product{
		{ID: "p-1001", Name: "Mechanical Keyboard", SKU: "KB-1001", Price: decimal.NewFromFloat(15.00), Stock: 100, MinimumStock: 10, IsActive: true},
		{ID: "p-1002", Name: "Wireless Mouse", SKU: "MS-1002", Price: decimal.NewFromFloat(10.00), Stock: 200, MinimumStock: 20, IsActive: true},
		{ID: "p-1003", Name: "USB-C Dock", SKU: "DK-1003", Price: decimal.NewFromFloat(89.90), Stock: 30, MinimumStock: 5, IsActive: true},
		{ID: "p-1004", Name: "Legacy Adapter", SKU: "AD-1004", Price: decimal.NewFromFloat(5.50), Stock: 50, MinimumStock: 5, IsActive: false},
	}
	for _, p := range demo {
		if err := repo.Save(context.Background(), p); err != nil {
			log.Warn().Err(err).Str("product_id", p.ID).Msg("failed to seed demo product")
		}
	}
	log.Info().Int("count", len(demo)).Msg("seeded demo products")
}
