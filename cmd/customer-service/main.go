package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ordermesh/internal/pkg/bootstrap"
	"ordermesh/internal/service/customer/domain"
	"ordermesh/internal/service/customer/infrastructure"
	"ordermesh/internal/service/customer/interfaces"
)

const (
	serviceName = "customer-service"
	servicePort = 8083
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate customer schema")
	}
	repo := infrastructure.NewGormCustomerRepository(db)
	seedDemoCustomers(db, repo)

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			interfaces.NewCustomerHandler(repo).RegisterRoutes(appCtx.Mux)
		},
	})
}

// seedDemoCustomers 在空库时写入演示客户。
func seedDemoCustomers(db *gorm.DB, repo domain.CustomerRepository) {
	var count int64
	if err := db.Model(&infrastructure.CustomerModel{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	demo := []*domain.Customer{
		{ID: "c-2001", Name: "Alice Zhang", Email: "alice@example.com", IsActive: true},
		{ID: "c-2002", Name: "Bob Li", Email: "bob@example.com", IsActive: true},
	}
	for _, c := range demo {
		if err := repo.Save(context.Background(), c); err != nil {
			log.Warn().Err(err).Str("customer_id", c.ID).Msg("failed to seed demo customer")
		}
	}
	log.Info().Int("count", len(demo)).Msg("seeded demo customers")
}
