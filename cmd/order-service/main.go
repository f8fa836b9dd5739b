package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ordermesh/internal/pkg/bootstrap"
	"ordermesh/internal/pkg/httpclient"
	"ordermesh/internal/pkg/zookeeper"
	"ordermesh/internal/service/order/application"
	"ordermesh/internal/service/order/domain"
	"ordermesh/internal/service/order/domain/port"
	"ordermesh/internal/service/order/infrastructure"
	"ordermesh/internal/service/order/infrastructure/adapter"
	"ordermesh/internal/service/order/infrastructure/rule"
	"ordermesh/internal/service/order/interfaces"
)

const (
	serviceName = "order-service"
	servicePort = 8081
)

func main() {
	bootstrap.Init()
	cfg := bootstrap.GetCurrentConfig()

	db, err := gorm.Open(mysql.Open(cfg.Infra.Mysql.DSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mysql")
	}
	if err := infrastructure.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate order schema")
	}
	orderRepo := infrastructure.NewGormOrderRepository(db)

	pricing := domain.PricingPolicy{
		TaxRate:               mustDecimal("pricing.taxRate", cfg.App.Pricing.TaxRate),
		FreeShippingThreshold: mustDecimal("pricing.freeShippingThreshold", cfg.App.Pricing.FreeShippingThreshold),
		FlatShippingFee:       mustDecimal("pricing.flatShippingFee", cfg.App.Pricing.FlatShippingFee),
	}

	var discountEngine port.DiscountEngine = port.NoDiscount{}
	if len(cfg.App.DiscountRules) > 0 {
		rules := make([]rule.Rule, len(cfg.App.DiscountRules))
		for i, r := range cfg.App.DiscountRules {
			rules[i] = rule.Rule{Name: r.Name, Expression: r.Expression}
		}
		discountEngine, err = rule.NewCELDiscountEngine(rules)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to compile discount rules")
		}
	}

	var locker port.OrderLocker = port.NoopLocker{}
	if cfg.Infra.Zookeeper.Enabled {
		zkConn, err := zookeeper.Connect(cfg.Infra.Zookeeper.Servers)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to zookeeper")
		}
		locker = adapter.NewZkOrderLocker(zkConn)
	}

	relay := infrastructure.NewOutboxRelay(orderRepo, infrastructure.NewKafkaEventPublisher(cfg.Infra.Kafka.Brokers))

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        servicePort,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			tracer := otel.Tracer(serviceName)
			client := httpclient.NewClient(tracer, appCtx.Nacos, map[string]string{
				"product-service":  cfg.Infra.Services.ProductService,
				"customer-service": cfg.Infra.Services.CustomerService,
			})
			svc := application.NewOrderApplicationService(
				orderRepo,
				adapter.NewProductHTTPAdapter(client),
				adapter.NewCustomerHTTPAdapter(client),
				discountEngine,
				locker,
				pricing,
				cfg.App.ProcessingTimeout,
				tracer,
			)
			interfaces.NewOrderHandler(svc, cfg.App.AuthToken).RegisterRoutes(appCtx.Mux)
		},
		BackgroundTasks: []func(ctx context.Context) error{
			relay.Run,
		},
	})
}

func mustDecimal(name, value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Fatal().Err(err).Str("key", name).Str("value", value).Msg("invalid decimal in configuration")
	}
	return d
}
