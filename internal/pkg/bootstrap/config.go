// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置结构。
// 配置从 YAML 文件加载，个别字段允许环境变量覆盖。
type Config struct {
	App   AppConfig   `yaml:"app"`
	Infra InfraConfig `yaml:"infra"`
}

type AppConfig struct {
	// Pricing 是订单金额计算的全部策略参数。
	// 税率只在这里配置一处，创建和更新路径共用。
	Pricing PricingConfig `yaml:"pricing"`
	// DiscountRules 是 CEL 表达式形式的订单级折扣规则。
	DiscountRules []DiscountRuleConfig `yaml:"discountRules"`
	// AuthToken 是服务间简化的 Bearer Token 校验值。
	AuthToken string `yaml:"authToken"`
	// ProcessingTimeout 是单个订单编排流程的超时上限。
	ProcessingTimeout time.Duration `yaml:"processingTimeout"`
}

type PricingConfig struct {
	TaxRate               string `yaml:"taxRate"`               // 如 "0.15"
	FreeShippingThreshold string `yaml:"freeShippingThreshold"` // 如 "100.00"
	FlatShippingFee       string `yaml:"flatShippingFee"`       // 如 "10.00"
}

type DiscountRuleConfig struct {
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"` // CEL 表达式，返回折扣率 (double)
}

type InfraConfig struct {
	Mysql     MysqlConfig     `yaml:"mysql"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Jaeger    JaegerConfig    `yaml:"jaeger"`
	Nacos     NacosConfig     `yaml:"nacos"`
	Zookeeper ZookeeperConfig `yaml:"zookeeper"`
	Services  ServicesConfig  `yaml:"services"`
}

type MysqlConfig struct {
	DSN string `yaml:"dsn"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type JaegerConfig struct {
	Endpoint string `yaml:"endpoint"`
}

type NacosConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServerAddrs string `yaml:"serverAddrs"`
	Namespace   string `yaml:"namespace"`
	Group       string `yaml:"group"`
}

type ZookeeperConfig struct {
	Enabled bool     `yaml:"enabled"`
	Servers []string `yaml:"servers"`
}

// ServicesConfig 是 Nacos 不可用时的静态服务地址兜底。
type ServicesConfig struct {
	ProductService  string `yaml:"productService"`
	CustomerService string `yaml:"customerService"`
}

var (
	currentConfig *Config
	configOnce    sync.Once
)

// Init 加载配置文件。路径来自 CONFIG_PATH 环境变量，默认 configs/config.yaml。
func Init() {
	configOnce.Do(func() {
		path := getEnv("CONFIG_PATH", "configs/config.yaml")
		cfg, err := loadConfig(path)
		if err != nil {
			// 配置缺失时使用默认值，保证本地开发可以直接启动
			fmt.Printf("WARN: could not load config from %s: %v. Using defaults.\n", path, err)
			cfg = defaultConfig()
		}
		applyEnvOverrides(cfg)
		currentConfig = cfg
	})
}

// GetCurrentConfig 返回进程内的配置单例。必须先调用 Init。
func GetCurrentConfig() *Config {
	if currentConfig == nil {
		Init()
	}
	return currentConfig
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Pricing: PricingConfig{
				TaxRate:               "0.15",
				FreeShippingThreshold: "100.00",
				FlatShippingFee:       "10.00",
			},
			ProcessingTimeout: 30 * time.Second,
		},
		Infra: InfraConfig{
			Mysql:  MysqlConfig{DSN: "root:root@tcp(localhost:3306)/ordermesh?charset=utf8mb4&parseTime=True&loc=Local"},
			Kafka:  KafkaConfig{Brokers: []string{"localhost:9092"}},
			Redis:  RedisConfig{Addr: "localhost:6379"},
			Jaeger: JaegerConfig{Endpoint: "http://localhost:14268/api/traces"},
			Nacos: NacosConfig{
				ServerAddrs: "localhost:8848",
				Group:       "DEFAULT_GROUP",
			},
			Services: ServicesConfig{
				ProductService:  "http://localhost:8082",
				CustomerService: "http://localhost:8083",
			},
		},
	}
}

// applyEnvOverrides 允许容器环境用环境变量覆盖关键基础设施地址。
func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("MYSQL_DSN"); ok {
		cfg.Infra.Mysql.DSN = v
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = splitAndTrim(v)
	}
	if v, ok := os.LookupEnv("REDIS_ADDR"); ok {
		cfg.Infra.Redis.Addr = v
	}
	if v, ok := os.LookupEnv("JAEGER_ENDPOINT"); ok {
		cfg.Infra.Jaeger.Endpoint = v
	}
	if v, ok := os.LookupEnv("NACOS_SERVER_ADDRS"); ok {
		cfg.Infra.Nacos.ServerAddrs = v
		cfg.Infra.Nacos.Enabled = true
	}
	if v, ok := os.LookupEnv("AUTH_TOKEN"); ok {
		cfg.App.AuthToken = v
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
