// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"sync/atomic"

	"mercury/internal/pkg/logger"
	"mercury/internal/pkg/nacos"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"gopkg.in/yaml.v3"
)

// Config 是所有服务共享的配置树。
// 加载顺序：默认值 -> CONFIG_FILE 指向的 YAML -> Nacos 配置中心 -> 环境变量。
type Config struct {
	App struct {
		// 单个订单编排流程的超时上限（秒）
		OrderProcessingTimeoutSec int `yaml:"orderProcessingTimeoutSec"`
		// 下游调用超时（秒）
		CallTimeoutSec int `yaml:"callTimeoutSec"`
		// 传输层故障时同一幂等令牌的最大尝试次数
		ReserveMaxAttempts int `yaml:"reserveMaxAttempts"`
		// 订单准入规则（CEL 表达式），为空则不启用
		OrderRule string `yaml:"orderRule"`
	} `yaml:"app"`

	Infra struct {
		MysqlDSN     string `yaml:"mysqlDSN"`
		RedisAddrs   string `yaml:"redisAddrs"`
		KafkaBrokers string `yaml:"kafkaBrokers"`
		Jaeger       struct {
			Endpoint string `yaml:"endpoint"`
		} `yaml:"jaeger"`
		Zookeeper struct {
			Enabled bool   `yaml:"enabled"`
			Addrs   string `yaml:"addrs"`
		} `yaml:"zookeeper"`
		Nacos struct {
			Enabled     bool   `yaml:"enabled"`
			ServerAddrs string `yaml:"serverAddrs"`
			Namespace   string `yaml:"namespace"`
			Group       string `yaml:"group"`
			DataId      string `yaml:"dataId"`
		} `yaml:"nacos"`
	} `yaml:"infra"`

	Services struct {
		// inventory-service 的静态地址，Nacos 不可用时的兜底
		InventoryBaseURL string `yaml:"inventoryBaseURL"`
	} `yaml:"services"`
}

var currentConfig atomic.Value // Config

func defaultConfig() Config {
	var cfg Config
	cfg.App.OrderProcessingTimeoutSec = 30
	cfg.App.CallTimeoutSec = 3
	cfg.App.ReserveMaxAttempts = 3
	cfg.Infra.MysqlDSN = "root:root@tcp(localhost:3306)/mercury?charset=utf8mb4&parseTime=True&loc=Local"
	cfg.Infra.RedisAddrs = "localhost:6379"
	cfg.Infra.KafkaBrokers = "localhost:9092"
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Zookeeper.Addrs = "localhost:2181"
	cfg.Infra.Nacos.ServerAddrs = "localhost:8848"
	cfg.Infra.Nacos.Group = "DEFAULT_GROUP"
	cfg.Infra.Nacos.DataId = "mercury.yaml"
	cfg.Services.InventoryBaseURL = "http://localhost:8082"
	return cfg
}

// Init 加载配置并写入全局。必须在 StartService 之前调用。
func Init() {
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Logger.Fatal().Err(err).Str("path", path).Msg("cannot read config file")
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			logger.Logger.Fatal().Err(err).Str("path", path).Msg("cannot parse config file")
		}
	}

	applyEnvOverrides(&cfg)

	// 配置中心里的内容优先于本地文件，便于不重启调整规则与超时
	if cfg.Infra.Nacos.Enabled {
		if err := overlayFromNacos(&cfg); err != nil {
			logger.Logger.Warn().Err(err).Msg("nacos config center unavailable, using local config")
		}
	}

	currentConfig.Store(cfg)
}

// GetCurrentConfig 返回当前配置的快照。
func GetCurrentConfig() Config {
	if v := currentConfig.Load(); v != nil {
		return v.(Config)
	}
	cfg := defaultConfig()
	currentConfig.Store(cfg)
	return cfg
}

func applyEnvOverrides(cfg *Config) {
	cfg.Infra.MysqlDSN = getEnv("MYSQL_DSN", cfg.Infra.MysqlDSN)
	cfg.Infra.RedisAddrs = getEnv("REDIS_ADDRS", cfg.Infra.RedisAddrs)
	cfg.Infra.KafkaBrokers = getEnv("KAFKA_BROKERS", cfg.Infra.KafkaBrokers)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Zookeeper.Addrs = getEnv("ZK_ADDRS", cfg.Infra.Zookeeper.Addrs)
	if os.Getenv("ZK_ENABLED") == "true" {
		cfg.Infra.Zookeeper.Enabled = true
	}
	cfg.Infra.Nacos.ServerAddrs = getEnv("NACOS_SERVER_ADDRS", cfg.Infra.Nacos.ServerAddrs)
	cfg.Infra.Nacos.Namespace = getEnv("NACOS_NAMESPACE", cfg.Infra.Nacos.Namespace)
	cfg.Infra.Nacos.Group = getEnv("NACOS_GROUP", cfg.Infra.Nacos.Group)
	if os.Getenv("NACOS_ENABLED") == "true" {
		cfg.Infra.Nacos.Enabled = true
	}
	cfg.Services.InventoryBaseURL = getEnv("INVENTORY_BASE_URL", cfg.Services.InventoryBaseURL)
}

func overlayFromNacos(cfg *Config) error {
	client, err := nacos.NewConfigClient(cfg.Infra.Nacos.ServerAddrs, cfg.Infra.Nacos.Namespace)
	if err != nil {
		return err
	}
	content, err := client.GetConfig(vo.ConfigParam{
		DataId: cfg.Infra.Nacos.DataId,
		Group:  cfg.Infra.Nacos.Group,
	})
	if err != nil {
		return err
	}
	if content == "" {
		return nil
	}
	return yaml.Unmarshal([]byte(content), cfg)
}

// getEnv 从环境变量中读取配置，不存在时返回默认值。
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
