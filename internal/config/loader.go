package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 PLANTDIAG_DATABASE_DSN
const EnvPrefix = "PLANTDIAG"

// LoadConfig 加载配置文件
func LoadConfig(configFile string) (*Config, error) {
	// .env 文件不存在时忽略
	_ = godotenv.Load()

	v := viper.New()

	// 设置配置文件路径
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// 默认查找 config.yaml
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 读取环境变量
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	// 设置默认值
	setDefaults(&cfg)

	// 验证配置
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 18080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 20
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Driver == "sqlite" && cfg.Database.Path == "" {
		cfg.Database.Path = "./database/plantdiag.db"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379 // 标准 Redis 端口
	}
	if cfg.Redis.SlotTTL == 0 {
		cfg.Redis.SlotTTL = 120
	}
	if cfg.JWT.Algorithm == "" {
		cfg.JWT.Algorithm = "HS256"
	}
	if cfg.JWT.ExpireMinutes == 0 {
		cfg.JWT.ExpireMinutes = 43200 // 30天
	}
	if cfg.CORS.AllowMethods == nil {
		cfg.CORS.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if cfg.CORS.AllowHeaders == nil {
		cfg.CORS.AllowHeaders = []string{"*"}
	}
	if cfg.Inference.Transport == "" {
		cfg.Inference.Transport = "rest"
	}
	if cfg.Inference.Model == "" {
		cfg.Inference.Model = "leaf-disease"
	}
	if cfg.Inference.TimeoutSeconds == 0 {
		cfg.Inference.TimeoutSeconds = 30
	}
	if cfg.Inference.MaxConcurrency == 0 {
		cfg.Inference.MaxConcurrency = 8
	}
	if cfg.Inference.Limiter == "" {
		cfg.Inference.Limiter = "local"
	}
	if cfg.Pipeline.MaxRetries == 0 {
		cfg.Pipeline.MaxRetries = 3
	}
	if cfg.Pipeline.InitialIntervalMS == 0 {
		cfg.Pipeline.InitialIntervalMS = 500
	}
	if cfg.Pipeline.MaxIntervalMS == 0 {
		cfg.Pipeline.MaxIntervalMS = 5000
	}
	if cfg.Pipeline.MaxElapsedSeconds == 0 {
		cfg.Pipeline.MaxElapsedSeconds = 60
	}
	if cfg.Pipeline.MarkTypeCacheSeconds == 0 {
		cfg.Pipeline.MarkTypeCacheSeconds = 600
	}
	if cfg.Pipeline.PersistTimeoutSeconds == 0 {
		cfg.Pipeline.PersistTimeoutSeconds = 30
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = "local"
	}
	if cfg.Storage.BasePath == "" {
		cfg.Storage.BasePath = "./data"
	}
	if cfg.Storage.TimeoutSeconds == 0 {
		cfg.Storage.TimeoutSeconds = 30
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "plantdiag.predictions"
	}
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务器端口: %d", cfg.Server.Port)
	}

	if cfg.JWT.SecretKey == "" {
		return fmt.Errorf("JWT密钥不能为空")
	}

	switch cfg.Database.Driver {
	case "sqlite":
		// 检查数据库目录是否存在
		dbDir := filepath.Dir(cfg.Database.Path)
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				return fmt.Errorf("创建数据库目录失败: %w", err)
			}
		}
	case "mysql":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("mysql 数据库需要配置 dsn")
		}
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", cfg.Database.Driver)
	}

	switch cfg.Inference.Transport {
	case "rest", "grpc":
	default:
		return fmt.Errorf("不支持的推理传输方式: %s", cfg.Inference.Transport)
	}
	if cfg.Inference.Endpoint == "" {
		return fmt.Errorf("推理服务地址不能为空")
	}

	switch cfg.Inference.Limiter {
	case "local":
	case "redis":
		if !cfg.Redis.Enabled {
			return fmt.Errorf("redis 限流需要启用 redis_service")
		}
	default:
		return fmt.Errorf("不支持的限流方式: %s", cfg.Inference.Limiter)
	}

	if cfg.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("重试次数不能为负数: %d", cfg.Pipeline.MaxRetries)
	}

	switch cfg.Storage.Backend {
	case "local":
	case "sftp", "ftp":
		if cfg.Storage.Host == "" {
			return fmt.Errorf("%s 存储需要配置 host", cfg.Storage.Backend)
		}
	default:
		return fmt.Errorf("不支持的存储后端: %s", cfg.Storage.Backend)
	}

	return nil
}
