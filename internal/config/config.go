package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis_service"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Inference InferenceConfig `mapstructure:"inference"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Events    EventsConfig    `mapstructure:"events"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	SeedFile  string          `mapstructure:"seed_file"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
	MaxUploadMB    int    `mapstructure:"max_upload_mb"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig 数据库配置
// Driver 为 sqlite 时使用 Path，为 mysql 时使用 DSN
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
	Debug  bool   `mapstructure:"debug"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	SlotTTL  int    `mapstructure:"slot_ttl"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetSlotTTL 获取并发槽位过期时间
func (r *RedisConfig) GetSlotTTL() time.Duration {
	return time.Duration(r.SlotTTL) * time.Second
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// InferenceConfig 推理服务配置
type InferenceConfig struct {
	Transport      string `mapstructure:"transport"` // rest, grpc
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxConcurrency int    `mapstructure:"max_concurrency"`
	Limiter        string `mapstructure:"limiter"` // local, redis
}

// GetTimeout 获取推理超时时间
func (i *InferenceConfig) GetTimeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// PipelineConfig 诊断流水线配置
type PipelineConfig struct {
	MaxRetries            int `mapstructure:"max_retries"`
	InitialIntervalMS     int `mapstructure:"initial_interval_ms"`
	MaxIntervalMS         int `mapstructure:"max_interval_ms"`
	MaxElapsedSeconds     int `mapstructure:"max_elapsed_seconds"`
	MarkTypeCacheSeconds  int `mapstructure:"mark_type_cache_seconds"`
	PersistTimeoutSeconds int `mapstructure:"persist_timeout_seconds"`
}

// GetInitialInterval 获取首次重试间隔
func (p *PipelineConfig) GetInitialInterval() time.Duration {
	return time.Duration(p.InitialIntervalMS) * time.Millisecond
}

// GetMaxInterval 获取最大重试间隔
func (p *PipelineConfig) GetMaxInterval() time.Duration {
	return time.Duration(p.MaxIntervalMS) * time.Millisecond
}

// GetMaxElapsed 获取重试总时长上限
func (p *PipelineConfig) GetMaxElapsed() time.Duration {
	return time.Duration(p.MaxElapsedSeconds) * time.Second
}

// GetMarkTypeCacheTTL 获取标记类型缓存时长
func (p *PipelineConfig) GetMarkTypeCacheTTL() time.Duration {
	return time.Duration(p.MarkTypeCacheSeconds) * time.Second
}

// GetPersistTimeout 获取持久化超时时间
func (p *PipelineConfig) GetPersistTimeout() time.Duration {
	return time.Duration(p.PersistTimeoutSeconds) * time.Second
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Backend        string `mapstructure:"backend"` // local, sftp, ftp
	BasePath       string `mapstructure:"base_path"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	KeyFile        string `mapstructure:"key_file"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// GetTimeout 获取存储连接超时时间
func (s *StorageConfig) GetTimeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// EventsConfig 事件发布配置，Brokers 为空时不发布
type EventsConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// SentryConfig 错误上报配置，DSN 为空时不上报
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}
