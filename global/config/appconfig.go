package config

import (
	"time"

	"PBot/data/database/mgo/mongoutil"
	"PBot/logger"
	"PBot/service/events"
	redis "PBot/service/storage/redis"
)

// 仓储后端
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// 单飞锁后端
const (
	LockLocal = "local"
	LockRedis = "redis"
)

// 事件后端
const (
	EventsNone  = "none"
	EventsNats  = "nats"
	EventsKafka = "kafka"
)

type AppConfig struct {
	Log        logger.Config    `mapstructure:"log"`
	Discord    DiscordConfig    `mapstructure:"discord"`
	Repository RepositoryConfig `mapstructure:"repository"`
	Lock       LockConfig       `mapstructure:"lock"`
	Events     EventsConfig     `mapstructure:"events"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Sentry     SentryConfig     `mapstructure:"sentry"`
}

type DiscordConfig struct {
	Token  string  `mapstructure:"token" validate:"required"`
	Prefix string  `mapstructure:"prefix"` // 为空时首个词必须是 user / content
	Rate   float64 `mapstructure:"rate" validate:"gte=0"` // 每个用户每秒命令数，0 不限制
	Burst  int     `mapstructure:"burst" validate:"gte=0"`
}

type RepositoryConfig struct {
	Backend string           `mapstructure:"backend" validate:"oneof=memory mongo"`
	Timeout time.Duration    `mapstructure:"timeout" validate:"gt=0"` // 每个串行区的超时
	Mongo   mongoutil.Config `mapstructure:"mongo"`
}

type LockConfig struct {
	Backend string        `mapstructure:"backend" validate:"oneof=local redis"`
	Prefix  string        `mapstructure:"prefix"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   redis.Config  `mapstructure:"redis"`
}

type EventsConfig struct {
	Backend string             `mapstructure:"backend" validate:"oneof=none nats kafka"`
	Nats    events.NatsConfig  `mapstructure:"nats"`
	Kafka   events.KafkaConfig `mapstructure:"kafka"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"` // 为空不启动
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}
