package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"PBot/tools/errs"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix         = "PBOT"
	EnvConfigPath     = "PBOT_CONFIG"
	DefaultConfigPath = "config.yaml"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("discord.token", "")
	v.SetDefault("discord.prefix", "")
	v.SetDefault("discord.rate", 1.0)
	v.SetDefault("discord.burst", 5)

	v.SetDefault("repository.backend", BackendMemory)
	v.SetDefault("repository.timeout", 10*time.Second)
	v.SetDefault("repository.mongo.uri", "")
	v.SetDefault("repository.mongo.database", "pbot")
	v.SetDefault("repository.mongo.username", "")
	v.SetDefault("repository.mongo.password", "")

	v.SetDefault("lock.backend", LockLocal)
	v.SetDefault("lock.prefix", "pbot:lock:")
	v.SetDefault("lock.ttl", 30*time.Second)
	v.SetDefault("lock.redis.addr", "127.0.0.1:6379")
	v.SetDefault("lock.redis.password", "")
	v.SetDefault("lock.redis.db", 0)

	v.SetDefault("events.backend", EventsNone)
	v.SetDefault("events.nats.servers", []string{"nats://127.0.0.1:4222"})
	v.SetDefault("events.nats.name", "pbot")
	v.SetDefault("events.nats.subject", "pbot.events")
	v.SetDefault("events.kafka.brokers", []string{"127.0.0.1:9092"})
	v.SetDefault("events.kafka.topic", "pbot.events")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}

// Load 读取 YAML（path 为空时取 PBOT_CONFIG，再退回 config.yaml），环境变量 PBOT_* 覆盖文件
//
// 只有显式指定的文件不存在才报错；默认路径不存在时只用默认值和环境变量。
func Load(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := true
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		path, explicit = DefaultConfigPath, false
	}
	if _, err := os.Stat(path); err == nil || explicit {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errs.WrapMsg(err, "read config", "path", path)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errs.WrapMsg(err, "decode config")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(appConfigRules, AppConfig{})
	return v
}

// appConfigRules 跨字段约束：选了某个后端才要求它那一节
func appConfigRules(sl validator.StructLevel) {
	c := sl.Current().Interface().(AppConfig)
	if c.Repository.Backend == BackendMongo && c.Repository.Mongo.Uri == "" && len(c.Repository.Mongo.Address) == 0 {
		sl.ReportError(c.Repository.Mongo.Uri, "Repository.Mongo.Uri", "uri", "required_with_mongo", "")
	}
	if c.Lock.Backend == LockRedis && c.Lock.Redis.Addr == "" {
		sl.ReportError(c.Lock.Redis.Addr, "Lock.Redis.Addr", "addr", "required_with_redis", "")
	}
	if c.Lock.Backend == LockRedis && c.Lock.TTL <= c.Repository.Timeout {
		sl.ReportError(c.Lock.TTL, "Lock.TTL", "ttl", "gtfield_timeout", "")
	}
	if c.Events.Backend == EventsNats && len(c.Events.Nats.Servers) == 0 {
		sl.ReportError(c.Events.Nats.Servers, "Events.Nats.Servers", "servers", "required_with_nats", "")
	}
	if c.Events.Backend == EventsKafka && len(c.Events.Kafka.Brokers) == 0 {
		sl.ReportError(c.Events.Kafka.Brokers, "Events.Kafka.Brokers", "brokers", "required_with_kafka", "")
	}
}

// Validate 校验配置
func Validate(cfg *AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
			}
			return errs.New("invalid config", "errors", strings.Join(msgs, "; "))
		}
		return errs.Wrap(err)
	}
	return nil
}
