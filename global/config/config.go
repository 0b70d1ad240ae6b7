package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig 进程配置；一个进程就是一个 relay 节点
type AppConfig struct {
	NodeID   string         `yaml:"node_id"`
	LogLevel string         `yaml:"log_level"`
	HTTP     HTTPConfig     `yaml:"http"`
	JWT      JWTConfig      `yaml:"jwt"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Nats     NatsConfig     `yaml:"nats"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Relay    RelayConfig    `yaml:"relay"`
	Internal InternalConfig `yaml:"internal"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
	Alg    string `yaml:"alg"`
}

type MongoConfig struct {
	URI         string   `yaml:"uri"`
	Address     []string `yaml:"address"`
	Database    string   `yaml:"database"`
	Username    string   `yaml:"username"`
	Password    string   `yaml:"password"`
	AuthSource  string   `yaml:"auth_source"`
	MaxPoolSize int      `yaml:"max_pool_size"`
	MaxRetry    int      `yaml:"max_retry"`
}

type RedisConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PoolSize    int           `yaml:"pool_size"`
	PresenceTTL time.Duration `yaml:"presence_ttl"`
}

type NatsConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Servers       []string      `yaml:"servers"`
	Name          string        `yaml:"name"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	SubjectPrefix string        `yaml:"subject_prefix"`
	DedupTTL      time.Duration `yaml:"dedup_ttl"`
}

type KafkaConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Brokers           []string `yaml:"brokers"`
	OfflineTopic      string   `yaml:"offline_topic"`
	ClientID          string   `yaml:"client_id"`
	Compression       string   `yaml:"compression"` // none/snappy/lz4/zstd
	Retries           int      `yaml:"retries"`
	EnsureTopic       bool     `yaml:"ensure_topic"`
	Partitions        int32    `yaml:"partitions"`
	ReplicationFactor int16    `yaml:"replication_factor"`
}

// InternalConfig 服务间调用；Token 为空时不挂 /internal 路由
type InternalConfig struct {
	Token string `yaml:"token"`
}

type RelayConfig struct {
	SendQueueSize  int           `yaml:"send_queue_size"`
	WriteWait      time.Duration `yaml:"write_wait"`
	PongWait       time.Duration `yaml:"pong_wait"`
	PingPeriod     time.Duration `yaml:"ping_period"`
	MaxMessageSize int64         `yaml:"max_message_size"`
	PersistTimeout time.Duration `yaml:"persist_timeout"`
}

// Load 读取 YAML，先展开 ${VAR} 环境变量
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}
	return &cfg, nil
}

// LoadAndValidate 读取 + 默认值 + 校验
func LoadAndValidate(path string) (*AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *AppConfig) ApplyDefaults() {
	if c.NodeID == "" {
		if h, err := os.Hostname(); err == nil && h != "" {
			c.NodeID = h
		} else {
			c.NodeID = "relay-1"
		}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		c.HTTP.ShutdownTimeout = 5 * time.Second
	}
	if c.JWT.Alg == "" {
		c.JWT.Alg = "HS256"
	}
	if c.Mongo.Database == "" {
		c.Mongo.Database = "belongings_hub"
	}
	if c.Mongo.MaxPoolSize <= 0 {
		c.Mongo.MaxPoolSize = 20
	}
	if c.Mongo.MaxRetry <= 0 {
		c.Mongo.MaxRetry = 3
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "127.0.0.1:6379"
	}
	if c.Redis.PresenceTTL <= 0 {
		c.Redis.PresenceTTL = 2 * time.Minute
	}
	if len(c.Nats.Servers) == 0 {
		c.Nats.Servers = []string{"nats://127.0.0.1:4222"}
	}
	if c.Nats.Name == "" {
		c.Nats.Name = "hub-" + c.NodeID
	}
	if c.Nats.SubjectPrefix == "" {
		c.Nats.SubjectPrefix = "relay.node"
	}
	if c.Nats.DedupTTL <= 0 {
		c.Nats.DedupTTL = 2 * time.Minute
	}
	if len(c.Kafka.Brokers) == 0 {
		c.Kafka.Brokers = []string{"127.0.0.1:9092"}
	}
	if c.Kafka.OfflineTopic == "" {
		c.Kafka.OfflineTopic = "chat.offline"
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = "belongings-hub"
	}
	if c.Kafka.Retries <= 0 {
		c.Kafka.Retries = 3
	}
	if c.Kafka.Partitions <= 0 {
		c.Kafka.Partitions = 8
	}
	if c.Kafka.ReplicationFactor <= 0 {
		c.Kafka.ReplicationFactor = 1
	}
	if c.Relay.SendQueueSize <= 0 {
		c.Relay.SendQueueSize = 64
	}
	if c.Relay.WriteWait <= 0 {
		c.Relay.WriteWait = 10 * time.Second
	}
	if c.Relay.PongWait <= 0 {
		c.Relay.PongWait = 60 * time.Second
	}
	if c.Relay.PingPeriod <= 0 {
		c.Relay.PingPeriod = c.Relay.PongWait * 9 / 10
	}
	if c.Relay.MaxMessageSize <= 0 {
		c.Relay.MaxMessageSize = 64 << 10
	}
	if c.Relay.PersistTimeout <= 0 {
		c.Relay.PersistTimeout = 10 * time.Second
	}
}

func (c *AppConfig) Validate() error {
	var problems []string
	if c.JWT.Secret == "" {
		problems = append(problems, "jwt.secret is required")
	}
	if c.Mongo.URI == "" && len(c.Mongo.Address) == 0 {
		problems = append(problems, "mongo.uri or mongo.address is required")
	}
	if c.Relay.PingPeriod >= c.Relay.PongWait {
		problems = append(problems, "relay.ping_period must be shorter than relay.pong_wait")
	}
	if c.Nats.Enabled && !c.Redis.Enabled {
		// 跨节点投递要靠 presence 找到目标节点
		problems = append(problems, "nats.enabled requires redis.enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}
