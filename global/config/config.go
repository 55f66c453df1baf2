package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GatewayConfig 网关节点配置
type GatewayConfig struct {
	NodeID        string        // 节点ID（参与presence key命名）
	Port          int           // HTTP/WS 端口
	EditingTTL    time.Duration // 编辑锁TTL
	TypingTTL     time.Duration // 输入状态TTL
	RoomGrace     time.Duration // 空房间保留宽限期
	PresenceTTL   time.Duration // Redis presence 镜像TTL
	SendQueueSize int           // 每连接发送队列长度
	FanoutWorkers int
	FanoutQueue   int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

type MongoConfig struct {
	Uri         string
	Database    string
	MaxPoolSize uint64
}

type NatsConfig struct {
	Servers []string // 为空则不启用跨节点转发
	Name    string
}

type KafkaConfig struct {
	Brokers      []string // 为空则不启用消息流水
	JournalTopic string
}

type AppConfig struct {
	Gateway GatewayConfig
	Redis   RedisConfig
	Mongo   MongoConfig
	Nats    NatsConfig
	Kafka   KafkaConfig
}

var Global = AppConfig{
	Gateway: GatewayConfig{
		NodeID:        "gateway_1",
		Port:          8080,
		EditingTTL:    30 * time.Second,
		TypingTTL:     5 * time.Second,
		RoomGrace:     60 * time.Second,
		PresenceTTL:   90 * time.Second,
		SendQueueSize: 256,
		FanoutWorkers: 4,
		FanoutQueue:   1024,
	},
	Redis: RedisConfig{
		Addr: "127.0.0.1:6379", DB: 0, PoolSize: 20,
	},
	Mongo: MongoConfig{
		Uri: "mongodb://localhost:27017", Database: "tripboard", MaxPoolSize: 20,
	},
	Nats: NatsConfig{
		Name: "tripboard-gateway",
	},
	Kafka: KafkaConfig{
		JournalTopic: "tripboard_message_journal",
	},
}

// Load 让环境变量覆盖默认值；部署时只改环境不改代码。
func Load() {
	g := &Global.Gateway
	g.NodeID = envStr("TRIPBOARD_NODE_ID", g.NodeID)
	g.Port = envInt("TRIPBOARD_PORT", g.Port)
	g.EditingTTL = envDur("TRIPBOARD_EDITING_TTL", g.EditingTTL)
	g.TypingTTL = envDur("TRIPBOARD_TYPING_TTL", g.TypingTTL)
	g.RoomGrace = envDur("TRIPBOARD_ROOM_GRACE", g.RoomGrace)

	Global.Redis.Addr = envStr("TRIPBOARD_REDIS_ADDR", Global.Redis.Addr)
	Global.Redis.Password = envStr("TRIPBOARD_REDIS_PASSWORD", Global.Redis.Password)

	Global.Mongo.Uri = envStr("TRIPBOARD_MONGO_URI", Global.Mongo.Uri)
	Global.Mongo.Database = envStr("TRIPBOARD_MONGO_DB", Global.Mongo.Database)

	if v := envStr("TRIPBOARD_NATS_SERVERS", ""); v != "" {
		Global.Nats.Servers = strings.Split(v, ",")
	}
	if v := envStr("TRIPBOARD_KAFKA_BROKERS", ""); v != "" {
		Global.Kafka.Brokers = strings.Split(v, ",")
	}
	Global.Kafka.JournalTopic = envStr("TRIPBOARD_KAFKA_JOURNAL_TOPIC", Global.Kafka.JournalTopic)
}

func GetJwtSecret() []byte {
	if v := os.Getenv("TRIPBOARD_JWT_SECRET"); v != "" {
		return []byte(v)
	}
	// dev 默认值，生产必须用环境变量
	return []byte("kQ7v1b8zLm+T2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o=")
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
