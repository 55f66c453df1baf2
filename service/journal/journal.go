package journal

import (
	"encoding/json"
	"time"

	"TripBoard/logger"
	"TripBoard/module/plan/model"
	errs "TripBoard/tools/errs"

	"github.com/Shopify/sarama"
)

// 已落库消息的下游流水：按会话ID哈希分区投给 Kafka，供外部的分析/
// 足迹管线消费。发送路径不依赖它——失败只记日志。

type Config struct {
	Brokers []string
	Topic   string
}

type Journal struct {
	producer sarama.SyncProducer
	topic    string
}

func buildConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 1
	cfg.Producer.Partitioner = sarama.NewHashPartitioner // Key 控制分区：同会话进同分区

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// New 建立生产者；Brokers 为空返回 nil（不启用流水）。
func New(cfg Config) (*Journal, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}
	if cfg.Topic == "" {
		cfg.Topic = "tripboard_message_journal"
	}
	p, err := sarama.NewSyncProducer(cfg.Brokers, buildConfig())
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka producer")
	}
	logger.Infof("[journal] producer ready brokers=%v topic=%s", cfg.Brokers, cfg.Topic)
	return &Journal{producer: p, topic: cfg.Topic}, nil
}

// Publish 同步发送一条消息流水；同一会话按 seq 有序（哈希到同一分区）。
func (j *Journal) Publish(msg *model.MessageModel) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errs.Wrap(err)
	}
	_, _, err = j.producer.SendMessage(&sarama.ProducerMessage{
		Topic: j.topic,
		Key:   sarama.StringEncoder(msg.ConversationID),
		Value: sarama.ByteEncoder(data),
	})
	return errs.Wrap(err)
}

func (j *Journal) Close() error {
	if j == nil || j.producer == nil {
		return nil
	}
	return j.producer.Close()
}
