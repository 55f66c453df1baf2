package mgo

import (
	"context"
	"sync"
	"time"

	"TripBoard/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	Uri         string
	Database    string
	Username    string
	Password    string
	MaxPoolSize uint64
}

type Manager struct {
	mu     sync.RWMutex
	client *mongo.Client
	db     *mongo.Database
}

var globalMgr Manager

// Connect 建立连接并 ping 确认可用。
func Connect(ctx context.Context, cfg *Config) error {
	opts := options.Client().ApplyURI(cfg.Uri)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := mongo.Connect(cctx, opts)
	if err != nil {
		return err
	}
	if err := cli.Ping(cctx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return err
	}

	globalMgr.mu.Lock()
	globalMgr.client = cli
	globalMgr.db = cli.Database(cfg.Database)
	globalMgr.mu.Unlock()

	logger.Infof("[mgo] connected uri=%s db=%s", cfg.Uri, cfg.Database)
	return nil
}

// DB 获取数据库句柄；未初始化时 panic（和 redis 单例同一风格）
func DB() *mongo.Database {
	globalMgr.mu.RLock()
	defer globalMgr.mu.RUnlock()
	if globalMgr.db == nil {
		panic("mongo not initialized, call Connect first")
	}
	return globalMgr.db
}

func Close(ctx context.Context) error {
	globalMgr.mu.Lock()
	defer globalMgr.mu.Unlock()
	if globalMgr.client == nil {
		return nil
	}
	err := globalMgr.client.Disconnect(ctx)
	globalMgr.client, globalMgr.db = nil, nil
	return err
}
