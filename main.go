package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TripBoard/global/config"
	"TripBoard/logger"
	"TripBoard/module/plan"
	"TripBoard/module/plan/store"
	"TripBoard/service/journal"
	"TripBoard/service/mgo"
	"TripBoard/service/natsx"
	"TripBoard/service/relay"
	redisx "TripBoard/service/storage/redis"
	"TripBoard/service/ws"
	"TripBoard/tools/ids"

	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()
	cfg := config.Global
	// 雪花节点位跟着网关节点名走，多节点部署各自不同
	ids.SetNodeID(ids.NodeIDFromName(cfg.Gateway.NodeID))

	ctx := context.Background()

	// Mongo 是消息与画板的唯一真相，必须就绪
	if err := mgo.Connect(ctx, &mgo.Config{
		Uri:         cfg.Mongo.Uri,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	}); err != nil {
		logger.Errorf("[boot] mongo connect failed: %v", err)
		os.Exit(1)
	}

	// Redis presence 镜像是可选能力，连不上只降级
	if err := redisx.InitRedis(redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}); err != nil {
		logger.Warnf("[boot] redis unavailable, presence mirror disabled: %v", err)
	}

	messages := store.NewMessageStore(mgo.DB())
	canvas := store.NewCanvasStore(mgo.DB())
	if err := messages.EnsureIndexes(ctx); err != nil {
		logger.Warnf("[boot] message indexes: %v", err)
	}
	if err := canvas.EnsureIndexes(ctx); err != nil {
		logger.Warnf("[boot] canvas indexes: %v", err)
	}

	// Kafka 流水：未配置 brokers 时为 nil
	var j relay.Journal
	if jn, err := journal.New(journal.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.JournalTopic}); err != nil {
		logger.Warnf("[boot] kafka journal disabled: %v", err)
	} else if jn != nil {
		j = jn
		defer jn.Close()
	}

	// NATS 跨网关转发：未配置 servers 时为 nil
	bus, err := natsx.NewRelay(natsx.Config{Servers: cfg.Nats.Servers, Name: cfg.Nats.Name}, cfg.Gateway.NodeID)
	if err != nil {
		logger.Warnf("[boot] nats relay disabled: %v", err)
		bus = nil
	}

	gw := ws.NewServer(ws.Conf{
		NodeID:        cfg.Gateway.NodeID,
		EditingTTL:    cfg.Gateway.EditingTTL,
		TypingTTL:     cfg.Gateway.TypingTTL,
		RoomGrace:     cfg.Gateway.RoomGrace,
		PresenceTTL:   cfg.Gateway.PresenceTTL,
		SendQueueSize: cfg.Gateway.SendQueueSize,
		FanoutWorkers: cfg.Gateway.FanoutWorkers,
		FanoutQueue:   cfg.Gateway.FanoutQueue,
		JwtSecret:     config.GetJwtSecret(),
	}, messages, j, bus)
	defer gw.Close()

	r := gin.Default()
	r.GET("/ws", gw.HandleWS)
	plan.NewHandler(gw, messages, canvas, config.GetJwtSecret()).Register(r)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Gateway.Port)
		logger.Infof("[boot] gateway %s listening on %s", cfg.Gateway.NodeID, addr)
		if err := r.Run(addr); err != nil {
			logger.Errorf("[boot] http server: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("[boot] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = mgo.Close(shutdownCtx)
	_ = redisx.CloseRedis()
}
