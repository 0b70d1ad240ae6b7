package main

import (
	"context"
	"errors"
	"flag"
	"hash/fnv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"BelongingsHub/data/database/mgo/mongoutil"
	"BelongingsHub/global/config"
	"BelongingsHub/logger"
	"BelongingsHub/middleware"
	midsec "BelongingsHub/middleware/security"
	badgehandler "BelongingsHub/module/badge/handler"
	badgemodel "BelongingsHub/module/badge/model"
	badgeservice "BelongingsHub/module/badge/service"
	chathandler "BelongingsHub/module/chat/handler"
	chatmodel "BelongingsHub/module/chat/model"
	chatservice "BelongingsHub/module/chat/service"
	"BelongingsHub/service/chat"
	"BelongingsHub/service/kafka"
	"BelongingsHub/service/mgo"
	"BelongingsHub/service/natsx"
	"BelongingsHub/service/storage"
	redisx "BelongingsHub/service/storage/redis"
	"BelongingsHub/tools/ids"
	"BelongingsHub/tools/security"

	"github.com/Shopify/sarama"
	"github.com/gin-gonic/gin"
)

func main() {
	path := flag.String("config", os.Getenv("HUB_CONFIG"), "path to config yaml")
	flag.Parse()
	if *path == "" {
		*path = "config.yaml"
	}

	cfg, err := config.LoadAndValidate(*path)
	if err != nil {
		logger.Errorf("load config %s: %v", *path, err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("relay node %s exited: %v", cfg.NodeID, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	idNode := ids.NewNode(snowNodeID(cfg.NodeID))

	// ---- Mongo ----
	mm := mgo.NewManager(&mongoutil.Config{
		Uri:         cfg.Mongo.URI,
		Address:     cfg.Mongo.Address,
		Database:    cfg.Mongo.Database,
		Username:    cfg.Mongo.Username,
		Password:    cfg.Mongo.Password,
		AuthSource:  cfg.Mongo.AuthSource,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
		MaxRetry:    cfg.Mongo.MaxRetry,
	})
	mm.StartAsync(ctx)
	defer mm.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	_, err := mm.WaitReady(waitCtx)
	cancel()
	if err != nil {
		return err
	}

	// 每次操作取 mm 当前客户端，重连后不会拿着已断开的库
	messages := chatservice.NewMessageService(mm.TryGetDB)
	badgeStore := badgeservice.NewMongoStore(mm.TryGetDB)
	if err := messages.EnsureIndexes(ctx); err != nil {
		return err
	}
	if err := badgeStore.EnsureIndexes(ctx); err != nil {
		return err
	}

	// ---- 鉴权 ----
	verifier, err := security.NewVerifier(security.Options{Secret: []byte(cfg.JWT.Secret), Alg: cfg.JWT.Alg})
	if err != nil {
		return err
	}

	// ---- relay ----
	srv := chat.NewServer(chat.Options{
		NodeID:         cfg.NodeID,
		SendQueueSize:  cfg.Relay.SendQueueSize,
		WriteWait:      cfg.Relay.WriteWait,
		PongWait:       cfg.Relay.PongWait,
		PingPeriod:     cfg.Relay.PingPeriod,
		MaxMessageSize: cfg.Relay.MaxMessageSize,
		PersistTimeout: cfg.Relay.PersistTimeout,
	}, messages, verifier)
	srv.SetIDNode(idNode)

	badges := badgeservice.NewBadgeService(badgeStore, srv)
	badges.SetCounter(badgemodel.MetricMessages, messages.CountSent)
	srv.AddMessageHook(func(ctx context.Context, msg *chatmodel.ChatMessage) {
		if _, err := badges.RefreshMetric(ctx, msg.SenderID, badgemodel.MetricMessages); err != nil {
			logger.Warnf("[Badge] evaluate messages user=%s err=%v", msg.SenderID, err)
		}
	})

	if cfg.Redis.Enabled {
		rdb, err := redisx.NewClient(ctx, redisx.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		srv.SetPresence(storage.NewPresence(rdb, cfg.Redis.PresenceTTL))
		logger.Infof("[Boot] presence on redis %s", cfg.Redis.Addr)
	}

	if cfg.Nats.Enabled {
		idem := natsx.NewMemIdem(cfg.Nats.DedupTTL)
		defer idem.Close()
		nc, err := natsx.NewNatsxClient(natsx.NatsxConfig{
			Servers:  cfg.Nats.Servers,
			Name:     cfg.Nats.Name,
			User:     cfg.Nats.User,
			Password: cfg.Nats.Password,
		}, natsx.NatsxIdemMiddleware(idem, cfg.Nats.DedupTTL))
		if err != nil {
			return err
		}
		defer nc.Close()

		fan := chat.NewNodeFanout(nc, cfg.Nats.SubjectPrefix, cfg.NodeID)
		if err := fan.Start(srv.DeliverLocal); err != nil {
			return err
		}
		srv.SetBroker(fan)
		logger.Infof("[Boot] fanout subscribed %s", fan.Subject(cfg.NodeID))
	}

	if cfg.Kafka.Enabled {
		kc := kafka.Config{
			Brokers:           cfg.Kafka.Brokers,
			ClientID:          cfg.Kafka.ClientID,
			Compression:       cfg.Kafka.Compression,
			Retries:           cfg.Kafka.Retries,
			Partitions:        cfg.Kafka.Partitions,
			ReplicationFactor: cfg.Kafka.ReplicationFactor,
		}
		if cfg.Kafka.EnsureTopic {
			if err := ensureTopic(kc, cfg.Kafka.OfflineTopic); err != nil {
				return err
			}
		}
		notifier, err := kafka.NewOfflineNotifierFromConfig(kc, cfg.Kafka.OfflineTopic)
		if err != nil {
			return err
		}
		defer notifier.Close()
		srv.SetOfflineNotifier(notifier)
		logger.Infof("[Boot] offline events -> %s", cfg.Kafka.OfflineTopic)
	}

	// ---- HTTP ----
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.AccessLog())
	auth := midsec.Middleware(verifier)
	srv.Register(r)
	chathandler.New(messages).Register(r, auth)
	bh := badgehandler.New(badges)
	bh.Register(r, auth)
	if cfg.Internal.Token != "" {
		bh.RegisterInternal(r, midsec.InternalToken(cfg.Internal.Token))
	} else {
		logger.Warn("[Boot] internal.token empty, /internal routes disabled")
	}

	hs := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("[Boot] node=%s listening on %s", cfg.NodeID, cfg.HTTP.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infof("[Boot] shutting down node=%s", cfg.NodeID)
	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	srv.Shutdown(shutCtx)
	return hs.Shutdown(shutCtx)
}

func ensureTopic(kc kafka.Config, topic string) error {
	admin, err := sarama.NewClusterAdmin(kc.Brokers, kafka.BuildProducerConfig(kc))
	if err != nil {
		return err
	}
	defer admin.Close()
	return kafka.EnsureTopics(admin, []string{topic}, kc)
}

// snowNodeID 节点名映射到雪花 ID 的 10 位节点段
func snowNodeID(nodeID string) int64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(nodeID))
	return int64(h.Sum32() % 1024)
}
