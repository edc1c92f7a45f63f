package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"
	"go.mongodb.org/mongo-driver/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	config "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/config"
	dlMongo "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/db/mongodb"
	dlPostgres "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/db/postgres"
	dlSQLite "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/db/sqlite"
	infraEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/infra/events"

	dlDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/deadletter/domain"
	deliveryApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/application"
	deliveryDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/domain"
	deliveryMongo "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/infra/outbound/db/mongodb"
	deliveryTransport "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/delivery/infra/outbound/transport"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/gateway"
	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay"
	relayClickhouse "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay/infra/outbound/analytics/clickhouse"
	relayMongo "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/relay/infra/outbound/db/mongodb"
	sessionApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/application"
	sessionDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/domain"
	sessionEvents "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/inbound/events"
	sessionHttp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/inbound/http"
	sessionMongo "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/outbound/db/mongodb"
	sessionTracker "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/session/infra/outbound/tracker"
	infraRelayer "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/relayer"
	sharedBus "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/shared/infra/platform/bus"
	verifyApp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/application"
	verifyDomain "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/domain"
	verifyHttp "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/infra/inbound/http"
	verifyCache "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/infra/outbound/cache"
	verifyMongo "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/infra/outbound/db/mongodb"
	verifyTransport "github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/internal/verify/infra/outbound/transport"

	"github.com/Clairerang/CSC3104-Cloud-Project-Grp25-sub001/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// ---------------- Main ----------------
func main() {
	cfg := config.LoadConfig()

	logger.Init(cfg.ServiceName) // inicializa zap
	log := logger.Logger()
	defer log.Sync() // flush buffers al salir

	ctx := context.Background()

	// ---------------- MongoDB ----------------
	mongoClient, err := mongo.Connect(ctx, mongoOptions.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)

	sessionRepo, err := sessionMongo.NewSessionRepoMongoDB(ctx, mongoClient, cfg.MongoDB)
	if err != nil {
		log.Fatal("failed to initialize session repository", zap.Error(err))
	}
	registrationRepo := deliveryMongo.NewRegistrationRepoMongoDB(mongoClient, cfg.MongoDB)
	auditRepo := relayMongo.NewAuditRepoMongoDB(mongoClient, cfg.MongoDB)
	attemptRepo := verifyMongo.NewAttemptRepoMongoDB(mongoClient, cfg.MongoDB)

	// ------------- Dead letters -------------
	var deadLetters dlDomain.Store
	if cfg.LocalDeployment {
		db, err := sql.Open("sqlite", cfg.SQLitePath)
		if err != nil {
			log.Fatal("failed to open SQLite", zap.Error(err))
		}
		defer db.Close()
		if err := dlSQLite.InitSQLite(db); err != nil {
			log.Fatal("failed to initialize SQLite", zap.Error(err))
		}
		deadLetters = dlSQLite.NewDeadLetterRepoSQLite(db)
	} else if cfg.PostgresURI != "" {
		db, err := sql.Open("pgx", cfg.PostgresURI)
		if err != nil {
			log.Fatal("failed to open Postgres", zap.Error(err))
		}
		defer db.Close()
		deadLetters = dlPostgres.NewDeadLetterRepoPostgres(db)
	} else {
		deadLetters = dlMongo.NewDeadLetterRepoMongoDB(mongoClient, cfg.MongoDB)
	}

	// ---------------- Bus -------------------
	var bus sharedBus.Broker
	if cfg.UseKafka {
		log.Info("🚀 Usando Kafka como bus de eventos")

		// El writer es genérico: el topic viaja en cada mensaje.
		writer := &kafka.Writer{
			Addr:                   kafka.TCP(cfg.KafkaBrokers...),
			AllowAutoTopicCreation: true,
		}
		defer writer.Close()

		bus = infraEvents.NewKafkaBroker(cfg.KafkaBrokers, writer, log)
	} else {
		log.Info("⚡️Usando bus de eventos en memoria (canales de Go)")
		bus = infraEvents.NewInMemoryBroker()
	}

	// ----------- Ventana / códigos ----------
	var windowStore verifyDomain.WindowStore
	var codeStore verifyDomain.CodeStore
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("⚠️ Redis no disponible, ventana en memoria:", zap.Error(err))
		mem := verifyCache.NewMemoryStore()
		windowStore, codeStore = mem, mem
	} else {
		log.Info("✅ Redis conectado, ventana compartida habilitada")
		store := verifyCache.NewRedisStore(rdb, verifyDomain.Window)
		windowStore, codeStore = store, store
	}

	// --------------- Servicios --------------
	var tracker sessionDomain.EngagementTracker
	if cfg.TrackerURL != "" {
		tracker = sessionTracker.NewHTTPTracker(cfg.TrackerURL, 3*time.Second)
	}
	sessionService := sessionApp.NewSessionService(sessionRepo, sessionDomain.DefaultCatalog(), tracker, log)

	var smsSender verifyDomain.SMSSender
	if cfg.SMSProviderURL != "" {
		smsSender = verifyTransport.NewHTTPSMS(cfg.SMSProviderURL, 5*time.Second)
	}
	limiter := verifyDomain.NewLimiter(windowStore)
	verifyService := verifyApp.NewVerifyService(limiter, codeStore, smsSender, attemptRepo, log)

	// --------------- Gateway ----------------
	responder := gateway.NewResponder(bus, log)
	sessionEvents.RegisterSessionHandlers(responder, sessionService, log)
	responder.Start(ctx)

	// El API HTTP entra al libro de sesiones por el mismo gateway que el
	// resto de clientes del bus.
	requester := gateway.NewRequester(bus, cfg.ServiceName, cfg.RequestTimeout, log)

	// ---------------- Relay -----------------
	ring := relay.NewRingBuffer(cfg.RingSize)

	var analytics relay.AnalyticsSink
	if cfg.ClickHouseAddr != "" {
		sink, err := relayClickhouse.NewAuditSink(cfg.ClickHouseAddr, cfg.ClickHouseDB, 100, 5*time.Second, log)
		if err != nil {
			log.Warn("⚠️ ClickHouse no disponible, sin sink analítico", zap.Error(err))
		} else {
			sink.Start(ctx)
			analytics = sink
		}
	}

	relayConsumer := relay.NewConsumer(auditRepo, auditRepo, ring, analytics, bus, cfg.EventsTopic, log)

	// ------------- Push worker --------------
	var primary, fallback *deliveryTransport.HTTPPush
	if cfg.PushPrimaryURL != "" {
		primary = deliveryTransport.NewHTTPPush("push-primary", cfg.PushPrimaryURL, 5*time.Second)
	}
	if cfg.PushFallbackURL != "" {
		fallback = deliveryTransport.NewHTTPPush("push-fallback", cfg.PushFallbackURL, 5*time.Second)
	}

	var pushWorker *deliveryApp.PushWorker
	if primary != nil {
		workerCfg := deliveryApp.Config{
			PreSendDelay:    cfg.PreSendDelay,
			FallbackEnabled: cfg.FallbackEnabled && fallback != nil,
		}
		var fb deliveryDomain.Transport
		if fallback != nil {
			fb = fallback // evita interfaz no-nil con puntero nil
		}
		pushWorker = deliveryApp.NewPushWorker(registrationRepo, primary, fb, deadLetters, bus, cfg.EventsTopic, cfg.ServiceName, workerCfg, log)
	}

	// ------------- Consumidores -------------
	if cfg.UseKafka {
		relayReader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.EventsTopic,
			GroupID:  "carelink-relay",
			MinBytes: 10e3, // 10KB
			MaxBytes: 10e6, // 10MB
		})
		defer relayReader.Close()
		infraEvents.NewConsumerAdapter(relayReader, relayConsumer, log).Start(ctx)

		if pushWorker != nil {
			pushReader := kafka.NewReader(kafka.ReaderConfig{
				Brokers:  cfg.KafkaBrokers,
				Topic:    relay.ChannelTopic(cfg.EventsTopic, "mobile"),
				GroupID:  "carelink-push",
				MinBytes: 10e3,
				MaxBytes: 10e6,
			})
			defer pushReader.Close()
			infraEvents.NewConsumerAdapter(pushReader, pushWorker, log).Start(ctx)
		}
	} else {
		relayCh, _ := bus.Subscribe(cfg.EventsTopic, 64)
		infraEvents.BackgroundConsumerChan(ctx, relayCh, relayConsumer, log)

		if pushWorker != nil {
			pushCh, _ := bus.Subscribe(relay.ChannelTopic(cfg.EventsTopic, "mobile"), 64)
			infraEvents.BackgroundConsumerChan(ctx, pushCh, pushWorker, log)
		}
	}

	// ------------ Outbox Worker -------------
	eventRegistry := sessionDomain.NewEventRegistry()
	outboxWorker := infraRelayer.NewOutboxWorker(
		sessionRepo, bus, eventRegistry, deadLetters, cfg.ServiceName,
		cfg.OutboxPeriod, cfg.OutboxLimit, log,
	)
	outboxWorker.Start(ctx)

	// ---------------- HTTP ------------------
	verifyHandler := verifyHttp.NewVerifyHandler(verifyService)
	webhookHandler := verifyHttp.NewWebhookHandler(bus, cfg.EventsTopic, cfg.ServiceName, cfg.WebhookSecret, log)

	router := gin.Default()
	verifyHttp.RegisterVerifyRoutes(router, verifyHandler, webhookHandler)
	sessionHttp.RegisterSessionRoutes(router, sessionHttp.NewSessionHandler(requester))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	log.Info("🚀 Server running",
		zap.String("url", "http://localhost:"+cfg.HTTPPort),
	)
	if err := router.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
